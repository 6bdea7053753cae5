package fetchsession

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"
)

// PersistentJar is a net/http.CookieJar backed by a JSON file, so the
// cookies set on it survive process restarts within its TTL (spec.md
// §4.1). BrowserTransport does not copy the browser's cookies into it.
type PersistentJar struct {
	mu      sync.Mutex
	path    string
	ttl     time.Duration
	entries map[string][]jarCookie
}

type jarCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path"`
	Domain   string    `json:"domain"`
	Expires  time.Time `json:"expires"`
	SavedAt  time.Time `json:"saved_at"`
}

// DefaultCookieTTL is the session lifetime spec.md §4.1 publishes for
// the e-nabavki login cookie: cookies older than this are discarded on
// load.
const DefaultCookieTTL = 4 * time.Hour

// NewPersistentJar loads path if it exists (stale entries older than
// ttl are dropped) or starts empty.
func NewPersistentJar(path string, ttl time.Duration) (*PersistentJar, error) {
	j := &PersistentJar{path: path, ttl: ttl, entries: map[string][]jarCookie{}}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return j, nil
		}
		return nil, err
	}
	var stored map[string][]jarCookie
	if err := json.Unmarshal(raw, &stored); err != nil {
		return j, nil
	}
	cutoff := time.Now().Add(-ttl)
	for host, cookies := range stored {
		var fresh []jarCookie
		for _, c := range cookies {
			if c.SavedAt.After(cutoff) {
				fresh = append(fresh, c)
			}
		}
		if len(fresh) > 0 {
			j.entries[host] = fresh
		}
	}
	return j, nil
}

// SetCookies implements http.CookieJar.
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	var stored []jarCookie
	for _, c := range cookies {
		stored = append(stored, jarCookie{
			Name: c.Name, Value: c.Value, Path: c.Path, Domain: u.Host,
			Expires: c.Expires, SavedAt: now,
		})
	}
	j.entries[u.Host] = stored
	_ = j.save()
}

// Cookies implements http.CookieJar.
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	cutoff := time.Now().Add(-j.ttl)
	var out []*http.Cookie
	for _, c := range j.entries[u.Host] {
		if c.SavedAt.Before(cutoff) {
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path})
	}
	return out
}

// Expired reports whether the jar holds no fresh cookies for host.
func (j *PersistentJar) Expired(host string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	cutoff := time.Now().Add(-j.ttl)
	for _, c := range j.entries[host] {
		if c.SavedAt.After(cutoff) {
			return false
		}
	}
	return true
}

func (j *PersistentJar) save() error {
	raw, err := json.MarshalIndent(j.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(j.path, raw, 0o600)
}
