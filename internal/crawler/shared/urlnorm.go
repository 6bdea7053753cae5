// Package shared holds a URL canonicalization helper for deduplicating
// listing rows across overlapping page fetches; neither portal crawler
// imports it. It is a deliberately narrowed adaptation of the teacher
// repo's internal/utils.URLNormalizer: that tool generalized arbitrary
// site paths into wildcard patterns ("/users/{id}") for fuzzing
// coverage tracking, priority-ranking dozens of path-shape rules. A
// procurement portal crawler has no such open-ended path space -- only
// a fixed querystring noise problem (session ids, analytics params,
// trailing slashes) -- so this keeps the same "parse, strip, rebuild"
// structure but drops the path-pattern rule table entirely.
package shared

import (
	"net/url"
	"sort"
	"strings"
)

// noiseParams lists query parameters that vary between fetches of the
// same logical page without changing its content: session/tracking
// identifiers the portals append to every link.
var noiseParams = map[string]bool{
	"sessionid":  true,
	"sid":        true,
	"utm_source": true,
	"utm_medium": true,
	"utm_campaign": true,
	"_":          true,
}

// Canonicalize resolves ref against base (if ref is relative), strips
// noise query parameters, sorts the remaining ones for a stable
// string form, and trims a trailing slash -- so the same dossier
// reached via two differently-decorated links dedupes to one key.
func Canonicalize(base, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if !u.IsAbs() && base != "" {
		baseURL, err := url.Parse(base)
		if err != nil {
			return "", err
		}
		u = baseURL.ResolveReference(u)
	}

	q := u.Query()
	for param := range q {
		if noiseParams[strings.ToLower(param)] {
			q.Del(param)
		}
	}
	var keys []string
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rebuilt := url.Values{}
	for _, k := range keys {
		for _, v := range q[k] {
			rebuilt.Add(k, v)
		}
	}
	u.RawQuery = rebuilt.Encode()
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.Fragment = ""
	return u.String(), nil
}
