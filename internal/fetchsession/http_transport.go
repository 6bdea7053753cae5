package fetchsession

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/macedonia-transparency/procurement-pipeline/internal/apperr"
	"github.com/macedonia-transparency/procurement-pipeline/internal/logging"
)

var log = logging.For("fetchsession")

// HTTPTransport fetches e-pazar pages with net/http; no login is
// required (spec.md §4.1 draws the "e-pazar has no authenticated
// session" line explicitly).
type HTTPTransport struct {
	client *http.Client
	policy RetryPolicy
}

// NewHTTPTransport builds an HTTPTransport with the package's default
// retry policy and a generous per-request timeout suitable for the
// slower e-pazar evaluation-report pages.
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{Timeout: 30 * time.Second},
		policy: DefaultRetryPolicy(),
	}
}

func (t *HTTPTransport) Fetch(ctx context.Context, rawURL string) (string, error) {
	return withRetry(ctx, t.policy, func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return "", apperr.New(apperr.CategoryFatal, "fetchsession.http", err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; procurement-pipeline/1.0)")
		resp, err := t.client.Do(req)
		if err != nil {
			return "", apperr.New(apperr.CategoryTransientNetwork, "fetchsession.http", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return "", apperr.New(apperr.CategoryTransientNetwork, "fetchsession.http", httpStatusError(resp.StatusCode))
		}
		if resp.StatusCode >= 400 {
			return "", apperr.New(apperr.CategoryFatal, "fetchsession.http", httpStatusError(resp.StatusCode))
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", apperr.New(apperr.CategoryTransientNetwork, "fetchsession.http", err)
		}
		log.WithFields(logging.Fields{"url": rawURL, "bytes": len(body)}).Debug("fetched page")
		return string(body), nil
	})
}

func (t *HTTPTransport) Submit(ctx context.Context, rawURL string, values map[string]string) (string, error) {
	form := url.Values{}
	for k, v := range values {
		form.Set(k, v)
	}
	return withRetry(ctx, t.policy, func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
		if err != nil {
			return "", apperr.New(apperr.CategoryFatal, "fetchsession.http", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp, err := t.client.Do(req)
		if err != nil {
			return "", apperr.New(apperr.CategoryTransientNetwork, "fetchsession.http", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return "", apperr.New(apperr.CategoryTransientNetwork, "fetchsession.http", httpStatusError(resp.StatusCode))
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		return string(body), nil
	})
}

func (t *HTTPTransport) Close() error { return nil }

type httpStatusErr struct{ code int }

func httpStatusError(code int) error { return &httpStatusErr{code: code} }

func (e *httpStatusErr) Error() string {
	return "fetchsession: unexpected HTTP status " + http.StatusText(e.code)
}
