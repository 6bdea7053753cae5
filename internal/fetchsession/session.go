// Package fetchsession provides the two transports spec.md §4.1
// requires for reaching the portals: a plain HTTP client for
// e-pazar's server-rendered pages, and a headless-browser transport
// for e-nabavki's JavaScript-rendered dossier pages and login form.
// Both satisfy the same Session interface so crawlers can be written
// once and parametrized by portal. Retry/backoff is grounded in the
// teacher repo's internal/limits package idiom of small, explicitly
// validated policy structs, and the chromedp usage follows the
// network-idle wait pattern documented in the ncecere-raito worker
// reference file surveyed for this corpus.
package fetchsession

import (
	"context"
	"time"
)

// Session fetches a page's rendered HTML. Implementations: HTTPTransport
// (e-pazar) and BrowserTransport (e-nabavki, via chromedp).
type Session interface {
	// Fetch returns the rendered HTML at url. For BrowserTransport this
	// blocks until the DOM has been idle for the configured quiet
	// window; for HTTPTransport it returns as soon as the response body
	// is read.
	Fetch(ctx context.Context, url string) (string, error)

	// Submit performs a form POST (HTTPTransport) or a click+wait
	// sequence (BrowserTransport) against url with the given form
	// values, returning the resulting page HTML. Used for e-nabavki's
	// login form and pagination postbacks.
	Submit(ctx context.Context, url string, values map[string]string) (string, error)

	// Close releases the transport's resources (browser process,
	// persistent HTTP connections).
	Close() error
}

// RetryPolicy configures the exponential-backoff-with-jitter retry
// wrapper every transport call goes through.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// JitterFraction is the proportion of the computed delay randomized
	// by +/-, e.g. 0.2 for +/-20%.
	JitterFraction float64
}

// DefaultRetryPolicy matches spec.md §4.1's published retry schedule:
// up to 5 attempts, 1s base delay doubling each attempt, capped at 30s,
// with 20% jitter to avoid synchronized retry storms across concurrent
// detail fetches.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    5,
		BaseDelay:      1 * time.Second,
		MaxDelay:       30 * time.Second,
		JitterFraction: 0.2,
	}
}

func (p RetryPolicy) delayFor(attempt int) time.Duration {
	d := p.BaseDelay << attempt
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	return d
}
