package fetchsession

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/macedonia-transparency/procurement-pipeline/internal/apperr"
)

// BrowserTransport drives a headless chromedp instance for e-nabavki's
// ASP.NET-rendered dossier pages, whose postback pagination and login
// form require real JS execution rather than a bare HTTP GET. The
// network-idle wait (poll document.readyState, then a fixed quiet
// sleep) is grounded in the worker-loop idiom surveyed in the
// ncecere-raito reference crawler.
type BrowserTransport struct {
	allocCtx   context.Context
	allocCancel context.CancelFunc
	browserCtx context.Context
	cancel     context.CancelFunc
	jar        *PersistentJar
	policy     RetryPolicy
	quiet      time.Duration
}

// NewBrowserTransport launches a headless Chrome instance. jar may be
// nil. The jar is consulted only by LoginExpired: the browser keeps its
// own cookies, which are neither loaded from nor saved to jar, so they
// do not outlive the process.
func NewBrowserTransport(ctx context.Context, jar *PersistentJar) (*BrowserTransport, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
		)...,
	)
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, apperr.New(apperr.CategoryFatal, "fetchsession.browser", err)
	}
	return &BrowserTransport{
		allocCtx: allocCtx, allocCancel: allocCancel,
		browserCtx: browserCtx, cancel: cancel,
		jar:    jar,
		policy: DefaultRetryPolicy(),
		quiet:  750 * time.Millisecond,
	}, nil
}

func (t *BrowserTransport) Fetch(ctx context.Context, url string) (string, error) {
	return withRetry(ctx, t.policy, func() (string, error) {
		var html string
		err := chromedp.Run(t.browserCtx,
			chromedp.Navigate(url),
			t.waitNetworkIdle(),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
		if err != nil {
			return "", apperr.New(apperr.CategoryTransientNetwork, "fetchsession.browser", err)
		}
		return html, nil
	})
}

// Submit fills and submits e-nabavki's login/postback form: values
// keys are the ASP.NET control ids (e.g. "txtUsername") and are typed
// into the matching #id selector before the submit control is clicked.
func (t *BrowserTransport) Submit(ctx context.Context, url string, values map[string]string) (string, error) {
	return withRetry(ctx, t.policy, func() (string, error) {
		actions := []chromedp.Action{chromedp.Navigate(url), t.waitNetworkIdle()}
		for controlID, value := range values {
			if controlID == "submit" {
				continue
			}
			actions = append(actions, chromedp.SetValue("#"+controlID, value, chromedp.ByID))
		}
		if submitID, ok := values["submit"]; ok {
			actions = append(actions, chromedp.Click("#"+submitID, chromedp.ByID))
		}
		actions = append(actions, t.waitNetworkIdle())

		var html string
		actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
		if err := chromedp.Run(t.browserCtx, actions...); err != nil {
			return "", apperr.New(apperr.CategoryTransientNetwork, "fetchsession.browser", err)
		}
		return html, nil
	})
}

// waitNetworkIdle polls document.readyState until it reports complete,
// then sleeps the configured quiet window to let any trailing XHR
// postbacks settle before the DOM snapshot is taken.
func (t *BrowserTransport) waitNetworkIdle() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var state string
		deadline := time.Now().Add(20 * time.Second)
		for time.Now().Before(deadline) {
			if err := chromedp.Evaluate(`document.readyState`, &state).Do(ctx); err != nil {
				return err
			}
			if state == "complete" {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
		time.Sleep(t.quiet)
		return nil
	})
}

func (t *BrowserTransport) Close() error {
	t.cancel()
	t.allocCancel()
	return nil
}

// LoginExpired reports whether host's session cookie has aged out,
// signalling the caller must drive a fresh Submit to the login form
// before the next Fetch (spec.md §7's auth_expired error category).
func (t *BrowserTransport) LoginExpired(host string) bool {
	if t.jar == nil {
		return true
	}
	return t.jar.Expired(host)
}

func authExpiredError(host string) error {
	return apperr.New(apperr.CategoryAuthExpired, "fetchsession.browser", fmt.Errorf("session expired for host %s", host))
}
