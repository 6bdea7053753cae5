// Package enabavki implements the e-nabavki traversal state machine
// (spec.md §5, component C3): a listing walk addressed by the page
// query parameter, bounded-concurrency detail fetch, and cursor
// persistence so a later invocation can resume an incremental scan
// instead of re-walking the full archive. The crawler performs no
// login: every page is fetched through the Session it is given, and a
// login page served in place of a listing is not recognized as such
// (it simply yields no rows). The semaphore-bounded fan-out over detail pages is
// grounded in the polling worker loop surveyed from the ncecere-raito
// reference crawler (sem := make(chan struct{}, maxJobs) gated
// concurrency), adapted here to golang.org/x/sync's errgroup.Group and
// semaphore.Weighted instead of a raw channel, matching the teacher
// corpus's broader preference for the x/sync primitives.
package enabavki

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/macedonia-transparency/procurement-pipeline/internal/apperr"
	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
	"github.com/macedonia-transparency/procurement-pipeline/internal/fetchsession"
	"github.com/macedonia-transparency/procurement-pipeline/internal/logging"
)

var log = logging.For("crawler.enabavki")

const baseURL = "https://e-nabavki.gov.mk"

// Options configures one crawl invocation, matching the CLI flags
// spec.md §6 publishes for cmd/crawler-enabavki.
type Options struct {
	Category        string
	Year            *int
	MaxPages        int
	StartPage       int
	Reverse         bool
	ForceFullScan   bool
	MaxItems        int
	DetailConcurrency int
}

// ListingRow is one row of a listing page, enough to build the dossier
// URL and decide incremental-mode early stopping.
type ListingRow struct {
	TenderNumber string
	DetailURL    string
}

// Result is the outcome of one crawl invocation.
type Result struct {
	TendersFetched int
	ItemErrors     int
	Cursor         domain.CrawlCursor
}

// Crawler drives one e-nabavki category/year traversal.
type Crawler struct {
	session fetchsession.Session
	opts    Options
}

func New(session fetchsession.Session, opts Options) *Crawler {
	if opts.DetailConcurrency <= 0 {
		opts.DetailConcurrency = 3
	}
	return &Crawler{session: session, opts: opts}
}

// TenderHandler is invoked once per successfully-parsed dossier,
// receiving the tender alongside the procuring entity its page named
// (nil if the field extraction missed it entirely) so the caller can
// hand both to internal/ingest.Pipeline.UpsertTender.
type TenderHandler func(ctx context.Context, t *domain.Tender, entity *domain.ProcuringEntity) error

// Run walks the listing pages starting from cursor, dispatching each
// row's detail page through a bounded worker pool, and returns the
// advanced cursor for persistence. Incremental mode (cursor.LastTenderNumber
// non-empty and !ForceFullScan) stops the listing walk as soon as a
// row matching the cursor's last-seen tender number is reached.
// ForceFullScan also ignores cursor.LastPage, starting from StartPage
// or page 1.
func (c *Crawler) Run(ctx context.Context, cursor domain.CrawlCursor, handle TenderHandler) (Result, error) {
	result := Result{Cursor: cursor}
	page := c.opts.StartPage
	if page == 0 {
		if !c.opts.ForceFullScan {
			page = cursor.LastPage
		}
		if page == 0 {
			page = 1
		}
	}

	sem := semaphore.NewWeighted(int64(c.opts.DetailConcurrency))
	group, gctx := errgroup.WithContext(ctx)

	stopAt := cursor.LastTenderNumber
	seenStop := false
	for pagesWalked := 0; c.opts.MaxPages == 0 || pagesWalked < c.opts.MaxPages; pagesWalked++ {
		rows, hasMore, err := c.fetchListingPage(gctx, page)
		if err != nil {
			return result, err
		}

		for _, row := range rows {
			if !c.opts.ForceFullScan && stopAt != "" && row.TenderNumber == stopAt {
				seenStop = true
				break
			}
			if c.opts.MaxItems > 0 && result.TendersFetched >= c.opts.MaxItems {
				seenStop = true
				break
			}

			row := row
			if err := sem.Acquire(gctx, 1); err != nil {
				return result, err
			}
			result.TendersFetched++
			group.Go(func() error {
				defer sem.Release(1)
				tender, entity, err := c.fetchDossier(gctx, row)
				if err != nil {
					cat, isExtraction := apperr.CategoryOf(err)
					if !isExtraction || cat != apperr.CategoryExtraction {
						return err
					}
					result.ItemErrors++
					log.WithFields(logging.Fields{"tender_number": row.TenderNumber, "error": err}).
						Warn("extraction failure, writing partial record and continuing")
				}
				return handle(gctx, tender, entity)
			})
		}

		cursor.LastPage = page
		if len(rows) > 0 {
			cursor.LastTenderNumber = rows[0].TenderNumber
		}

		if seenStop || (!c.opts.Reverse && !hasMore) {
			break
		}
		if c.opts.Reverse {
			page--
			if page < 1 {
				break
			}
		} else {
			page++
		}
	}

	if err := group.Wait(); err != nil {
		return result, err
	}
	result.Cursor = cursor
	return result, nil
}

func (c *Crawler) fetchListingPage(ctx context.Context, page int) ([]ListingRow, bool, error) {
	url := fmt.Sprintf("%s/PublicAccess/home.aspx?category=%s&page=%d", baseURL, c.opts.Category, page)
	html, err := c.session.Fetch(ctx, url)
	if err != nil {
		return nil, false, err
	}
	return parseListingPage(html)
}

func (c *Crawler) fetchDossier(ctx context.Context, row ListingRow) (*domain.Tender, *domain.ProcuringEntity, error) {
	html, err := c.session.Fetch(ctx, row.DetailURL)
	if err != nil {
		return nil, nil, err
	}
	tender, entity, extractLog := ParseDossier(html, row.DetailURL)
	if len(extractLog.MissingFields) > 0 {
		return tender, entity, apperr.New(apperr.CategoryExtraction, "crawler.enabavki",
			fmt.Errorf("missing fields %v on %s", extractLog.MissingFields, row.TenderNumber))
	}
	return tender, entity, nil
}

// parseListingPage and ParseDossier are split out in listing.go and
// dossier.go respectively to keep this file focused on orchestration.
