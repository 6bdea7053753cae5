// Package epazar implements the e-pazar crawler (spec.md §5,
// component C4): a paginated, unauthenticated listing walk plus
// evaluation-report discovery on each dossier page. It reuses the
// same HTTPTransport-backed fetchsession.Session the listing pages of
// e-nabavki's category filter could also use, since e-pazar never
// requires the headless-browser transport.
package epazar

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
	"github.com/macedonia-transparency/procurement-pipeline/internal/fetchsession"
	"github.com/macedonia-transparency/procurement-pipeline/internal/logging"
	"github.com/macedonia-transparency/procurement-pipeline/internal/pagemodel"
)

var log = logging.For("crawler.epazar")

const baseURL = "https://e-pazar.gov.mk"

// Options configures one crawl invocation.
type Options struct {
	Category      string
	MaxPages      int
	StartPage     int
	ForceFullScan bool
	MaxItems      int
}

// Result is the outcome of one crawl invocation.
type Result struct {
	TendersFetched int
	ItemErrors     int
	Cursor         domain.CrawlCursor
}

// TenderHandler is invoked once per successfully-parsed listing item.
type TenderHandler func(ctx context.Context, t *domain.Tender) error

type Crawler struct {
	session fetchsession.Session
	opts    Options
}

func New(session fetchsession.Session, opts Options) *Crawler {
	return &Crawler{session: session, opts: opts}
}

// Run walks e-pazar's listing pages. Unlike e-nabavki, each listing row
// already carries the full tender detail inline (e-pazar's listing is
// a flat auction table rather than a dossier-per-row design), so there
// is no separate detail fetch -- only an optional evaluation-report
// discovery pass per item.
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

	stopAt := cursor.LastTenderNumber
	for pagesWalked := 0; c.opts.MaxPages == 0 || pagesWalked < c.opts.MaxPages; pagesWalked++ {
		url := fmt.Sprintf("%s/auctions?category=%s&page=%d", baseURL, c.opts.Category, page)
		html, err := c.session.Fetch(ctx, url)
		if err != nil {
			return result, err
		}

		items, hasMore, err := parseListing(html)
		if err != nil {
			return result, err
		}

		stop := false
		for _, t := range items {
			if !c.opts.ForceFullScan && stopAt != "" && t.TenderNumber == stopAt {
				stop = true
				break
			}
			if c.opts.MaxItems > 0 && result.TendersFetched >= c.opts.MaxItems {
				stop = true
				break
			}
			t := t
			t.SourcePortal = domain.PortalEPazar
			result.TendersFetched++
			if err := c.enrichEvaluationReport(ctx, t); err != nil {
				result.ItemErrors++
				log.WithFields(logging.Fields{"tender_number": t.TenderNumber, "error": err}).
					Warn("evaluation report fetch failed, continuing with listing data only")
			}
			if err := handle(ctx, t); err != nil {
				return result, err
			}
		}

		cursor.LastPage = page
		if len(items) > 0 {
			cursor.LastTenderNumber = items[0].TenderNumber
		}

		if stop || !hasMore {
			break
		}
		page++
	}

	result.Cursor = cursor
	return result, nil
}

// enrichEvaluationReport fetches t.SourceURL + "/evaluation-report"
// whenever t has a SourceURL and folds its bidder ranking table into
// t's bids -- e-pazar publishes bid amounts only on this subpage, not
// on the listing row. It does not check whether the auction links to
// such a subpage; a failed fetch is returned as an error.
func (c *Crawler) enrichEvaluationReport(ctx context.Context, t *domain.Tender) error {
	if t.SourceURL == "" {
		return nil
	}
	reportURL := t.SourceURL + "/evaluation-report"
	html, err := c.session.Fetch(ctx, reportURL)
	if err != nil {
		return err
	}
	bids, err := parseEvaluationReport(html)
	if err != nil {
		return err
	}
	t.Bids = bids
	return nil
}

func parseListing(html string) ([]*domain.Tender, bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false, err
	}

	var items []*domain.Tender
	doc.Find(".auction-row").Each(func(_ int, s *goquery.Selection) {
		number := strings.TrimSpace(s.Find(".auction-number").Text())
		if number == "" {
			return
		}
		href, _ := s.Find("a.auction-link").Attr("href")
		if href != "" && !strings.HasPrefix(href, "http") {
			href = baseURL + href
		}
		title := strings.TrimSpace(s.Find(".auction-title").Text())
		value, _ := pagemodel.ParseMoney(strings.TrimSpace(s.Find(".auction-value").Text()))
		status, _ := pagemodel.ParseStatus(strings.TrimSpace(s.Find(".auction-status").Text()))

		items = append(items, &domain.Tender{
			TenderNumber:   number,
			SourceURL:      href,
			Title:          title,
			Currency:       domain.CurrencyMKD,
			EstimatedValue: value,
			Status:         status,
		})
	})

	hasMore := doc.Find("a.next-page:not(.disabled)").Length() > 0
	return items, hasMore, nil
}

func parseEvaluationReport(html string) ([]domain.TenderBid, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var bids []domain.TenderBid
	doc.Find(".bid-row").Each(func(rank int, s *goquery.Selection) {
		amount, _ := pagemodel.ParseMoney(strings.TrimSpace(s.Find(".bid-amount").Text()))
		if amount == nil {
			return
		}
		winnerText := strings.TrimSpace(s.Find(".bid-winner").Text())
		bids = append(bids, domain.TenderBid{
			Amount: *amount,
			Rank:   rank + 1,
			Winner: strings.EqualFold(winnerText, "да") || strings.EqualFold(winnerText, "yes"),
		})
	})
	return bids, nil
}
