package enabavki

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// parseListingPage extracts the tender rows and a next-page indicator
// from one e-nabavki category listing page. The dropdown pagination
// control renders a disabled "next" anchor once the last page is
// reached; its presence/absence is what hasMore reports.
func parseListingPage(html string) ([]ListingRow, bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false, err
	}

	var rows []ListingRow
	doc.Find("table.tender-list tr[data-tender-number], .listing-row").Each(func(_ int, s *goquery.Selection) {
		number, _ := s.Attr("data-tender-number")
		href, _ := s.Find("a.detail-link").Attr("href")
		if number == "" || href == "" {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = baseURL + href
		}
		rows = append(rows, ListingRow{TenderNumber: number, DetailURL: href})
	})

	hasMore := doc.Find("a.next-page:not(.disabled)").Length() > 0
	return rows, hasMore, nil
}
