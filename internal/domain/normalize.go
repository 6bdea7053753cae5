package domain

import "strings"

// NormalizeLegalName lowercases and collapses whitespace in a company
// or institution legal name so that minor formatting differences
// across crawl runs resolve to the same ProcuringEntity/Bidder row.
func NormalizeLegalName(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, " ")
}
