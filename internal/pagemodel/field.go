// Package pagemodel implements the five-level field-extraction
// strategy spec.md §4.2 requires of every dossier page: each of a
// dossier's ~20 fields is located by trying, in order, a stable
// server-rendered control id, a structural CSS selector, a Macedonian
// label lookup, a regex scan of the plain-text dump, and finally a
// logged null. The goquery traversal idiom is grounded in the teacher
// repo's internal/utils/form_extractor.go (doc.Find(...).Each(...)
// over a parsed document).
package pagemodel

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StrategyKind names which of the five levels produced a field value,
// recorded for the extraction-failure log entry and for the
// determinism property tests (same HTML snapshot -> same strategy
// every run).
type StrategyKind string

const (
	StrategyByID      StrategyKind = "by_id"
	StrategyBySelector StrategyKind = "by_selector"
	StrategyByLabel    StrategyKind = "by_label"
	StrategyByRegex    StrategyKind = "by_regex"
	StrategyDefault    StrategyKind = "default"
)

// Field describes one dossier field and its ordered fallback
// strategies.
type Field struct {
	Name         string
	ControlID    string         // level 1: exact element id
	Selector     string         // level 2: CSS selector (goquery syntax)
	LabelPhrases []string       // level 3: Macedonian label text candidates
	Regex        *regexp.Regexp // level 4: scanned over the plain-text dump
}

// Result is one field's extracted value plus provenance, used both by
// the dossier parser and by extraction-determinism tests.
type Result struct {
	Value    string
	Strategy StrategyKind
	Found    bool
}

// ExtractionLog records fields that fell through to the level-5
// default, for spec.md §7's "extraction failure" error category: the
// tender is still written with what was obtained, and these entries
// count toward the health report's error count without aborting.
type ExtractionLog struct {
	MissingFields []string
}

// Extractor runs the five-level strategy against one parsed dossier
// document.
type Extractor struct {
	doc     *goquery.Document
	rawText string
}

// NewExtractor parses html and pre-computes the plain-text dump used
// by level 4 (regex scan).
func NewExtractor(html string) (*Extractor, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &Extractor{
		doc:     doc,
		rawText: collapseWhitespace(doc.Text()),
	}, nil
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// Extract runs f's five levels in order against e's document, stopping
// at the first non-empty hit.
func (e *Extractor) Extract(f Field) Result {
	if f.ControlID != "" {
		if v, ok := e.byID(f.ControlID); ok {
			return Result{Value: v, Strategy: StrategyByID, Found: true}
		}
	}
	if f.Selector != "" {
		if v, ok := e.bySelector(f.Selector); ok {
			return Result{Value: v, Strategy: StrategyBySelector, Found: true}
		}
	}
	if len(f.LabelPhrases) > 0 {
		if v, ok := e.byLabel(f.LabelPhrases); ok {
			return Result{Value: v, Strategy: StrategyByLabel, Found: true}
		}
	}
	if f.Regex != nil {
		if v, ok := e.byRegex(f.Regex); ok {
			return Result{Value: v, Strategy: StrategyByRegex, Found: true}
		}
	}
	return Result{Value: "", Strategy: StrategyDefault, Found: false}
}

// ExtractAll runs Extract over every field and returns a name->Result
// map plus the extraction log of fields that hit the level-5 default.
func (e *Extractor) ExtractAll(fields []Field) (map[string]Result, ExtractionLog) {
	results := make(map[string]Result, len(fields))
	var log ExtractionLog
	for _, f := range fields {
		r := e.Extract(f)
		results[f.Name] = r
		if !r.Found {
			log.MissingFields = append(log.MissingFields, f.Name)
		}
	}
	return results, log
}

func (e *Extractor) byID(id string) (string, bool) {
	sel := e.doc.Find("#" + escapeID(id))
	text := strings.TrimSpace(sel.First().Text())
	if text == "" {
		return "", false
	}
	return text, true
}

// escapeID handles the dotted/colon ASP.NET-style control ids
// (e.g. "ctl00$ContentPlaceHolder1$lblContractingAuthority" rendered
// as an id with '$' replaced by '_') that e-nabavki's server controls
// use; goquery/cascadia requires escaping CSS-special characters.
func escapeID(id string) string {
	replacer := strings.NewReplacer(
		".", `\.`,
		":", `\:`,
		"$", `\$`,
	)
	return replacer.Replace(id)
}

func (e *Extractor) bySelector(selector string) (string, bool) {
	sel := e.doc.Find(selector)
	text := strings.TrimSpace(sel.First().Text())
	if text == "" {
		return "", false
	}
	return text, true
}

// byLabel locates a label element whose visible text matches one of
// phrases, then extracts the value in the order valueFromLabelTarget
// tries: the label's own text after the phrase, its "for" target, the
// next sibling, and finally the parent container's remaining text.
func (e *Extractor) byLabel(phrases []string) (string, bool) {
	var found string
	e.doc.Find("label, .label, dt, th, span, td, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		for _, phrase := range phrases {
			if !strings.Contains(text, phrase) {
				continue
			}
			if v, ok := valueFromLabelTarget(s, phrase); ok {
				found = v
				return false
			}
		}
		return true
	})
	if found == "" {
		return "", false
	}
	return found, true
}

// valueFromLabelTarget tries, in order: (1) the same element's own text
// with the matched phrase stripped off — the common case where label
// and value share one container ("Статус: Отворен" in a single div);
// (2) a "for"-targeted element (real <label for="..."> controls);
// (3) the next sibling element's text; (4) the parent container's text
// with the label's own full text stripped off.
func valueFromLabelTarget(label *goquery.Selection, phrase string) (string, bool) {
	ownText := strings.TrimSpace(label.Text())
	if idx := strings.Index(ownText, phrase); idx >= 0 {
		remainder := ownText[idx+len(phrase):]
		remainder = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(remainder), ":"))
		if remainder != "" && remainder != ownText {
			return remainder, true
		}
	}
	if forID, ok := label.Attr("for"); ok && forID != "" {
		target := label.Parents().Last().Find("#" + escapeID(forID))
		if v := strings.TrimSpace(target.First().Text()); v != "" {
			return v, true
		}
	}
	if next := label.Next(); next.Length() > 0 {
		if v := strings.TrimSpace(next.Text()); v != "" {
			return v, true
		}
	}
	if parent := label.Parent(); parent.Length() > 0 {
		siblingText := strings.TrimSpace(parent.Text())
		remainder := strings.TrimSpace(strings.TrimPrefix(siblingText, ownText))
		remainder = strings.TrimPrefix(remainder, ":")
		remainder = strings.TrimSpace(remainder)
		if remainder != "" {
			return remainder, true
		}
	}
	return "", false
}

func (e *Extractor) byRegex(re *regexp.Regexp) (string, bool) {
	m := re.FindStringSubmatch(e.rawText)
	if m == nil {
		return "", false
	}
	if len(m) > 1 {
		return strings.TrimSpace(m[1]), true
	}
	return strings.TrimSpace(m[0]), true
}
