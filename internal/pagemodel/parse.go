package pagemodel

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
)

// dateLayouts lists the date formats observed across e-nabavki and
// e-pazar dossier renderings, tried in order.
var dateLayouts = []string{
	"02.01.2006 15:04",
	"02.01.2006",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses raw against the known dossier date formats,
// returning (nil, nil) for an empty string rather than an error: a
// missing optional date is not an extraction failure.
func ParseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("pagemodel: unrecognized date format %q", raw)
}

// ParseMoney parses a European-formatted decimal ("1.234.567,89" or
// "1234567.89") into a domain.Decimal of minor units (cents/denari).
func ParseMoney(raw string) (*domain.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	normalized := normalizeNumeral(raw)
	parts := strings.SplitN(normalized, ".", 2)
	major, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("pagemodel: unparseable amount %q: %w", raw, err)
	}
	minor := int64(0)
	if len(parts) == 2 {
		frac := parts[1]
		if len(frac) == 1 {
			frac += "0"
		}
		if len(frac) > 2 {
			frac = frac[:2]
		}
		minor, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("pagemodel: unparseable fractional amount %q: %w", raw, err)
		}
	}
	d := domain.NewDecimalFromMajor(major, minor)
	return &d, nil
}

// normalizeNumeral converts European thousands/decimal separators
// ("1.234.567,89") into the "1234567.89" form strconv expects. When raw
// uses only dots it is already ambiguous between thousands-separator
// and decimal-point usage; we treat a single trailing ".NN" group (2
// digits) as the decimal point, anything else as a thousands separator.
func normalizeNumeral(raw string) string {
	raw = strings.ReplaceAll(raw, " ", "")
	if strings.Contains(raw, ",") {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.ReplaceAll(raw, ",", ".")
		return raw
	}
	dots := strings.Count(raw, ".")
	if dots <= 1 {
		return raw
	}
	lastDot := strings.LastIndex(raw, ".")
	if len(raw)-lastDot-1 == 2 {
		whole := strings.ReplaceAll(raw[:lastDot], ".", "")
		return whole + raw[lastDot:]
	}
	return strings.ReplaceAll(raw, ".", "")
}

// statusPhrases maps the rendered Macedonian status badge text to
// domain.Status; unrecognized text defaults to StatusOpen with the
// caller responsible for logging the miss via the extraction log.
var statusPhrases = map[string]domain.Status{
	"отворен":    domain.StatusOpen,
	"активен":    domain.StatusOpen,
	"во тек":     domain.StatusOpen,
	"затворен":   domain.StatusClosed,
	"завршен":    domain.StatusClosed,
	"доделен":    domain.StatusAwarded,
	"склучен":    domain.StatusAwarded,
	"поништен":   domain.StatusCancelled,
	"отказан":    domain.StatusCancelled,
}

// ParseStatus maps a rendered status badge to domain.Status.
func ParseStatus(raw string) (domain.Status, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for phrase, status := range statusPhrases {
		if strings.Contains(normalized, phrase) {
			return status, true
		}
	}
	return domain.StatusOpen, false
}

// ParseInt parses a rendered integer, stripping thousands separators,
// returning 0 for an empty string.
func ParseInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	raw = strings.ReplaceAll(raw, ".", "")
	raw = strings.ReplaceAll(raw, " ", "")
	return strconv.Atoi(raw)
}
