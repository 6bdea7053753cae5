package risk

import (
	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
	"github.com/macedonia-transparency/procurement-pipeline/internal/features"
	"github.com/macedonia-transparency/procurement-pipeline/internal/logging"
)

var log = logging.For("risk")

// Analyzer runs every published rule against a tender's feature
// vector, assembles an explanation for each raised flag, and validates
// the result before returning. It is deterministic given the same
// tender/feature/threshold inputs (spec.md §8's core testable
// property), independent of whether polisher is configured.
type Analyzer struct {
	thresholds Thresholds
	rules      []Rule
	polisher   ExplanationPolisher
}

// NewAnalyzer builds an Analyzer with the published default thresholds
// and rule set. polisher may be nil.
func NewAnalyzer(polisher ExplanationPolisher) *Analyzer {
	return &Analyzer{
		thresholds: DefaultThresholds(),
		rules:      AllRules(),
		polisher:   polisher,
	}
}

// Analyze runs all rules plus the data-integrity check against t and
// f, returning every flag that fired, each with Explanation filled and
// Validate already passed.
func (a *Analyzer) Analyze(t *domain.Tender, f features.TenderFeatures) []*domain.RiskFlag {
	var flags []*domain.RiskFlag

	if flag := CheckDataIntegrity(t); flag != nil {
		flags = append(flags, flag)
	}

	for _, rule := range a.rules {
		flag := rule(t, f, a.thresholds)
		if flag == nil {
			continue
		}
		Assemble(flag, a.polisher)
		if err := flag.Validate(); err != nil {
			log.WithFields(logging.Fields{"flag_type": flag.FlagType, "tender_id": t.ID, "error": err}).
				Error("rule produced an invalid flag, dropping")
			continue
		}
		flags = append(flags, flag)
	}

	return flags
}

func loggingFields(f *domain.RiskFlag, err error) logging.Fields {
	return logging.Fields{"flag_type": f.FlagType, "tender_id": f.TenderID, "error": err}
}
