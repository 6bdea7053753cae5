package risk

import (
	"fmt"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
)

// templateExplanation renders a deterministic, human-readable
// explanation for f from its evidence payload. This is always the
// fallback -- and, absent an LLM polish step, the final -- explanation
// text, since spec.md §8 requires the analyzer's flags be reproducible
// across runs independent of any optional LLM service's availability.
func templateExplanation(f *domain.RiskFlag) string {
	switch f.FlagType {
	case domain.FlagSingleBidder:
		return "Only one bidder submitted an offer for a procurement above the exemption threshold, limiting price competition."
	case domain.FlagRepeatWinner:
		return "A large share of this procuring entity's past awards have gone to the same winning bidder, beyond what competitive bidding alone would predict."
	case domain.FlagPriceAnomaly:
		return "The awarded value is a statistical outlier compared to similarly classified procurements."
	case domain.FlagBidClustering:
		return "The submitted bids are clustered implausibly close together, consistent with coordinated bidding."
	case domain.FlagShortDeadline:
		return "The window between publication and the submission deadline was unusually short, narrowing the field of bidders able to respond in time."
	case domain.FlagHighAmendments:
		return "The notice was amended an unusually high number of times after initial publication."
	case domain.FlagSpecRigging:
		return "The technical specification text closely matches a specification used in a past procurement by the same entity, suggesting it may have been drafted around a specific vendor's offering."
	case domain.FlagRelatedCompanies:
		return "Multiple bidders on this tender share a registered address, a pattern consistent with affiliated or shell entities simulating competition."
	case domain.FlagDataIntegrity:
		return f.Explanation
	default:
		return fmt.Sprintf("Flag %s raised with score %.2f.", f.FlagType, f.Score)
	}
}

// ExplanationPolisher optionally rewrites a flag's template
// explanation into more fluent prose without altering its
// type/score/severity/evidence. It must never be the sole source of
// an explanation: callers always compute the template first and fall
// back to it if the polisher errors or is unavailable, preserving the
// analyzer's determinism property even when an LLM backend is
// configured (internal/llm.ExplanationFlow implements this interface).
type ExplanationPolisher interface {
	Polish(flagType domain.FlagType, templateText string, evidence []byte) (string, error)
}

// Assemble fills f.Explanation with the deterministic template, then
// asks polisher (if non-nil) to improve its wording; a polisher error
// is logged and swallowed, never surfaced as an analysis failure.
func Assemble(f *domain.RiskFlag, polisher ExplanationPolisher) {
	f.Explanation = templateExplanation(f)
	if polisher == nil {
		return
	}
	polished, err := polisher.Polish(f.FlagType, f.Explanation, f.Evidence)
	if err != nil || polished == "" {
		log.WithFields(loggingFields(f, err)).Debug("explanation polish unavailable, using template")
		return
	}
	f.Explanation = polished
}
