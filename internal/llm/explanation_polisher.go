package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	genkitcore "github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
	"github.com/macedonia-transparency/procurement-pipeline/internal/logging"
)

var log = logging.For("llm")

// polishTimeout bounds a single polish call; risk.Assemble must never
// block the analyzer indefinitely on a slow or hung model backend.
const polishTimeout = 10 * time.Second

// ExplanationPolishRequest is the input to DefineExplanationPolishFlow.
type ExplanationPolishRequest struct {
	FlagType     domain.FlagType `json:"flag_type" jsonschema:"description=The risk flag's type identifier"`
	TemplateText string          `json:"template_text" jsonschema:"description=The deterministic template explanation to rewrite"`
	Evidence     json.RawMessage `json:"evidence" jsonschema:"description=Supporting evidence JSON for context"`
}

// ExplanationPolishResponse is the output of DefineExplanationPolishFlow.
type ExplanationPolishResponse struct {
	PolishedText string `json:"polished_text" jsonschema:"description=The rewritten, fact-preserving explanation"`
}

// DefineExplanationPolishFlow creates the Genkit flow that rewrites a
// template risk-flag explanation into more readable prose.
func DefineExplanationPolishFlow(
	g *genkit.Genkit,
	modelName string,
) *genkitcore.Flow[*ExplanationPolishRequest, *ExplanationPolishResponse, struct{}] {
	return genkit.DefineFlow(
		g,
		"explanationPolishFlow",
		func(ctx context.Context, req *ExplanationPolishRequest) (*ExplanationPolishResponse, error) {
			prompt := BuildExplanationPrompt(req)

			result, _, err := genkit.GenerateData[ExplanationPolishResponse](
				ctx,
				g,
				ai.WithModelName(modelName),
				ai.WithPrompt(prompt),
				ai.WithMiddleware(getMiddlewares()...),
			)
			if err != nil {
				return nil, fmt.Errorf("explanation polish LLM failed: %w", err)
			}
			return result, nil
		},
	)
}

// ExplanationFlow adapts DefineExplanationPolishFlow to
// risk.ExplanationPolisher. It is strictly non-authoritative: every
// call is bounded by polishTimeout, and any error or empty result is
// the caller's (risk.Assemble's) signal to keep the template text.
type ExplanationFlow struct {
	flow *genkitcore.Flow[*ExplanationPolishRequest, *ExplanationPolishResponse, struct{}]
}

// NewExplanationFlow wraps a Genkit app's explanation-polish flow. app
// must be non-nil; callers gate construction on
// config.LineItemExtractionEnabled (the same DOC_LLM_API_KEY covers
// both LLM assists) and pass a nil *ExplanationFlow to risk.NewAnalyzer
// otherwise.
func NewExplanationFlow(g *genkit.Genkit, modelName string) *ExplanationFlow {
	if modelName == "" {
		modelName = DefaultModelName
	}
	return &ExplanationFlow{flow: DefineExplanationPolishFlow(g, modelName)}
}

// Polish implements risk.ExplanationPolisher.
func (e *ExplanationFlow) Polish(flagType domain.FlagType, templateText string, evidence []byte) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), polishTimeout)
	defer cancel()

	resp, err := e.flow.Run(ctx, &ExplanationPolishRequest{
		FlagType:     flagType,
		TemplateText: templateText,
		Evidence:     evidence,
	})
	if err != nil {
		log.WithFields(logging.Fields{"flag_type": flagType, "error": err}).Debug("explanation polish flow failed")
		return "", err
	}
	return resp.PolishedText, nil
}
