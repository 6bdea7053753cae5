// Package llm wires the two optional, non-authoritative language-model
// assists spec.md describes: polishing a risk flag's deterministic
// template explanation into more fluent prose, and extracting
// structured product/line-item data from a tender document's text.
// Both are built on firebase/genkit/go the way the teacher repo's
// internal/llm package used it (DefineFlow + GenerateData[T]), and
// both degrade to "unavailable" rather than failing the caller when no
// API key is configured -- config.LineItemExtractionEnabled gates the
// product-extraction path, and a nil ExplanationFlow simply isn't
// passed to risk.NewAnalyzer.
package llm

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
)

// DefaultModelName is the model used for both flows absent an
// override; callers may pass a different name to DefineExplanationPolishFlow
// or DefineProductExtractionFlow.
const DefaultModelName = "googleai/gemini-2.5-flash"

// NewApp initializes a Genkit app backed by the Google AI plugin. apiKey
// is the pipeline's DOC_LLM_API_KEY; callers should not construct an
// App at all when it is empty (see config.LineItemExtractionEnabled).
func NewApp(ctx context.Context, apiKey string) (*genkit.Genkit, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: cannot initialize genkit app without an API key")
	}
	app := genkit.Init(
		ctx,
		genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: apiKey}),
		genkit.WithDefaultModel(DefaultModelName),
	)
	return app, nil
}
