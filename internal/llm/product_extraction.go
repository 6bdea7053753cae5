package llm

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/firebase/genkit/go/ai"
	genkitcore "github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
)

// decimalFromFloat converts an LLM-reported price (major currency
// units, up to 2 decimal places) to a fixed-point Decimal.
func decimalFromFloat(v float64) domain.Decimal {
	minor := int64(math.Round(v * 100))
	return domain.Decimal{Units: minor}
}

// extractionTimeout bounds a single document's extraction call; the
// doc processor's per-job timeout wraps many documents, so one slow
// model response must not consume the whole budget.
const extractionTimeout = 45 * time.Second

// ProductExtractionRequest is the input to DefineProductExtractionFlow.
type ProductExtractionRequest struct {
	DocumentText string `json:"document_text" jsonschema:"description=Extracted or OCR'd text of the tender document"`
}

// ProductCandidate is one line item as returned by the model, before
// conversion to domain.ProductItem (which stores prices as fixed-point
// Decimal rather than float64).
type ProductCandidate struct {
	Name       string   `json:"name" jsonschema:"description=Item description"`
	Quantity   *float64 `json:"quantity,omitempty" jsonschema:"description=Quantity, if stated"`
	Unit       string   `json:"unit,omitempty" jsonschema:"description=Unit of measure, if stated"`
	UnitPrice  *float64 `json:"unit_price,omitempty" jsonschema:"description=Price per unit, if stated"`
	TotalPrice *float64 `json:"total_price,omitempty" jsonschema:"description=Total line price, if stated"`
	Category   string   `json:"category,omitempty" jsonschema:"description=Short category label, if inferable"`
}

// ProductExtractionResponse is the output of DefineProductExtractionFlow.
type ProductExtractionResponse struct {
	Products []ProductCandidate `json:"products" jsonschema:"description=Every distinct line item found in the document"`
}

// DefineProductExtractionFlow creates the Genkit flow that mines a
// document's text for its product/service line-item table.
func DefineProductExtractionFlow(
	g *genkit.Genkit,
	modelName string,
) *genkitcore.Flow[*ProductExtractionRequest, *ProductExtractionResponse, struct{}] {
	return genkit.DefineFlow(
		g,
		"productExtractionFlow",
		func(ctx context.Context, req *ProductExtractionRequest) (*ProductExtractionResponse, error) {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("context cancelled before product extraction: %w", err)
			}

			prompt := BuildProductExtractionPrompt(req)

			result, _, err := genkit.GenerateData[ProductExtractionResponse](
				ctx,
				g,
				ai.WithModelName(modelName),
				ai.WithPrompt(prompt),
				ai.WithMiddleware(getMiddlewares()...),
			)
			if err != nil {
				return nil, fmt.Errorf("product extraction LLM failed: %w", err)
			}
			return result, nil
		},
	)
}

// ProductExtractor adapts DefineProductExtractionFlow for the document
// processor. Construction is gated by config.LineItemExtractionEnabled;
// the doc processor simply skips this step (recording zero product
// items, not a failure) when no extractor is configured.
type ProductExtractor struct {
	flow *genkitcore.Flow[*ProductExtractionRequest, *ProductExtractionResponse, struct{}]
}

// NewProductExtractor wraps a Genkit app's product-extraction flow.
func NewProductExtractor(g *genkit.Genkit, modelName string) *ProductExtractor {
	if modelName == "" {
		modelName = DefaultModelName
	}
	return &ProductExtractor{flow: DefineProductExtractionFlow(g, modelName)}
}

// Extract runs the flow against documentText and converts the model's
// candidates into domain.ProductItem rows tagged with documentID and
// tenderID. A candidate with no name is dropped as noise.
func (p *ProductExtractor) Extract(ctx context.Context, documentText string, documentID, tenderID int64) ([]domain.ProductItem, error) {
	ctx, cancel := context.WithTimeout(ctx, extractionTimeout)
	defer cancel()

	resp, err := p.flow.Run(ctx, &ProductExtractionRequest{DocumentText: documentText})
	if err != nil {
		return nil, err
	}

	items := make([]domain.ProductItem, 0, len(resp.Products))
	for _, c := range resp.Products {
		if c.Name == "" {
			continue
		}
		item := domain.ProductItem{
			DocumentID: documentID,
			TenderID:   tenderID,
			Name:       c.Name,
			Unit:       c.Unit,
			Category:   c.Category,
		}
		if c.Quantity != nil {
			item.Quantity = *c.Quantity
		}
		if c.UnitPrice != nil {
			d := decimalFromFloat(*c.UnitPrice)
			item.UnitPrice = &d
		}
		if c.TotalPrice != nil {
			d := decimalFromFloat(*c.TotalPrice)
			item.TotalPrice = &d
		}
		items = append(items, item)
	}
	return items, nil
}
