package llm

import "fmt"

// BuildProductExtractionPrompt asks the model to mine a tender
// document's extracted text for the line-item table a procurement
// specification or financial offer typically carries.
func BuildProductExtractionPrompt(req *ProductExtractionRequest) string {
	text := req.DocumentText
	const maxChars = 12000
	if len(text) > maxChars {
		text = text[:maxChars]
	}

	return fmt.Sprintf(
		`You are extracting the product/service line-item table from a North Macedonian public procurement document. The document text was produced by PDF text extraction or OCR and may contain layout noise, Macedonian or Albanian text, and broken table alignment.

=== DOCUMENT TEXT ===
%s

=== TASK ===
List every distinct product or service line item you can find, with:
- name: the item description
- quantity: a number (omit if not stated)
- unit: the unit of measure, e.g. "парче", "кг", "час" (omit if not stated)
- unit_price: price per unit in the document's stated currency, as a plain number with at most 2 decimal places (omit if not stated)
- total_price: total price for the line, as a plain number with at most 2 decimal places (omit if not stated)
- category: a short category label such as CPV division name, if inferable (omit otherwise)

Do not invent items that are not present in the text. If the document is not a specification or financial offer (e.g. it is a decision, minutes, or a contract notice with no itemized table), return an empty list rather than guessing.`,
		text,
	)
}
