package llm

import "fmt"

// BuildExplanationPrompt turns a risk flag's type, deterministic
// template text, and evidence JSON into a rewrite instruction. The
// model is told explicitly not to change any fact, only the prose.
func BuildExplanationPrompt(req *ExplanationPolishRequest) string {
	return fmt.Sprintf(
		`You are editing a one-paragraph explanation of a corruption-risk flag raised against a North Macedonian public procurement tender, for publication on a civic-transparency website.

Flag type: %s

Current explanation (this is the ground truth -- do not add, remove, or change any claim or number in it):
%s

Supporting evidence (JSON, for your context only, do not quote raw field names in the output):
%s

Rewrite the explanation in clear, plain English for a non-specialist reader. Keep it to one or two sentences. Do not invent any detail not already present in the current explanation or evidence. Do not speculate about intent, legality, or wrongdoing beyond what the current explanation already states.`,
		req.FlagType, req.TemplateText, string(req.Evidence),
	)
}
