package llm

import "github.com/firebase/genkit/go/ai"

// getMiddlewares returns the model middleware chain shared by every
// flow defined in this package. Empty for now -- a hook for request
// logging or response caching, not a promise that one is coming.
func getMiddlewares() []ai.ModelMiddleware {
	return nil
}
