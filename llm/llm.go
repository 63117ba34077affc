package llm

import "context"

// Client abstracts the vision LLM provider used by the diagnosis pipeline.
// Implementations must be concurrency-safe if used across goroutines.
type Client interface {
	// AnalyzeImage takes encoded JPEG bytes, sends them with the diagnostic
	// prompt, and returns the model's free-text completion. Any transport,
	// auth or quota failure surfaces as a single error; callers do not retry.
	AnalyzeImage(ctx context.Context, imageData []byte) (string, error)
	// SourceName returns a short provider label to persist with scan history
	// (e.g., "groq").
	SourceName() string
	// Configured reports whether the provider has credentials.
	Configured() bool
}
