package inference

import (
	"context"
)

// Service provides the hosted-model operations the application delegates to.
// The interface enables mocking in tests; the Gemini implementation is the
// only production one.
type Service interface {
	// AskImage answers a targeted question about an image (document QA).
	AskImage(ctx context.Context, image []byte, mimeType, question string) (string, error)

	// CaptionImage returns a free-form text description of an image.
	CaptionImage(ctx context.Context, image []byte, mimeType string) (string, error)

	// Classify performs zero-shot classification of text against candidate
	// labels and returns the highest-scoring label.
	Classify(ctx context.Context, text string, labels []string) (string, error)

	// Generate produces a chat completion for the prompt in one call.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateStream produces a chat completion by consuming the model's
	// token stream until exhaustion and concatenating the chunks.
	GenerateStream(ctx context.Context, prompt string) (string, error)
}
