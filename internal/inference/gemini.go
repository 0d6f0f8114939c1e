package inference

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiService is the concrete Service implementation backed by the Gemini
// API. A single model handles vision QA, captioning, classification and chat;
// sampling parameters are fixed so identical inputs behave reproducibly
// modulo the model itself.
type GeminiService struct {
	client *genai.Client
	model  string
}

// NewGeminiService creates a Gemini-backed inference service. Credentials are
// resolved from the environment by the genai client.
func NewGeminiService(ctx context.Context, model string) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiService: create genai client: %w", err)
	}
	return &GeminiService{client: client, model: model}, nil
}

func (s *GeminiService) config() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	}
}

// AskImage answers a targeted question about the image.
func (s *GeminiService) AskImage(ctx context.Context, image []byte, mimeType, question string) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: question + " Answer with only the value, no explanation. If it is not visible, answer with an empty string."},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
			},
		},
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, s.config())
	if err != nil {
		return "", fmt.Errorf("AskImage: generate content: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// CaptionImage returns a free-form description of the image.
func (s *GeminiService) CaptionImage(ctx context.Context, image []byte, mimeType string) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: "Describe the text content of this image in one short paragraph, including any merchant name, amounts and dates you can read."},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
			},
		},
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, s.config())
	if err != nil {
		return "", fmt.Errorf("CaptionImage: generate content: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// Classify performs zero-shot classification against the candidate labels.
// The model is instructed to answer with exactly one label; any answer not in
// the candidate set is an error so the caller can fall back.
func (s *GeminiService) Classify(ctx context.Context, text string, labels []string) (string, error) {
	prompt := fmt.Sprintf(
		"Classify the following expense into exactly one of these categories: %s.\n"+
			"Expense: %q\n"+
			"Answer with only the category name.",
		strings.Join(labels, ", "), text)

	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, s.config())
	if err != nil {
		return "", fmt.Errorf("Classify: generate content: %w", err)
	}

	answer := strings.TrimSpace(resp.Text())
	for _, label := range labels {
		if strings.EqualFold(answer, label) {
			return label, nil
		}
	}
	return "", fmt.Errorf("Classify: model returned %q, not a candidate label", answer)
}

// Generate produces a completion for the prompt in a single call.
func (s *GeminiService) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, s.config())
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("Generate: empty response from model")
	}
	return text, nil
}

// GenerateStream consumes the model's streamed chunks until exhaustion and
// concatenates the text. The payloads are small, so there is no backpressure
// concern.
func (s *GeminiService) GenerateStream(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}

	var b strings.Builder
	for resp, err := range s.client.Models.GenerateContentStream(ctx, s.model, contents, s.config()) {
		if err != nil {
			return "", fmt.Errorf("GenerateStream: reading stream: %w", err)
		}
		b.WriteString(resp.Text())
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("GenerateStream: empty response from model")
	}
	return text, nil
}
