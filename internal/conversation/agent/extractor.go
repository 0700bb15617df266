// Package agent adapts the language model to the conversation engine: intent
// extraction, reply writing, and a deterministic reply composer used when the
// model is unavailable.
package agent

import (
	"context"
	"fmt"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"booking_concierge_backend/internal/conversation/ports"
	"booking_concierge_backend/platform/ai/moonshot"
)

// Extractor asks the model for the extraction JSON.
type Extractor struct {
	llm model.LLM
}

var _ ports.Extractor = (*Extractor)(nil)

// NewExtractor creates an Extractor over any model.LLM.
func NewExtractor(llm model.LLM) *Extractor {
	return &Extractor{llm: llm}
}

// Extract returns the raw model output. Parsing and validation happen in the
// extraction service.
func (e *Extractor) Extract(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	req := jsonRequest(systemPrompt, userMessage)
	raw, err := moonshot.Text(e.llm.GenerateContent(ctx, req, false))
	if err != nil {
		return "", fmt.Errorf("extract intent via %s: %w", e.llm.Name(), err)
	}
	return raw, nil
}

func jsonRequest(systemPrompt, userMessage string) *model.LLMRequest {
	return &model.LLMRequest{
		Contents: []*genai.Content{
			genai.NewContentFromText(userMessage, genai.RoleUser),
		},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0),
			ResponseMIMEType:  "application/json",
		},
	}
}
