package llm

import (
	"context"

	"google.golang.org/genai"
)

// NewGeminiAt points a Gemini provider at baseURL and lets tests wrap client
// creation.
func NewGeminiAt(apiKey, baseURL string, newClient func(context.Context, *genai.ClientConfig) (*genai.Client, error)) Provider {
	p := NewGemini(apiKey, "").(*geminiProvider)
	p.baseURL = baseURL
	if newClient != nil {
		p.newClient = newClient
	}
	return p
}
