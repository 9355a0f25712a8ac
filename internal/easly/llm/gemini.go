package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-1.5-flash"

// geminiProvider creates its client on first use so construction never
// touches the network. A failed creation is retried on the next call.
type geminiProvider struct {
	apiKey  string
	model   string
	baseURL string

	newClient func(context.Context, *genai.ClientConfig) (*genai.Client, error)

	mu     sync.Mutex
	client *genai.Client
}

// NewGemini returns a provider backed by the Gemini API, or nil when apiKey
// is empty.
func NewGemini(apiKey, model string) Provider {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &geminiProvider{apiKey: apiKey, model: model, newClient: genai.NewClient}
}

func (p *geminiProvider) Name() string { return "gemini" }

func (p *geminiProvider) clientFor(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	cfg := &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}
	c, err := p.newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p.client = c
	return c, nil
}

func (p *geminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	client, err := p.clientFor(ctx)
	if err != nil {
		return "", fmt.Errorf("gemini: create client: %w: %w", ErrNotConfigured, err)
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", statusError("gemini", apiErr.Code, apiErr.Message)
		}
		return "", fmt.Errorf("gemini: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return text, nil
}
