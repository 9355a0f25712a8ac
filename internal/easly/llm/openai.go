package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultOpenAIBase  = "https://api.openai.com/v1"
	defaultOpenAIModel = "gpt-4o-mini"
	defaultLocalBase   = "http://localhost:11434/v1"
	defaultLocalModel  = "llama3.1"
)

// OpenAIConfig configures an OpenAI-compatible chat completions endpoint.
type OpenAIConfig struct {
	// Name labels the provider in replies and logs ("openai", "local").
	Name string
	// APIKey is sent as a bearer token. Local endpoints may leave it empty.
	APIKey string
	// BaseURL overrides the API root, e.g. an Ollama server.
	BaseURL string
	Model   string
	// RequireKey makes an empty APIKey a configuration error.
	RequireKey bool
	Client     *http.Client
}

type openAIProvider struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAI returns a provider for api.openai.com. It returns nil when apiKey
// is empty so the caller can pass the result straight to NewChain.
func NewOpenAI(apiKey, model string) Provider {
	if apiKey == "" {
		return nil
	}
	return NewOpenAICompatible(OpenAIConfig{Name: "openai", APIKey: apiKey, Model: model, RequireKey: true})
}

// NewLocal returns a provider for a local OpenAI-compatible server such as
// Ollama. It returns nil when baseURL is empty.
func NewLocal(baseURL, model string) Provider {
	if baseURL == "" {
		return nil
	}
	return NewOpenAICompatible(OpenAIConfig{Name: "local", BaseURL: baseURL, Model: model})
}

// NewOpenAICompatible returns a provider for any chat completions endpoint.
func NewOpenAICompatible(cfg OpenAIConfig) Provider {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBase
		if cfg.Name == "local" {
			cfg.BaseURL = defaultLocalBase
		}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
		if cfg.Name == "local" {
			cfg.Model = defaultLocalModel
		}
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &openAIProvider{cfg: cfg, client: client}
}

// --- minimal OpenAI wire types ---

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiRequest struct {
	Model          string       `json:"model"`
	Messages       []oaiMessage `json:"messages"`
	Temperature    float64      `json:"temperature"`
	MaxTokens      int          `json:"max_tokens,omitempty"`
	ResponseFormat *oaiFormat   `json:"response_format,omitempty"`
}

type oaiFormat struct {
	Type string `json:"type"` // "json_object"
}

type oaiResponse struct {
	Choices []struct {
		Message      oaiMessage `json:"message"`
		FinishReason string     `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (p *openAIProvider) Name() string { return p.cfg.Name }

func (p *openAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	if p.cfg.RequireKey && p.cfg.APIKey == "" {
		return "", fmt.Errorf("%s: %w", p.cfg.Name, ErrNotConfigured)
	}

	body := oaiRequest{
		Model:       p.cfg.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, oaiMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, oaiMessage{Role: string(m.Role), Content: m.Content})
	}
	if req.JSON {
		body.ResponseFormat = &oaiFormat{Type: "json_object"}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", p.cfg.Name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/chat/completions",
		bytes.NewReader(data),
	)
	if err != nil {
		return "", fmt.Errorf("%s: create http request: %w", p.cfg.Name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s: http request: %w", p.cfg.Name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%s: read response body: %w", p.cfg.Name, err)
	}

	var oaiResp oaiResponse
	decodeErr := json.Unmarshal(respBody, &oaiResp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := ""
		if decodeErr == nil && oaiResp.Error != nil {
			detail = oaiResp.Error.Message
		}
		return "", statusError(p.cfg.Name, resp.StatusCode, detail)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%s: decode API response: %w: %w", p.cfg.Name, ErrUnavailable, decodeErr)
	}
	if oaiResp.Error != nil {
		return "", fmt.Errorf("%s: API error (%s): %s: %w", p.cfg.Name, oaiResp.Error.Type, oaiResp.Error.Message, ErrUnavailable)
	}
	if len(oaiResp.Choices) == 0 || strings.TrimSpace(oaiResp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%s: %w", p.cfg.Name, ErrEmptyResponse)
	}
	return oaiResp.Choices[0].Message.Content, nil
}
