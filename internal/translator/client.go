package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/patente-app/backend/internal/config"
	"github.com/patente-app/backend/internal/httpx"
	"github.com/tidwall/gjson"
)

// LLMClient is the interface every translation backend satisfies.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw completion and token usage when reported.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// NewClient picks the backend named by cfg.TranslatorProvider.
func NewClient(cfg config.Config) (LLMClient, string) {
	switch strings.ToLower(cfg.TranslatorProvider) {
	case "anthropic":
		log.Println("Translator using Anthropic API:", cfg.AnthropicModel)
		return NewAPIClient(cfg.AnthropicAPIKey, cfg.AnthropicModel), cfg.AnthropicModel
	case "ollama":
		log.Printf("Translator using Ollama at %s: %s", cfg.OllamaURL, cfg.OllamaModel)
		return NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel), cfg.OllamaModel
	default:
		log.Println("Translator using mock data")
		return NewMockClient(), "mock"
	}
}

// ── APIClient: Anthropic SDK ───────────────────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
}

func NewAPIClient(apiKey, model string) *APIClient {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &APIClient{client: &client, model: model}
}

func (c *APIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   1024,
		Temperature: param.NewOpt(0.2),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      text,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("[translator] retrying Anthropic call in %v (attempt %d)", wait, attempt+1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		log.Printf("[translator] Anthropic attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── OllamaClient: local model server ───────────────────────

type OllamaClient struct {
	http    *http.Client
	baseURL string
	model   string
	policy  httpx.Policy
}

func NewOllamaClient(baseURL, model string) *OllamaClient {
	return &OllamaClient{
		http:    httpx.NewClient(2 * time.Minute),
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		policy:  httpx.DefaultPolicy,
	}
}

func (c *OllamaClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (*LLMResponse, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"model":  c.model,
		"system": systemPrompt,
		"prompt": userPrompt,
		"stream": false,
	})
	if err != nil {
		return nil, fmt.Errorf("encode ollama request: %w", err)
	}

	resp, err := httpx.Do(ctx, c.http, c.policy, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama generate: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ollama response: %w", err)
	}
	text := gjson.GetBytes(body, "response")
	if !text.Exists() || strings.TrimSpace(text.String()) == "" {
		return nil, fmt.Errorf("ollama response has no text")
	}
	return &LLMResponse{
		Content:      text.String(),
		PromptTokens: int(gjson.GetBytes(body, "prompt_eval_count").Int()),
		OutputTokens: int(gjson.GetBytes(body, "eval_count").Int()),
	}, nil
}

// ── MockClient: Local Development ──────────────────────────

type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (*LLMResponse, error) {
	return &LLMResponse{Content: "[fa] " + sourceText(userPrompt)}, nil
}
