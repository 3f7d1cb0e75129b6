package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const ollamaBaseURL = "http://localhost:11434"

// OllamaProvider implements the Provider interface for Ollama local models
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
	config     Config
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"` // Max tokens
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count,omitempty"`
	EvalCount       int           `json:"eval_count,omitempty"`
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	if config.Model == "" {
		return nil, errors.New("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}

	return &OllamaProvider{
		baseURL:    strings.TrimSuffix(pick(config.BaseURL, ollamaBaseURL), "/"),
		httpClient: newHTTPClient(config, 120*time.Second),
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable checks that Ollama answers the model listing
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	return ollamaReachable(ctx, p.httpClient, p.baseURL)
}

// Complete runs a non-streaming chat completion
func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	apiReq := ollamaChatRequest{
		Model:  pick(req.Model, p.config.Model),
		Stream: false,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  pick(req.MaxTokens, p.config.MaxTokens, 1024),
		},
	}
	if req.System != "" {
		apiReq.Messages = append(apiReq.Messages, ollamaMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		apiReq.Messages = append(apiReq.Messages, ollamaMessage{Role: m.Role, Content: m.Content})
	}

	var resp ollamaChatResponse
	if err := postJSON(ctx, p.httpClient, p.baseURL+"/api/chat", apiReq, &resp); err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return nil, errors.New("empty ollama response")
	}

	tokens := resp.PromptEvalCount + resp.EvalCount
	if tokens == 0 {
		tokens = len(text) / 4 // rough estimate when counts are missing
	}

	return &CompletionResponse{
		Text:       text,
		Model:      pick(resp.Model, apiReq.Model),
		TokensUsed: tokens,
	}, nil
}

// OllamaEmbedder creates embeddings with a local Ollama model
type OllamaEmbedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaEmbedder creates an embedder for baseURL and model
func NewOllamaEmbedder(baseURL, model string, timeout time.Duration) *OllamaEmbedder {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &OllamaEmbedder{
		baseURL:    strings.TrimSuffix(pick(baseURL, ollamaBaseURL), "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Embed returns the embedding for text
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp ollamaEmbeddingResponse
	err := postJSON(ctx, e.httpClient, e.baseURL+"/api/embeddings", ollamaEmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, errors.New("ollama returned an empty embedding")
	}
	return resp.Embedding, nil
}

// IsAvailable checks that the embedding endpoint is reachable
func (e *OllamaEmbedder) IsAvailable(ctx context.Context) bool {
	return ollamaReachable(ctx, e.httpClient, e.baseURL)
}

func ollamaReachable(ctx context.Context, client *http.Client, baseURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("ollama availability check failed", "url", baseURL, "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("ollama availability check failed", "url", baseURL, "status", resp.StatusCode)
		return false
	}
	return true
}

func postJSON(ctx context.Context, client *http.Client, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
