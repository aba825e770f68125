// Package provider implements the embedding/generation capability against
// OpenAI-compatible HTTP APIs (OpenAI, Ollama, DeepSeek and friends).
package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"blograg/internal/domain"
	"blograg/internal/port"
)

// Config configures an OpenAI-compatible client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	EmbedModel string
	ChatModel  string
	Dimension  int
	BatchSize  int
	Timeout    time.Duration
}

// OpenAIClient talks to an OpenAI-compatible embeddings + chat API.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	embedModel string
	chatModel  string
	dimension  int
	batchSize  int
	client     *http.Client
	// Streaming responses outlive any sane request timeout; cancellation
	// comes from the caller's context instead.
	streamClient *http.Client
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

type chatRequest struct {
	Model         string             `json:"model"`
	Messages      []port.ChatMessage `json:"messages"`
	MaxTokens     int                `json:"max_tokens,omitempty"`
	Temperature   float64            `json:"temperature,omitempty"`
	Stream        bool               `json:"stream,omitempty"`
	StreamOptions *streamOptions     `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage,omitempty"`
	Error *apiError  `json:"error,omitempty"`
}

type chatStreamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewOpenAIClient creates a client. The API key is read from the
// environment variable named in cfg; an empty key is allowed for local
// inference servers.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = defaultDimension(cfg.EmbedModel)
	}

	var apiKey string
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
	}

	return &OpenAIClient{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		embedModel:   cfg.EmbedModel,
		chatModel:    cfg.ChatModel,
		dimension:    cfg.Dimension,
		batchSize:    cfg.BatchSize,
		client:       &http.Client{Timeout: cfg.Timeout},
		streamClient: &http.Client{},
	}
}

func defaultDimension(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	case "nomic-embed-text":
		return 768
	case "all-minilm":
		return 384
	default:
		return 1536
	}
}

// Embed generates embeddings for the given texts, splitting the input into
// the minimal number of batched provider calls.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var all [][]float32
	for i := 0; i < len(texts); i += c.batchSize {
		end := i + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
	}

	return all, nil
}

func (c *OpenAIClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var resp embeddingResponse
	err := c.post(ctx, c.client, "/embeddings", embeddingRequest{Input: texts, Model: c.embedModel}, func(body io.Reader) error {
		return json.NewDecoder(body).Decode(&resp)
	})
	if err != nil {
		return nil, &domain.ProviderError{Op: "embed", Err: err}
	}
	if resp.Error != nil {
		return nil, &domain.ProviderError{Op: "embed", Err: fmt.Errorf("api error: %s", resp.Error.Message)}
	}
	if len(resp.Data) != len(texts) {
		return nil, &domain.ProviderError{Op: "embed", Err: fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))}
	}

	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(embeddings) {
			embeddings[d.Index] = d.Embedding
		}
	}

	return embeddings, nil
}

// Chat generates a completion for the conversation.
func (c *OpenAIClient) Chat(ctx context.Context, messages []port.ChatMessage, opts port.ChatOptions) (port.ChatResult, error) {
	req := chatRequest{
		Model:       c.chatModel,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	var resp chatResponse
	err := c.post(ctx, c.client, "/chat/completions", req, func(body io.Reader) error {
		return json.NewDecoder(body).Decode(&resp)
	})
	if err != nil {
		return port.ChatResult{}, &domain.ProviderError{Op: "chat", Err: err}
	}
	if resp.Error != nil {
		return port.ChatResult{}, &domain.ProviderError{Op: "chat", Err: fmt.Errorf("api error: %s", resp.Error.Message)}
	}
	if len(resp.Choices) == 0 {
		return port.ChatResult{}, &domain.ProviderError{Op: "chat", Err: fmt.Errorf("empty choices in response")}
	}

	result := port.ChatResult{Content: resp.Choices[0].Message.Content}
	if resp.Usage != nil {
		result.TokensUsed = resp.Usage.TotalTokens
	}

	return result, nil
}

// ChatStream generates a completion as a server-sent event stream, invoking
// fn with each content delta.
func (c *OpenAIClient) ChatStream(ctx context.Context, messages []port.ChatMessage, opts port.ChatOptions, fn func(delta string) error) (port.ChatResult, error) {
	req := chatRequest{
		Model:         c.chatModel,
		Messages:      messages,
		MaxTokens:     opts.MaxTokens,
		Temperature:   opts.Temperature,
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
	}

	var result port.ChatResult
	var content strings.Builder

	err := c.post(ctx, c.streamClient, "/chat/completions", req, func(body io.Reader) error {
		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				break
			}

			var event chatStreamEvent
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				return fmt.Errorf("malformed stream event: %w", err)
			}
			if event.Usage != nil {
				result.TokensUsed = event.Usage.TotalTokens
			}
			if len(event.Choices) == 0 {
				continue
			}
			delta := event.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			content.WriteString(delta)
			if err := fn(delta); err != nil {
				return err
			}
		}

		return scanner.Err()
	})
	if err != nil {
		return port.ChatResult{}, &domain.ProviderError{Op: "chat", Err: err}
	}

	result.Content = content.String()
	return result, nil
}

// Dimension returns the embedding vector dimension.
func (c *OpenAIClient) Dimension() int { return c.dimension }

// ModelName returns the name of the embedding model.
func (c *OpenAIClient) ModelName() string { return c.embedModel }

func (c *OpenAIClient) post(ctx context.Context, client *http.Client, path string, payload any, handle func(body io.Reader) error) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	return handle(resp.Body)
}
