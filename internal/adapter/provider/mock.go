package provider

import (
	"context"
	"fmt"
	"strings"

	"blograg/internal/port"
)

// Mock is a deterministic offline provider. Embeddings derive from the text
// itself and generation echoes the question, so the engine can run and be
// tested without a backend.
type Mock struct {
	dimension int
}

// NewMock creates a mock provider with the given embedding dimension.
func NewMock(dimension int) *Mock {
	if dimension <= 0 {
		dimension = 64
	}
	return &Mock{dimension: dimension}
}

// Embed derives one vector per text from its leading runes.
func (m *Mock) Embed(_ context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, m.dimension)
		for j, r := range text {
			if j >= m.dimension {
				break
			}
			vec[j] = float32(r) / 1000.0
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// Chat produces a deterministic answer from the last user message.
func (m *Mock) Chat(_ context.Context, messages []port.ChatMessage, _ port.ChatOptions) (port.ChatResult, error) {
	question := lastUserMessage(messages)
	content := fmt.Sprintf("Mock answer to: %s", question)
	return port.ChatResult{Content: content, TokensUsed: len(strings.Fields(content))}, nil
}

// ChatStream emits the Chat answer in fixed-size fragments.
func (m *Mock) ChatStream(ctx context.Context, messages []port.ChatMessage, opts port.ChatOptions, fn func(delta string) error) (port.ChatResult, error) {
	result, err := m.Chat(ctx, messages, opts)
	if err != nil {
		return port.ChatResult{}, err
	}

	const fragment = 8
	runes := []rune(result.Content)
	for pos := 0; pos < len(runes); pos += fragment {
		if err := ctx.Err(); err != nil {
			return port.ChatResult{}, err
		}
		end := pos + fragment
		if end > len(runes) {
			end = len(runes)
		}
		if err := fn(string(runes[pos:end])); err != nil {
			return port.ChatResult{}, err
		}
	}

	return result, nil
}

// Dimension returns the embedding vector dimension.
func (m *Mock) Dimension() int { return m.dimension }

// ModelName returns the name of the embedding model.
func (m *Mock) ModelName() string { return "mock" }

func lastUserMessage(messages []port.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
