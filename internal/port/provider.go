package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// ChatMessage is a single message in a generation conversation.
// Role is one of "system", "user" or "assistant".
type ChatMessage struct {
	Role    string
	Content string
}

// ChatOptions configures a generation call.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}

// ChatResult carries the generated text and the provider-reported usage.
type ChatResult struct {
	Content    string
	TokensUsed int
}

// Generator produces text from a conversation, synchronously or as an
// incremental stream.
type Generator interface {
	// Chat generates a completion for the conversation.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (ChatResult, error)

	// ChatStream generates a completion, invoking fn with each incremental
	// text fragment as it arrives. Fragments never overlap; concatenated in
	// call order they form the full answer. A non-nil error from fn aborts
	// the stream. The returned result carries the full content and usage.
	ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions, fn func(delta string) error) (ChatResult, error)
}

// Provider bundles the two capabilities of an embedding/generation backend.
type Provider interface {
	Embedder
	Generator
}
