package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"blograg/internal/adapter/analyzer"
	"blograg/internal/adapter/cache"
	"blograg/internal/domain"
	"blograg/internal/port"
)

const (
	defaultLimit     = 5
	defaultMaxTokens = 1024

	groundedSystemPrompt = `You are the question-answering assistant of a blog.
Answer using only the context passages provided in the user message.
If the context does not contain the answer, say so plainly.`

	fallbackSystemPrompt = `You are the question-answering assistant of a blog.
No relevant passages were found in the blog's index for this question.
Tell the reader that nothing in the blog covers it, then answer briefly
from general knowledge.`
)

// QueryOptions configures a single question.
type QueryOptions struct {
	// Limit is the number of chunks to retrieve.
	Limit int
	// MaxTokens bounds both the assembled context and the generated answer.
	MaxTokens int
	// Temperature is passed through to the generation provider.
	Temperature float64
}

func (o QueryOptions) withDefaults() QueryOptions {
	if o.Limit <= 0 {
		o.Limit = defaultLimit
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	return o
}

// QueryEngine answers natural-language questions grounded in retrieved
// chunks, synchronously or as an incremental stream.
type QueryEngine struct {
	embedder  port.Embedder
	generator port.Generator
	vectors   port.VectorStore
	cache     *cache.QueryCache
	tokenizer *analyzer.Tokenizer
	log       *slog.Logger
}

// NewQueryEngine creates a query engine. cache may be nil.
func NewQueryEngine(
	embedder port.Embedder,
	generator port.Generator,
	vectors port.VectorStore,
	queryCache *cache.QueryCache,
	log *slog.Logger,
) *QueryEngine {
	if log == nil {
		log = slog.Default()
	}
	return &QueryEngine{
		embedder:  embedder,
		generator: generator,
		vectors:   vectors,
		cache:     queryCache,
		tokenizer: analyzer.NewTokenizer(),
		log:       log,
	}
}

// Query answers a question. A failed or empty retrieval degrades to a
// generative fallback instead of failing; only generation errors propagate.
func (q *QueryEngine) Query(ctx context.Context, question string, opts QueryOptions) (domain.RAGAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.RAGAnswer{}, fmt.Errorf("question: %w", domain.ErrValidation)
	}
	opts = opts.withDefaults()

	hits := q.retrieveOrDegrade(ctx, question, opts)
	sources, messages, mode := q.assemble(question, hits, opts)

	result, err := q.generator.Chat(ctx, messages, port.ChatOptions{
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return domain.RAGAnswer{}, err
	}

	return domain.RAGAnswer{
		Answer:     result.Content,
		Sources:    sources,
		TokensUsed: result.TokensUsed,
		Mode:       mode,
	}, nil
}

// Retrieve embeds the question and searches the vector store. It is the
// retrieval primitive shared with the related-document resolver.
func (q *QueryEngine) Retrieve(ctx context.Context, question string, k int, filter *port.SearchFilter) ([]domain.SearchHit, error) {
	cacheable := filter == nil && q.cache != nil
	if cacheable {
		if hits, ok := q.cache.Get(question, k); ok {
			return hits, nil
		}
	}

	vectors, err := q.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, &domain.ProviderError{Op: "embed", Err: fmt.Errorf("empty embedding result")}
	}

	hits, err := q.vectors.Search(vectors[0], k, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	if cacheable {
		q.cache.Put(question, k, hits)
	}
	return hits, nil
}

func (q *QueryEngine) retrieveOrDegrade(ctx context.Context, question string, opts QueryOptions) []domain.SearchHit {
	hits, err := q.Retrieve(ctx, question, opts.Limit, nil)
	if err != nil {
		q.log.Warn("retrieval degraded to generative fallback", "error", err)
		return nil
	}
	return hits
}

// assemble deduplicates hits by document, fits them into the token budget
// and builds the conversation. Mode reflects whether any grounding survived.
func (q *QueryEngine) assemble(question string, hits []domain.SearchHit, opts QueryOptions) ([]domain.Source, []port.ChatMessage, domain.AnswerMode) {
	deduped := dedupeByDocument(hits)
	included := q.fitBudget(deduped, opts.MaxTokens)

	if len(included) == 0 {
		messages := []port.ChatMessage{
			{Role: "system", Content: fallbackSystemPrompt},
			{Role: "user", Content: question},
		}
		return []domain.Source{}, messages, domain.AnswerModeFallback
	}

	var ctxBlock strings.Builder
	sources := make([]domain.Source, 0, len(included))
	for i, hit := range included {
		fmt.Fprintf(&ctxBlock, "[%d] %s\n%s\n\n", i+1, hit.Title, hit.Text)
		sources = append(sources, domain.Source{
			DocumentID: hit.DocumentID,
			Title:      hit.Title,
			Score:      hit.Score,
		})
	}

	user := fmt.Sprintf("Context:\n\n%sQuestion: %s", ctxBlock.String(), question)
	messages := []port.ChatMessage{
		{Role: "system", Content: groundedSystemPrompt},
		{Role: "user", Content: user},
	}
	return sources, messages, domain.AnswerModeVector
}

// fitBudget drops the lowest-scoring chunks until the estimated context
// size fits the token budget. The best chunk always survives.
func (q *QueryEngine) fitBudget(hits []domain.SearchHit, budget int) []domain.SearchHit {
	used := 0
	for i, hit := range hits {
		tokens := q.tokenizer.CountTokens(hit.Text)
		if i > 0 && used+tokens > budget {
			return hits[:i]
		}
		used += tokens
	}
	return hits
}

// dedupeByDocument keeps only the highest-scoring chunk per document,
// preserving descending score order.
func dedupeByDocument(hits []domain.SearchHit) []domain.SearchHit {
	seen := make(map[string]struct{}, len(hits))
	out := make([]domain.SearchHit, 0, len(hits))
	for _, hit := range hits {
		if _, ok := seen[hit.DocumentID]; ok {
			continue
		}
		seen[hit.DocumentID] = struct{}{}
		out = append(out, hit)
	}
	return out
}
