package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blograg/internal/adapter/cache"
	"blograg/internal/domain"
)

func seedChunks(t *testing.T, vs interface {
	Upsert(chunks []domain.Chunk) error
}, chunks ...domain.Chunk) {
	t.Helper()
	require.NoError(t, vs.Upsert(chunks))
}

func vec(vals ...float32) []float32 {
	v := make([]float32, testDim)
	copy(v, vals)
	return v
}

func TestQueryVectorMode(t *testing.T) {
	provider := newFakeProvider()
	provider.fixedVector = vec(1)
	vs := newTestVectorStore(t)
	seedChunks(t, vs,
		domain.Chunk{ID: "c1", DocumentID: "d1", Title: "Post one", Text: "about go", Vector: vec(1)},
		domain.Chunk{ID: "c2", DocumentID: "d2", Title: "Post two", Text: "about tests", Vector: vec(0.5)},
	)

	q := NewQueryEngine(provider, provider, vs, nil, nil)
	answer, err := q.Query(context.Background(), "what is go?", QueryOptions{Limit: 5})
	require.NoError(t, err)

	assert.Equal(t, domain.AnswerModeVector, answer.Mode)
	assert.Equal(t, provider.answer, answer.Answer)
	assert.Equal(t, provider.tokens, answer.TokensUsed)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "d1", answer.Sources[0].DocumentID)
	assert.Equal(t, "Post one", answer.Sources[0].Title)
	assert.Greater(t, answer.Sources[0].Score, answer.Sources[1].Score)
}

func TestQueryEmptyIndexFallsBack(t *testing.T) {
	provider := newFakeProvider()
	vs := newTestVectorStore(t)

	q := NewQueryEngine(provider, provider, vs, nil, nil)
	answer, err := q.Query(context.Background(), "anything", QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.AnswerModeFallback, answer.Mode)
	assert.NotNil(t, answer.Sources)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, provider.answer, answer.Answer)
}

func TestQueryEmbedFailureFallsBack(t *testing.T) {
	provider := newFakeProvider()
	provider.failEmbedAll = true
	vs := newTestVectorStore(t)

	q := NewQueryEngine(provider, provider, vs, nil, nil)
	answer, err := q.Query(context.Background(), "anything", QueryOptions{})
	require.NoError(t, err, "a degraded retrieval must not fail the query")
	assert.Equal(t, domain.AnswerModeFallback, answer.Mode)
}

func TestQueryGenerationErrorPropagates(t *testing.T) {
	provider := newFakeProvider()
	provider.failChat = true
	vs := newTestVectorStore(t)

	q := NewQueryEngine(provider, provider, vs, nil, nil)
	_, err := q.Query(context.Background(), "anything", QueryOptions{})
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))
}

func TestQueryValidation(t *testing.T) {
	provider := newFakeProvider()
	q := NewQueryEngine(provider, provider, newTestVectorStore(t), nil, nil)

	_, err := q.Query(context.Background(), "   ", QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, provider.embedCalls)
}

func TestQueryDeduplicatesByDocument(t *testing.T) {
	provider := newFakeProvider()
	provider.fixedVector = vec(1)
	vs := newTestVectorStore(t)
	seedChunks(t, vs,
		domain.Chunk{ID: "c1", DocumentID: "d1", Title: "One", Text: "best chunk", Vector: vec(1)},
		domain.Chunk{ID: "c2", DocumentID: "d1", Title: "One", Text: "worse chunk", Vector: vec(0.9, 0.1)},
		domain.Chunk{ID: "c3", DocumentID: "d2", Title: "Two", Text: "other doc", Vector: vec(0.5)},
	)

	q := NewQueryEngine(provider, provider, vs, nil, nil)
	answer, err := q.Query(context.Background(), "question", QueryOptions{Limit: 10})
	require.NoError(t, err)

	require.Len(t, answer.Sources, 2, "chunks of the same document collapse into one source")
	assert.Equal(t, "d1", answer.Sources[0].DocumentID)
	assert.Equal(t, "d2", answer.Sources[1].DocumentID)
}

func TestQueryBudgetDropsLowestScoring(t *testing.T) {
	provider := newFakeProvider()
	provider.fixedVector = vec(1)
	vs := newTestVectorStore(t)
	long := strings.Repeat("filler words here ", 40)
	seedChunks(t, vs,
		domain.Chunk{ID: "c1", DocumentID: "d1", Title: "One", Text: long, Vector: vec(1)},
		domain.Chunk{ID: "c2", DocumentID: "d2", Title: "Two", Text: long, Vector: vec(0.5)},
	)

	q := NewQueryEngine(provider, provider, vs, nil, nil)
	answer, err := q.Query(context.Background(), "question", QueryOptions{Limit: 10, MaxTokens: 50})
	require.NoError(t, err)

	require.Len(t, answer.Sources, 1, "budget overflow drops the lowest-scoring chunk")
	assert.Equal(t, "d1", answer.Sources[0].DocumentID)
	assert.Equal(t, domain.AnswerModeVector, answer.Mode)
}

func TestRetrieveUsesCacheUntilInvalidated(t *testing.T) {
	provider := newFakeProvider()
	provider.fixedVector = vec(1)
	vs := newTestVectorStore(t)
	seedChunks(t, vs, domain.Chunk{ID: "c1", DocumentID: "d1", Title: "One", Text: "t", Vector: vec(1)})

	qc := cache.NewQueryCache(10, 0)
	q := NewQueryEngine(provider, provider, vs, qc, nil)

	_, err := q.Retrieve(context.Background(), "question", 5, nil)
	require.NoError(t, err)
	_, err = q.Retrieve(context.Background(), "question", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.embedCalls, "second retrieval must come from the cache")

	qc.Invalidate()
	_, err = q.Retrieve(context.Background(), "question", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.embedCalls)
}
