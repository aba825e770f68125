package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"blograg/internal/adapter/chunker"
	"blograg/internal/adapter/store"
	"blograg/internal/domain"
	"blograg/internal/port"
)

const testDim = 4

// fakeContent is an in-memory content store.
type fakeContent struct {
	docs map[string]domain.Document
}

func newFakeContent(docs ...domain.Document) *fakeContent {
	m := make(map[string]domain.Document, len(docs))
	for _, d := range docs {
		m[d.ID] = d
	}
	return &fakeContent{docs: m}
}

func (f *fakeContent) GetPublishedDocument(_ context.Context, id string) (domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return domain.Document{}, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return doc, nil
}

func (f *fakeContent) ListPublishedDocuments(_ context.Context) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(f.docs))
	for _, d := range f.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (f *fakeContent) ListCandidatesByCategoryOrTags(_ context.Context, category string, tags []string, excludeIDs []string) ([]domain.Document, error) {
	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}
	tagSet := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tagSet[tag] = struct{}{}
	}

	var out []domain.Document
	for _, doc := range f.docs {
		if _, ok := excluded[doc.ID]; ok {
			continue
		}
		match := category != "" && doc.Category == category
		for _, tag := range doc.Tags {
			if _, ok := tagSet[tag]; ok {
				match = true
				break
			}
		}
		if match {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakeProvider is a deterministic embedding + generation provider with
// call counting and failure injection.
type fakeProvider struct {
	embedCalls   int
	embedBatches [][]string
	failEmbedFor string // fail any batch containing this substring
	failEmbedAll bool
	fixedVector  []float32 // returned for every text when set

	answer   string
	tokens   int
	failChat bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{answer: "the deterministic answer", tokens: 21}
}

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.embedCalls++
	f.embedBatches = append(f.embedBatches, append([]string(nil), texts...))

	if f.failEmbedAll {
		return nil, &domain.ProviderError{Op: "embed", Err: fmt.Errorf("provider down")}
	}
	for _, t := range texts {
		if f.failEmbedFor != "" && strings.Contains(t, f.failEmbedFor) {
			return nil, &domain.ProviderError{Op: "embed", Err: fmt.Errorf("poisoned text")}
		}
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.fixedVector != nil {
			out[i] = append([]float32(nil), f.fixedVector...)
			continue
		}
		vec := make([]float32, testDim)
		for j, r := range t {
			if j >= testDim {
				break
			}
			vec[j] = float32(r) / 1000.0
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeProvider) Dimension() int    { return testDim }
func (f *fakeProvider) ModelName() string { return "fake" }

func (f *fakeProvider) Chat(_ context.Context, _ []port.ChatMessage, _ port.ChatOptions) (port.ChatResult, error) {
	if f.failChat {
		return port.ChatResult{}, &domain.ProviderError{Op: "chat", Err: fmt.Errorf("generation failed")}
	}
	return port.ChatResult{Content: f.answer, TokensUsed: f.tokens}, nil
}

func (f *fakeProvider) ChatStream(ctx context.Context, messages []port.ChatMessage, opts port.ChatOptions, fn func(delta string) error) (port.ChatResult, error) {
	result, err := f.Chat(ctx, messages, opts)
	if err != nil {
		return port.ChatResult{}, err
	}
	runes := []rune(result.Content)
	for pos := 0; pos < len(runes); pos += 3 {
		end := pos + 3
		if end > len(runes) {
			end = len(runes)
		}
		if err := fn(string(runes[pos:end])); err != nil {
			return port.ChatResult{}, err
		}
	}
	return result, nil
}

func newTestVectorStore(t *testing.T) *store.BoltStore {
	t.Helper()
	s, err := store.NewBoltStore(filepath.Join(t.TempDir(), "index.db"), testDim)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestIndexer(t *testing.T, content port.ContentStore, provider *fakeProvider) (*Indexer, *store.BoltStore) {
	t.Helper()
	vs := newTestVectorStore(t)
	ix := NewIndexer(content, vs, vs, provider, chunker.New(64, 8), nil, nil)
	return ix, vs
}
