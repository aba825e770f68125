package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"blograg/internal/adapter/cache"
	"blograg/internal/domain"
	"blograg/internal/port"
)

// Indexer keeps the vector store consistent with the published corpus.
// It is the only component that writes to the vector store.
type Indexer struct {
	content  port.ContentStore
	vectors  port.VectorStore
	records  port.IndexRecordStore
	embedder port.Embedder
	chunker  port.Chunker
	cache    *cache.QueryCache
	log      *slog.Logger
}

// NewIndexer creates an indexer. cache may be nil; it is invalidated after
// every successful index write so queries never serve stale retrievals.
func NewIndexer(
	content port.ContentStore,
	vectors port.VectorStore,
	records port.IndexRecordStore,
	embedder port.Embedder,
	chunker port.Chunker,
	queryCache *cache.QueryCache,
	log *slog.Logger,
) *Indexer {
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{
		content:  content,
		vectors:  vectors,
		records:  records,
		embedder: embedder,
		chunker:  chunker,
		cache:    queryCache,
		log:      log,
	}
}

type indexOutcome int

const (
	outcomeIndexed indexOutcome = iota
	outcomeSkipped
)

// IndexDocument indexes one published document. With force false, a document
// whose fingerprint matches its index record is skipped.
func (ix *Indexer) IndexDocument(ctx context.Context, documentID string, force bool) error {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return fmt.Errorf("document id: %w", domain.ErrValidation)
	}

	doc, err := ix.content.GetPublishedDocument(ctx, documentID)
	if err != nil {
		return err
	}

	_, err = ix.indexDocument(ctx, doc, force)
	return err
}

func (ix *Indexer) indexDocument(ctx context.Context, doc domain.Document, force bool) (indexOutcome, error) {
	fp := Fingerprint(doc)

	if !force {
		rec, ok, err := ix.records.GetRecord(doc.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to read index record for %s: %w", doc.ID, err)
		}
		if ok && rec.Fingerprint == fp {
			ix.log.Debug("document up to date, skipping", "document", doc.ID)
			return outcomeSkipped, nil
		}
	}

	chunks := ix.chunker.Chunk(doc)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	// Embeddings are fetched before the store is touched: on provider
	// failure the previous chunk set survives unchanged.
	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, &domain.IndexingError{DocumentID: doc.ID, Err: err}
	}
	if len(vectors) != len(chunks) {
		return 0, &domain.IndexingError{
			DocumentID: doc.ID,
			Err:        fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(vectors)),
		}
	}

	now := time.Now().UTC()
	for i := range chunks {
		chunks[i].Vector = vectors[i]
		chunks[i].CreatedAt = now
	}

	if err := ix.vectors.ReplaceDocument(doc.ID, chunks); err != nil {
		return 0, &domain.IndexingError{DocumentID: doc.ID, Err: err}
	}
	if err := ix.records.PutRecord(domain.IndexRecord{
		DocumentID:  doc.ID,
		Fingerprint: fp,
		IndexedAt:   now,
		ChunkCount:  len(chunks),
	}); err != nil {
		return 0, &domain.IndexingError{DocumentID: doc.ID, Err: err}
	}

	if ix.cache != nil {
		ix.cache.Invalidate()
	}

	ix.log.Info("indexed document", "document", doc.ID, "chunks", len(chunks))
	return outcomeIndexed, nil
}

// ReindexAll indexes every published document in id order. Per-document
// failures are counted and logged, never aborting the remaining items.
// progress may be nil.
func (ix *Indexer) ReindexAll(ctx context.Context, force bool, progress func(done, total int)) (domain.ReindexSummary, error) {
	docs, err := ix.content.ListPublishedDocuments(ctx)
	if err != nil {
		return domain.ReindexSummary{}, fmt.Errorf("failed to list documents: %w", err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	var summary domain.ReindexSummary
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		outcome, err := ix.indexDocument(ctx, doc, force)
		switch {
		case err != nil:
			summary.Failed++
			ix.log.Warn("failed to index document", "document", doc.ID, "error", err)
		case outcome == outcomeSkipped:
			summary.Skipped++
		default:
			summary.Indexed++
		}

		if progress != nil {
			progress(i+1, len(docs))
		}
	}

	return summary, nil
}

// DeleteIndex removes a document's chunks and index record. Idempotent.
func (ix *Indexer) DeleteIndex(ctx context.Context, documentID string) error {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return fmt.Errorf("document id: %w", domain.ErrValidation)
	}

	count, err := ix.vectors.DeleteByDocument(documentID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks for %s: %w", documentID, err)
	}
	if err := ix.records.DeleteRecord(documentID); err != nil {
		return fmt.Errorf("failed to delete index record for %s: %w", documentID, err)
	}

	if ix.cache != nil {
		ix.cache.Invalidate()
	}

	ix.log.Info("deleted index", "document", documentID, "chunks", count)
	return nil
}

// Status reports how much of the published corpus is currently indexed.
// A document counts as indexed only if its record fingerprint matches the
// current body.
func (ix *Indexer) Status(ctx context.Context) (domain.IndexStatus, error) {
	docs, err := ix.content.ListPublishedDocuments(ctx)
	if err != nil {
		return domain.IndexStatus{}, fmt.Errorf("failed to list documents: %w", err)
	}

	recs, err := ix.records.ListRecords()
	if err != nil {
		return domain.IndexStatus{}, fmt.Errorf("failed to list index records: %w", err)
	}

	byDoc := make(map[string]domain.IndexRecord, len(recs))
	var last time.Time
	for _, rec := range recs {
		byDoc[rec.DocumentID] = rec
		if rec.IndexedAt.After(last) {
			last = rec.IndexedAt
		}
	}

	status := domain.IndexStatus{
		TotalDocuments: len(docs),
		LastIndexedAt:  last,
	}
	for _, doc := range docs {
		if rec, ok := byDoc[doc.ID]; ok && rec.Fingerprint == Fingerprint(doc) {
			status.IndexedDocuments++
		}
	}
	status.NeedsIndex = status.IndexedDocuments < status.TotalDocuments

	return status, nil
}

// Fingerprint hashes the text a document's chunks derive from. It changes
// with any edit to the title or body.
func Fingerprint(doc domain.Document) string {
	text := strings.TrimSpace(doc.Title + "\n\n" + doc.Body)
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
