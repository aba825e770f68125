package port

import "blograg/internal/domain"

// SearchFilter restricts a similarity search by chunk metadata.
type SearchFilter struct {
	// ExcludeDocumentID drops all chunks belonging to this document.
	ExcludeDocumentID string
}

// VectorStore is the durable collection of embedded chunks. It is the only
// shared mutable resource in the engine: safe for concurrent readers, writes
// are serialized internally and commit atomically.
type VectorStore interface {
	// Upsert inserts or replaces chunks by id, all-or-nothing.
	Upsert(chunks []domain.Chunk) error

	// ReplaceDocument atomically swaps a document's chunk set: the old set
	// is removed and the new one inserted in a single commit, so a reader
	// sees either the pre- or post-replace state, never a mix.
	ReplaceDocument(documentID string, chunks []domain.Chunk) error

	// DeleteByDocument removes all chunks belonging to a document and
	// returns the number removed. Zero is not an error.
	DeleteByDocument(documentID string) (int, error)

	// Search returns up to k chunks ranked by descending cosine similarity.
	// Ties break by insertion order. filter may be nil.
	Search(query []float32, k int, filter *SearchFilter) ([]domain.SearchHit, error)
}

// IndexRecordStore keeps per-document indexing bookkeeping.
type IndexRecordStore interface {
	PutRecord(rec domain.IndexRecord) error

	// GetRecord returns the record for a document, reporting whether one exists.
	GetRecord(documentID string) (domain.IndexRecord, bool, error)

	DeleteRecord(documentID string) error

	ListRecords() ([]domain.IndexRecord, error)
}
