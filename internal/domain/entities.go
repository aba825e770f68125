package domain

import "time"

// Document is a published content unit owned by the content store.
// The retrieval engine only ever reads it.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Chunk is a retrievable slice of a document's text paired with its
// embedding vector. Chunks are owned by the vector store.
type Chunk struct {
	ID         string
	DocumentID string
	Seq        int
	Title      string
	Text       string
	Vector     []float32
	CreatedAt  time.Time
}

// IndexRecord is per-document bookkeeping. A document is up to date iff a
// record exists whose fingerprint matches the current document body.
type IndexRecord struct {
	DocumentID  string
	Fingerprint string
	IndexedAt   time.Time
	ChunkCount  int
}

// SearchHit is a transient similarity result. Score is cosine similarity
// in [-1, 1], higher is more similar.
type SearchHit struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// AnswerMode reports which path produced a RAG answer.
type AnswerMode string

const (
	AnswerModeVector   AnswerMode = "vector"
	AnswerModeFallback AnswerMode = "generative-fallback"
)

// Source is a citation attached to an answer, deduplicated by document.
type Source struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
}

// RAGAnswer is the result of a question answered over the index.
type RAGAnswer struct {
	Answer     string     `json:"answer"`
	Sources    []Source   `json:"sources"`
	TokensUsed int        `json:"tokens_used"`
	Mode       AnswerMode `json:"mode"`
}

// RelatedMode reports which path ultimately filled a related-documents request.
type RelatedMode string

const (
	RelatedModeVector   RelatedMode = "vector"
	RelatedModeCategory RelatedMode = "category"
	RelatedModeTags     RelatedMode = "tags"
)

// RelatedResult holds neighbouring documents for a source document.
type RelatedResult struct {
	Documents []Document  `json:"documents"`
	Mode      RelatedMode `json:"mode"`
	Total     int         `json:"total"`
}

// ReindexSummary aggregates the outcome of a bulk reindex. Individual
// failures are counted, not propagated.
type ReindexSummary struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// IndexStatus describes how much of the published corpus is indexed.
type IndexStatus struct {
	TotalDocuments   int       `json:"total_documents"`
	IndexedDocuments int       `json:"indexed_documents"`
	NeedsIndex       bool      `json:"needs_index"`
	LastIndexedAt    time.Time `json:"last_indexed_at"`
}
