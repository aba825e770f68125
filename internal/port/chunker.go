package port

import "blograg/internal/domain"

// Chunker splits a document into retrieval units. It must be deterministic:
// the same document always yields byte-identical chunk texts.
type Chunker interface {
	Chunk(doc domain.Document) []domain.Chunk
}
