package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"blograg/internal/domain"
)

// DefaultChunker splits a document into fixed-size overlapping windows of
// runes over title + body. Splitting is purely positional, so unchanged
// content always produces byte-identical chunks.
type DefaultChunker struct {
	size    int
	overlap int
}

// New creates a chunker with the given window size and overlap, in runes.
func New(size, overlap int) *DefaultChunker {
	if size <= 0 {
		size = 800
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 8
	}
	return &DefaultChunker{size: size, overlap: overlap}
}

// Chunk splits the document into retrieval units. The title is prepended to
// the body so every window carries the document's subject.
func (c *DefaultChunker) Chunk(doc domain.Document) []domain.Chunk {
	text := strings.TrimSpace(doc.Title + "\n\n" + doc.Body)
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := c.size - c.overlap
	chunks := make([]domain.Chunk, 0, len(runes)/step+1)
	pos := 0
	seq := 0

	for {
		end := pos + c.size
		if end > len(runes) {
			end = len(runes)
		}
		part := string(runes[pos:end])
		chunks = append(chunks, domain.Chunk{
			ID:         chunkID(doc.ID, seq, part),
			DocumentID: doc.ID,
			Seq:        seq,
			Title:      doc.Title,
			Text:       part,
		})
		if end >= len(runes) {
			break
		}
		pos += step
		seq++
	}

	return chunks
}

func chunkID(docID string, seq int, text string) string {
	data := fmt.Sprintf("%s:%d:%s", docID, seq, text)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
