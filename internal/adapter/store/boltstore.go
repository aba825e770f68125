package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"blograg/internal/domain"
	"blograg/internal/port"
)

var (
	bucketVectors = []byte("vectors")
	bucketRecords = []byte("records")
	bucketMeta    = []byte("meta")
	keyVersion    = []byte("schema_version")
)

// schemaVersion is bumped whenever the stored chunk layout changes.
// A mismatch on open clears the store; callers rebuild it via reindex.
const schemaVersion = 1

// BoltStore persists chunks and index records in BoltDB and mirrors the
// vectors in memory for brute-force cosine search. Reads run concurrently;
// writes are serialized by the mutex and commit in a single transaction, so
// a reader never observes a partially applied multi-chunk write.
type BoltStore struct {
	db        *bbolt.DB
	dimension int
	mu        sync.RWMutex
	chunks    map[string]*chunkEntry
	byDoc     map[string]map[string]struct{}
	nextIns   uint64
}

type chunkEntry struct {
	chunk domain.Chunk
	ins   uint64
}

type storedChunk struct {
	DocumentID string    `json:"doc_id"`
	Seq        int       `json:"seq"`
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"v"`
	CreatedAt  time.Time `json:"created_at"`
	Ins        uint64    `json:"ins"`
}

type storedRecord struct {
	Fingerprint string    `json:"fingerprint"`
	IndexedAt   time.Time `json:"indexed_at"`
	ChunkCount  int       `json:"chunk_count"`
}

// NewBoltStore opens or creates the store at path. dimension is the expected
// embedding width; zero disables the dimension check.
func NewBoltStore(path string, dimension int) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	s := &BoltStore{
		db:        db,
		dimension: dimension,
		chunks:    make(map[string]*chunkEntry),
		byDoc:     make(map[string]map[string]struct{}),
		nextIns:   1,
	}

	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.loadChunks(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}

	return s, nil
}

func (s *BoltStore) ensureSchema() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketVectors, bucketRecords, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}

		meta := tx.Bucket(bucketMeta)
		stored := meta.Get(keyVersion)
		if stored != nil && binary.BigEndian.Uint64(stored) == schemaVersion {
			return nil
		}
		if stored != nil {
			// Layout changed: drop everything, the indexer rebuilds it.
			for _, b := range [][]byte{bucketVectors, bucketRecords} {
				if err := tx.DeleteBucket(b); err != nil {
					return err
				}
				if _, err := tx.CreateBucket(b); err != nil {
					return err
				}
			}
		}

		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], schemaVersion)
		return meta.Put(keyVersion, buf[:])
	})
}

func (s *BoltStore) loadChunks() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).ForEach(func(k, v []byte) error {
			var sc storedChunk
			if err := json.Unmarshal(v, &sc); err != nil {
				return nil // skip corrupted entries
			}
			id := string(k)
			s.chunks[id] = &chunkEntry{
				chunk: domain.Chunk{
					ID:         id,
					DocumentID: sc.DocumentID,
					Seq:        sc.Seq,
					Title:      sc.Title,
					Text:       sc.Text,
					Vector:     sc.Vector,
					CreatedAt:  sc.CreatedAt,
				},
				ins: sc.Ins,
			}
			s.addToDoc(sc.DocumentID, id)
			if sc.Ins >= s.nextIns {
				s.nextIns = sc.Ins + 1
			}
			return nil
		})
	})
}

// Upsert inserts or replaces chunks by id in a single transaction.
func (s *BoltStore) Upsert(chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if s.dimension > 0 && len(c.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(c.Vector))
		}
	}

	staged := make(map[string]uint64, len(chunks))
	ins := s.nextIns
	for _, c := range chunks {
		if existing, ok := s.chunks[c.ID]; ok {
			staged[c.ID] = existing.ins
			continue
		}
		staged[c.ID] = ins
		ins++
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, c := range chunks {
			if err := putChunk(b, c, staged[c.ID]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, c := range chunks {
		s.chunks[c.ID] = &chunkEntry{chunk: c, ins: staged[c.ID]}
		s.addToDoc(c.DocumentID, c.ID)
	}
	s.nextIns = ins

	return nil
}

// ReplaceDocument atomically swaps a document's chunk set.
func (s *BoltStore) ReplaceDocument(documentID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if s.dimension > 0 && len(c.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(c.Vector))
		}
		if c.DocumentID != documentID {
			return fmt.Errorf("chunk %s belongs to document %s, not %s", c.ID, c.DocumentID, documentID)
		}
	}

	old := s.byDoc[documentID]
	ins := s.nextIns

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for id := range old {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		for i, c := range chunks {
			if err := putChunk(b, c, ins+uint64(i)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for id := range old {
		delete(s.chunks, id)
	}
	delete(s.byDoc, documentID)
	for i, c := range chunks {
		s.chunks[c.ID] = &chunkEntry{chunk: c, ins: ins + uint64(i)}
		s.addToDoc(documentID, c.ID)
	}
	s.nextIns = ins + uint64(len(chunks))

	return nil
}

// DeleteByDocument removes all chunks of a document and returns the count.
func (s *BoltStore) DeleteByDocument(documentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byDoc[documentID]
	if len(ids) == 0 {
		return 0, nil
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	count := len(ids)
	for id := range ids {
		delete(s.chunks, id)
	}
	delete(s.byDoc, documentID)

	return count, nil
}

// Search finds the k most similar chunks by cosine similarity, ties broken
// by insertion order.
func (s *BoltStore) Search(query []float32, k int, filter *port.SearchFilter) ([]domain.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.chunks) == 0 {
		return nil, nil
	}

	type scored struct {
		entry *chunkEntry
		score float64
	}

	candidates := make([]scored, 0, len(s.chunks))
	for _, e := range s.chunks {
		if filter != nil && filter.ExcludeDocumentID != "" && e.chunk.DocumentID == filter.ExcludeDocumentID {
			continue
		}
		candidates = append(candidates, scored{entry: e, score: cosineSimilarity(query, e.chunk.Vector)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entry.ins < candidates[j].entry.ins
	})

	if k > len(candidates) {
		k = len(candidates)
	}

	hits := make([]domain.SearchHit, k)
	for i := 0; i < k; i++ {
		c := candidates[i].entry.chunk
		hits[i] = domain.SearchHit{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Title:      c.Title,
			Text:       c.Text,
			Score:      candidates[i].score,
		}
	}

	return hits, nil
}

// PutRecord writes or replaces a document's index record.
func (s *BoltStore) PutRecord(rec domain.IndexRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(storedRecord{
			Fingerprint: rec.Fingerprint,
			IndexedAt:   rec.IndexedAt,
			ChunkCount:  rec.ChunkCount,
		})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketRecords).Put([]byte(rec.DocumentID), data)
	})
}

// GetRecord returns the index record for a document, if any.
func (s *BoltStore) GetRecord(documentID string) (domain.IndexRecord, bool, error) {
	var rec domain.IndexRecord
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRecords).Get([]byte(documentID))
		if data == nil {
			return nil
		}
		var sr storedRecord
		if err := json.Unmarshal(data, &sr); err != nil {
			return err
		}
		rec = domain.IndexRecord{
			DocumentID:  documentID,
			Fingerprint: sr.Fingerprint,
			IndexedAt:   sr.IndexedAt,
			ChunkCount:  sr.ChunkCount,
		}
		found = true
		return nil
	})
	return rec, found, err
}

// DeleteRecord removes a document's index record. Missing records are fine.
func (s *BoltStore) DeleteRecord(documentID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRecords).Delete([]byte(documentID))
	})
}

// ListRecords returns all index records.
func (s *BoltStore) ListRecords() ([]domain.IndexRecord, error) {
	var recs []domain.IndexRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			var sr storedRecord
			if err := json.Unmarshal(v, &sr); err != nil {
				return err
			}
			recs = append(recs, domain.IndexRecord{
				DocumentID:  string(k),
				Fingerprint: sr.Fingerprint,
				IndexedAt:   sr.IndexedAt,
				ChunkCount:  sr.ChunkCount,
			})
			return nil
		})
	})
	return recs, err
}

// Count returns the number of stored chunks.
func (s *BoltStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) addToDoc(documentID, chunkID string) {
	ids, ok := s.byDoc[documentID]
	if !ok {
		ids = make(map[string]struct{})
		s.byDoc[documentID] = ids
	}
	ids[chunkID] = struct{}{}
}

func putChunk(b *bbolt.Bucket, c domain.Chunk, ins uint64) error {
	data, err := json.Marshal(storedChunk{
		DocumentID: c.DocumentID,
		Seq:        c.Seq,
		Title:      c.Title,
		Text:       c.Text,
		Vector:     c.Vector,
		CreatedAt:  c.CreatedAt,
		Ins:        ins,
	})
	if err != nil {
		return err
	}
	return b.Put([]byte(c.ID), data)
}

// cosineSimilarity calculates the cosine similarity between two vectors.
// A zero-norm or mismatched vector yields 0, never NaN.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
