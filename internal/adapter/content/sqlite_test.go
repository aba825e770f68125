package content

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blograg/internal/domain"
)

func newTestContent(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "blog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedPost(t *testing.T, s *SQLiteStore, id, title, category, status string, tags ...string) {
	t.Helper()
	_, err := s.DB().Exec(
		`INSERT INTO posts (id, title, body, category, status, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, title, "body of "+id, category, status, time.Now().UTC())
	require.NoError(t, err)
	for _, tag := range tags {
		_, err := s.DB().Exec(`INSERT INTO post_tags (post_id, tag) VALUES (?, ?)`, id, tag)
		require.NoError(t, err)
	}
}

func TestGetPublishedDocument(t *testing.T) {
	s := newTestContent(t)
	seedPost(t, s, "p1", "First", "tech", "published", "go", "testing")
	seedPost(t, s, "p2", "Draft", "tech", "draft")

	doc, err := s.GetPublishedDocument(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "First", doc.Title)
	assert.Equal(t, "tech", doc.Category)
	assert.Equal(t, []string{"go", "testing"}, doc.Tags)

	_, err = s.GetPublishedDocument(context.Background(), "p2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.GetPublishedDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListPublishedDocumentsOrderedByID(t *testing.T) {
	s := newTestContent(t)
	seedPost(t, s, "b", "B", "tech", "published")
	seedPost(t, s, "a", "A", "life", "published")
	seedPost(t, s, "c", "C", "tech", "draft")

	docs, err := s.ListPublishedDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
}

func TestListCandidatesByCategoryOrTags(t *testing.T) {
	s := newTestContent(t)
	seedPost(t, s, "a", "A", "tech", "published", "x", "y")
	seedPost(t, s, "b", "B", "tech", "published", "y")
	seedPost(t, s, "c", "C", "life", "published")
	seedPost(t, s, "d", "D", "life", "published", "x")
	seedPost(t, s, "e", "E", "tech", "draft", "x")

	docs, err := s.ListCandidatesByCategoryOrTags(context.Background(), "tech", []string{"x", "y"}, []string{"a"})
	require.NoError(t, err)

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"b", "d"}, ids)
}

func TestListCandidatesNoCriteria(t *testing.T) {
	s := newTestContent(t)
	seedPost(t, s, "a", "A", "tech", "published")

	docs, err := s.ListCandidatesByCategoryOrTags(context.Background(), "", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
