// Package content adapts the blog's relational store into the engine's
// read-only published-documents view.
package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"blograg/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'draft',
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS post_tags (
	post_id TEXT NOT NULL,
	tag     TEXT NOT NULL,
	PRIMARY KEY (post_id, tag)
);
`

// SQLiteStore reads published posts from the blog's SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dsn and ensures the schema exists.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open content db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure content schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle for the hosting application.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// GetPublishedDocument loads one published post.
func (s *SQLiteStore) GetPublishedDocument(ctx context.Context, id string) (domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, body, category, updated_at FROM posts WHERE id = ? AND status = 'published'`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to load document %s: %w", id, err)
	}

	if err := s.loadTags(ctx, &doc); err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

// ListPublishedDocuments returns all published posts ordered by id.
func (s *SQLiteStore) ListPublishedDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, body, category, updated_at FROM posts WHERE status = 'published' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs, err := collectDocuments(rows)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if err := s.loadTags(ctx, &docs[i]); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// ListCandidatesByCategoryOrTags returns published posts sharing the category
// or any of the tags, excluding the given ids, ordered by id.
func (s *SQLiteStore) ListCandidatesByCategoryOrTags(ctx context.Context, category string, tags []string, excludeIDs []string) ([]domain.Document, error) {
	var conds []string
	var args []any

	if category != "" {
		conds = append(conds, "p.category = ?")
		args = append(args, category)
	}
	if len(tags) > 0 {
		conds = append(conds, fmt.Sprintf(
			"p.id IN (SELECT post_id FROM post_tags WHERE tag IN (%s))", placeholders(len(tags))))
		for _, tag := range tags {
			args = append(args, tag)
		}
	}
	if len(conds) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(
		`SELECT p.id, p.title, p.body, p.category, p.updated_at FROM posts p
		 WHERE p.status = 'published' AND (%s)`, strings.Join(conds, " OR "))

	if len(excludeIDs) > 0 {
		query += fmt.Sprintf(" AND p.id NOT IN (%s)", placeholders(len(excludeIDs)))
		for _, id := range excludeIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY p.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	docs, err := collectDocuments(rows)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if err := s.loadTags(ctx, &docs[i]); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func (s *SQLiteStore) loadTags(ctx context.Context, doc *domain.Document) error {
	rows, err := s.db.QueryContext(ctx, `SELECT tag FROM post_tags WHERE post_id = ? ORDER BY tag`, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to load tags for %s: %w", doc.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return err
		}
		doc.Tags = append(doc.Tags, tag)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (domain.Document, error) {
	var doc domain.Document
	var updatedAt time.Time
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Body, &doc.Category, &updatedAt); err != nil {
		return domain.Document{}, err
	}
	doc.UpdatedAt = updatedAt
	return doc, nil
}

func collectDocuments(rows *sql.Rows) ([]domain.Document, error) {
	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
