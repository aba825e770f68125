package port

import (
	"context"

	"blograg/internal/domain"
)

// ContentStore is the engine's read-only view of the published corpus.
// Document persistence is owned by the surrounding application.
type ContentStore interface {
	// GetPublishedDocument loads one published document.
	// Returns domain.ErrNotFound if it does not exist or is unpublished.
	GetPublishedDocument(ctx context.Context, id string) (domain.Document, error)

	// ListPublishedDocuments returns all published documents ordered by id.
	ListPublishedDocuments(ctx context.Context) ([]domain.Document, error)

	// ListCandidatesByCategoryOrTags returns published documents sharing the
	// category or any of the tags, excluding the given ids.
	ListCandidatesByCategoryOrTags(ctx context.Context, category string, tags []string, excludeIDs []string) ([]domain.Document, error)
}
