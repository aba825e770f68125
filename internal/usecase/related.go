package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"blograg/internal/domain"
	"blograg/internal/port"
)

// RelatedOptions tunes the related-document resolver. The scoring weights
// are heuristic constants, not derived invariants; adjust freely.
type RelatedOptions struct {
	// TagWeight scores each shared tag between two documents.
	TagWeight float64
	// CategoryWeight scores a shared category.
	CategoryWeight float64
	// Overfetch multiplies the requested limit for the vector search, so
	// duplicates and the source itself can be dropped without starving
	// the result.
	Overfetch int
	// ExcerptRunes bounds the document text embedded for the lookup.
	ExcerptRunes int
}

func (o RelatedOptions) withDefaults() RelatedOptions {
	if o.TagWeight == 0 {
		o.TagWeight = 0.3
	}
	if o.CategoryWeight == 0 {
		o.CategoryWeight = 0.5
	}
	if o.Overfetch <= 0 {
		o.Overfetch = 3
	}
	if o.ExcerptRunes <= 0 {
		o.ExcerptRunes = 300
	}
	return o
}

// RelatedResolver finds neighbouring documents by vector similarity and
// degrades to category/tag overlap scoring when the vector path comes up
// short. It only fails if the content-store fallback itself fails.
type RelatedResolver struct {
	embedder port.Embedder
	vectors  port.VectorStore
	content  port.ContentStore
	opts     RelatedOptions
	log      *slog.Logger
}

// NewRelatedResolver creates a resolver.
func NewRelatedResolver(
	embedder port.Embedder,
	vectors port.VectorStore,
	content port.ContentStore,
	opts RelatedOptions,
	log *slog.Logger,
) *RelatedResolver {
	if log == nil {
		log = slog.Default()
	}
	return &RelatedResolver{
		embedder: embedder,
		vectors:  vectors,
		content:  content,
		opts:     opts.withDefaults(),
		log:      log,
	}
}

// Related returns up to limit documents related to the given one.
func (r *RelatedResolver) Related(ctx context.Context, documentID string, limit int) (domain.RelatedResult, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return domain.RelatedResult{}, fmt.Errorf("document id: %w", domain.ErrValidation)
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	source, err := r.content.GetPublishedDocument(ctx, documentID)
	if err != nil {
		return domain.RelatedResult{}, err
	}

	chosen := r.vectorNeighbors(ctx, source, limit)
	if len(chosen) >= limit {
		return domain.RelatedResult{
			Documents: chosen[:limit],
			Mode:      domain.RelatedModeVector,
			Total:     limit,
		}, nil
	}

	chosen, err = r.fillFromContentStore(ctx, source, chosen, limit)
	if err != nil {
		return domain.RelatedResult{}, err
	}

	return domain.RelatedResult{
		Documents: chosen,
		Mode:      r.fallbackMode(source),
		Total:     len(chosen),
	}, nil
}

// vectorNeighbors retrieves similar documents. Any failure on this path is
// logged and degrades to an empty result, never propagated.
func (r *RelatedResolver) vectorNeighbors(ctx context.Context, source domain.Document, limit int) []domain.Document {
	excerpt := excerptOf(source, r.opts.ExcerptRunes)

	vectors, err := r.embedder.Embed(ctx, []string{excerpt})
	if err != nil || len(vectors) == 0 {
		r.log.Warn("related: embedding failed, falling back", "document", source.ID, "error", err)
		return nil
	}

	hits, err := r.vectors.Search(vectors[0], limit*r.opts.Overfetch, &port.SearchFilter{
		ExcludeDocumentID: source.ID,
	})
	if err != nil {
		r.log.Warn("related: vector search failed, falling back", "document", source.ID, "error", err)
		return nil
	}

	var docs []domain.Document
	seen := map[string]struct{}{source.ID: {}}
	for _, hit := range hits {
		if len(docs) >= limit {
			break
		}
		if _, ok := seen[hit.DocumentID]; ok {
			continue
		}
		seen[hit.DocumentID] = struct{}{}

		doc, err := r.content.GetPublishedDocument(ctx, hit.DocumentID)
		if err != nil {
			// The index can lag the content store after unpublish.
			if !errors.Is(err, domain.ErrNotFound) {
				r.log.Warn("related: failed to load neighbour", "document", hit.DocumentID, "error", err)
			}
			continue
		}
		docs = append(docs, doc)
	}

	return docs
}

func (r *RelatedResolver) fillFromContentStore(ctx context.Context, source domain.Document, chosen []domain.Document, limit int) ([]domain.Document, error) {
	exclude := make([]string, 0, len(chosen)+1)
	exclude = append(exclude, source.ID)
	for _, doc := range chosen {
		exclude = append(exclude, doc.ID)
	}

	candidates, err := r.content.ListCandidatesByCategoryOrTags(ctx, source.Category, source.Tags, exclude)
	if err != nil {
		return nil, fmt.Errorf("related fallback failed: %w", err)
	}

	type scoredDoc struct {
		doc   domain.Document
		score float64
	}
	scored := make([]scoredDoc, 0, len(candidates))
	for _, cand := range candidates {
		scored = append(scored, scoredDoc{doc: cand, score: r.score(source, cand)})
	}
	// Candidates arrive in id order; the stable sort keeps ties deterministic.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	for _, sc := range scored {
		if len(chosen) >= limit {
			break
		}
		chosen = append(chosen, sc.doc)
	}

	return chosen, nil
}

func (r *RelatedResolver) score(source, candidate domain.Document) float64 {
	tags := make(map[string]struct{}, len(source.Tags))
	for _, tag := range source.Tags {
		tags[tag] = struct{}{}
	}
	shared := 0
	for _, tag := range candidate.Tags {
		if _, ok := tags[tag]; ok {
			shared++
		}
	}

	score := r.opts.TagWeight * float64(shared)
	if source.Category != "" && candidate.Category == source.Category {
		score += r.opts.CategoryWeight
	}
	return score
}

// fallbackMode names the path that filled the remainder. A blend of vector
// hits and fallback hits reports the fallback mode.
func (r *RelatedResolver) fallbackMode(source domain.Document) domain.RelatedMode {
	if source.Category == "" && len(source.Tags) > 0 {
		return domain.RelatedModeTags
	}
	return domain.RelatedModeCategory
}

func excerptOf(doc domain.Document, maxRunes int) string {
	text := strings.TrimSpace(doc.Title + "\n\n" + doc.Body)
	runes := []rune(text)
	if len(runes) > maxRunes {
		runes = runes[:maxRunes]
	}
	return string(runes)
}
