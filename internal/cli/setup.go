package cli

import (
	"fmt"

	"blograg/config"
	"blograg/internal/adapter/cache"
	"blograg/internal/adapter/chunker"
	"blograg/internal/adapter/content"
	"blograg/internal/adapter/provider"
	"blograg/internal/adapter/store"
	"blograg/internal/port"
	"blograg/internal/usecase"
)

// app wires the adapters and use cases behind every command.
type app struct {
	cfg      *config.Config
	content  *content.SQLiteStore
	vectors  *store.BoltStore
	provider port.Provider
	cache    *cache.QueryCache

	indexer *usecase.Indexer
	engine  *usecase.QueryEngine
	related *usecase.RelatedResolver
}

func newApp(cfg *config.Config) (*app, error) {
	prov, err := newProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	vectors, err := store.NewBoltStore(cfg.IndexDBPath(), prov.Dimension())
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}

	contentStore, err := content.NewSQLiteStore(cfg.Store.ContentDSN)
	if err != nil {
		vectors.Close()
		return nil, fmt.Errorf("failed to open content database: %w", err)
	}

	queryCache := cache.NewQueryCache(cfg.Query.CacheSize, cfg.Query.CacheTTL)
	chk := chunker.New(cfg.Index.ChunkRunes, cfg.Index.ChunkOverlap)

	a := &app{
		cfg:      cfg,
		content:  contentStore,
		vectors:  vectors,
		provider: prov,
		cache:    queryCache,
	}
	a.indexer = usecase.NewIndexer(contentStore, vectors, vectors, prov, chk, queryCache, logger)
	a.engine = usecase.NewQueryEngine(prov, prov, vectors, queryCache, logger)
	a.related = usecase.NewRelatedResolver(prov, vectors, contentStore, usecase.RelatedOptions{
		TagWeight:      cfg.Related.TagWeight,
		CategoryWeight: cfg.Related.CategoryWeight,
	}, logger)
	return a, nil
}

func (a *app) Close() {
	a.content.Close()
	a.vectors.Close()
}

func newProvider(cfg config.ProviderConfig) (port.Provider, error) {
	switch cfg.Name {
	case "openai", "":
		return provider.NewOpenAIClient(provider.Config{
			BaseURL:    cfg.BaseURL,
			APIKeyEnv:  cfg.APIKeyEnv,
			EmbedModel: cfg.EmbedModel,
			ChatModel:  cfg.ChatModel,
			Dimension:  cfg.Dimension,
			BatchSize:  cfg.BatchSize,
			Timeout:    cfg.Timeout,
		}), nil
	case "mock":
		return provider.NewMock(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Name)
	}
}

func (a *app) queryOptions() usecase.QueryOptions {
	return usecase.QueryOptions{
		Limit:       a.cfg.Query.Limit,
		MaxTokens:   a.cfg.Query.MaxTokens,
		Temperature: a.cfg.Query.Temperature,
	}
}
