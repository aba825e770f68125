package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the blog retrieval engine.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Index    IndexConfig    `yaml:"index"`
	Query    QueryConfig    `yaml:"query"`
	Related  RelatedConfig  `yaml:"related"`
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ProviderConfig holds embedding and generation provider configuration.
type ProviderConfig struct {
	Name       string        `yaml:"name"`        // "openai" or "mock"
	BaseURL    string        `yaml:"base_url"`    // OpenAI-compatible endpoint
	APIKeyEnv  string        `yaml:"api_key_env"` // environment variable holding the key
	EmbedModel string        `yaml:"embed_model"`
	ChatModel  string        `yaml:"chat_model"`
	Dimension  int           `yaml:"dimension"`
	BatchSize  int           `yaml:"batch_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

// IndexConfig holds indexing configuration.
type IndexConfig struct {
	ChunkRunes   int `yaml:"chunk_runes"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// QueryConfig holds question-answering configuration.
type QueryConfig struct {
	Limit       int           `yaml:"limit"`       // retrieved chunks per question
	MaxTokens   int           `yaml:"max_tokens"`  // context token budget
	Temperature float64       `yaml:"temperature"`
	CacheSize   int           `yaml:"cache_size"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

// RelatedConfig holds related-document resolver configuration.
type RelatedConfig struct {
	Limit          int     `yaml:"limit"`
	TagWeight      float64 `yaml:"tag_weight"`
	CategoryWeight float64 `yaml:"category_weight"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	AutoIndex     bool          `yaml:"auto_index"`      // reindex shortly after startup
	AutoIndexWait time.Duration `yaml:"auto_index_wait"`
}

// StoreConfig holds storage paths.
type StoreConfig struct {
	DataDir    string `yaml:"data_dir"`    // vector index location
	ContentDSN string `yaml:"content_dsn"` // sqlite content database
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:       "openai",
			BaseURL:    "https://api.openai.com/v1",
			APIKeyEnv:  "OPENAI_API_KEY",
			EmbedModel: "text-embedding-3-small",
			ChatModel:  "gpt-4o-mini",
			Dimension:  1536,
			BatchSize:  100,
			Timeout:    30 * time.Second,
		},
		Index: IndexConfig{
			ChunkRunes:   800,
			ChunkOverlap: 100,
		},
		Query: QueryConfig{
			Limit:       5,
			MaxTokens:   1024,
			Temperature: 0.2,
			CacheSize:   128,
			CacheTTL:    5 * time.Minute,
		},
		Related: RelatedConfig{
			Limit:          3,
			TagWeight:      0.3,
			CategoryWeight: 0.5,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			AutoIndex:     true,
			AutoIndexWait: 10 * time.Second,
		},
		Store: StoreConfig{
			DataDir:    ".blograg",
			ContentDSN: "blog.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for blograg.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "blograg.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Try .blograg/config.yaml
	path = filepath.Join(dir, ".blograg", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the vector index database.
func (c *Config) IndexDBPath() string {
	return filepath.Join(c.Store.DataDir, "index.db")
}

// EnsureDataDir ensures the data directory exists.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.Store.DataDir, 0755)
}
