package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Index.ChunkRunes != 800 {
		t.Errorf("expected ChunkRunes=800, got %d", cfg.Index.ChunkRunes)
	}
	if cfg.Query.Limit != 5 {
		t.Errorf("expected Limit=5, got %d", cfg.Query.Limit)
	}
	if cfg.Query.MaxTokens != 1024 {
		t.Errorf("expected MaxTokens=1024, got %d", cfg.Query.MaxTokens)
	}
	if cfg.Related.CategoryWeight != 0.5 {
		t.Errorf("expected CategoryWeight=0.5, got %f", cfg.Related.CategoryWeight)
	}
	if cfg.Provider.Dimension != 1536 {
		t.Errorf("expected Dimension=1536, got %d", cfg.Provider.Dimension)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "blograg.yaml")

	content := `
index:
  chunk_runes: 400
query:
  limit: 8
provider:
  name: mock
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Index.ChunkRunes != 400 {
		t.Errorf("expected ChunkRunes=400, got %d", cfg.Index.ChunkRunes)
	}
	if cfg.Query.Limit != 8 {
		t.Errorf("expected Limit=8, got %d", cfg.Query.Limit)
	}
	if cfg.Provider.Name != "mock" {
		t.Errorf("expected provider=mock, got %s", cfg.Provider.Name)
	}
	// Untouched sections keep their defaults.
	if cfg.Query.MaxTokens != 1024 {
		t.Errorf("expected MaxTokens=1024, got %d", cfg.Query.MaxTokens)
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "blograg.yaml")

	content := `
server:
  addr: ":9090"
  auto_index_wait: 30s
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("expected addr=:9090, got %s", cfg.Server.Addr)
	}
	if cfg.Server.AutoIndexWait != 30*time.Second {
		t.Errorf("expected auto_index_wait=30s, got %v", cfg.Server.AutoIndexWait)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "blograg.yaml")

	cfg := DefaultConfig()
	cfg.Query.Limit = 12
	if err := cfg.Save(configPath); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Query.Limit != 12 {
		t.Errorf("expected Limit=12, got %d", loaded.Query.Limit)
	}
}

func TestIndexDBPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.DataDir = "/var/lib/blograg"
	expected := filepath.Join("/var/lib/blograg", "index.db")
	if got := cfg.IndexDBPath(); got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}
