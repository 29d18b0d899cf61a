package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docrag.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err == nil {
		t.Fatal("explicit missing path must fail")
	}
	_ = cfg
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[llm]
model = "llama-3.3-70b"
base_url = "http://localhost:11434/v1"

[embedding]
model = "nomic-embed-text"
dimensions = 768

[index]
driver = "sqlite"
path = "/tmp/test.db"
table = "docs"

[ingest]
batch_size = 25
parallelism = 4
knowledge_bases = ["manuals", "papers"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "llama-3.3-70b" {
		t.Errorf("llm model = %q", cfg.LLM.Model)
	}
	if cfg.Embedding.Dimensions != 768 {
		t.Errorf("dimensions = %d", cfg.Embedding.Dimensions)
	}
	if cfg.Index.Table != "docs" || cfg.Index.Path != "/tmp/test.db" {
		t.Errorf("index = %+v", cfg.Index)
	}
	if cfg.Ingest.BatchSize != 25 || cfg.Ingest.Parallelism != 4 {
		t.Errorf("ingest = %+v", cfg.Ingest)
	}
	if len(cfg.Ingest.KnowledgeBases) != 2 {
		t.Errorf("knowledge_bases = %v", cfg.Ingest.KnowledgeBases)
	}
	// Unset fields keep their defaults.
	if cfg.Embedding.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("embedding base_url lost its default: %q", cfg.Embedding.BaseURL)
	}
}

func TestLoadValidatesDriver(t *testing.T) {
	path := writeConfig(t, `
[index]
driver = "oracle"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("unknown driver must be rejected")
	}
}

func TestLoadPostgresRequiresDSN(t *testing.T) {
	path := writeConfig(t, `
[index]
driver = "postgres"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("postgres without dsn must be rejected")
	}

	path = writeConfig(t, `
[index]
driver = "postgres"
dsn = "postgres://localhost/docrag"
`)
	if _, err := Load(path); err != nil {
		t.Fatalf("valid postgres config rejected: %v", err)
	}
}

func TestLoadAPIKeyFromEnv(t *testing.T) {
	t.Setenv("DOCRAG_LLM_API_KEY", "env-key")
	path := writeConfig(t, `
[index]
driver = "sqlite"
path = "x.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("api key = %q, want env value", cfg.LLM.APIKey)
	}
}
