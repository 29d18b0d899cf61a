// Package config loads docrag CLI configuration from a TOML file.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full CLI configuration.
type Config struct {
	LLM       LLM       `toml:"llm"`
	Embedding Embedding `toml:"embedding"`
	Index     Index     `toml:"index"`
	Ingest    Ingest    `toml:"ingest"`
	Observer  Observer  `toml:"observer"`
}

// LLM configures the completion provider.
type LLM struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

// Embedding configures the embedding provider.
type Embedding struct {
	APIKey     string `toml:"api_key"`
	Model      string `toml:"model"`
	BaseURL    string `toml:"base_url"`
	Dimensions int    `toml:"dimensions"`
}

// Index selects and configures the vector index backend.
type Index struct {
	// Driver is "sqlite" or "postgres".
	Driver string `toml:"driver"`
	// Path is the database file for the sqlite driver.
	Path string `toml:"path"`
	// DSN is the connection string for the postgres driver.
	DSN string `toml:"dsn"`
	// Table holds the chunk table name (default "chunks").
	Table string `toml:"table"`
}

// Ingest tunes the ingestion pipeline.
type Ingest struct {
	BatchSize      int      `toml:"batch_size"`
	Parallelism    int      `toml:"parallelism"`
	KnowledgeBases []string `toml:"knowledge_bases"`
}

// Observer enables OTEL instrumentation.
type Observer struct {
	Enabled bool `toml:"enabled"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LLM: LLM{
			Model:   "gpt-4o-mini",
			BaseURL: "https://api.openai.com/v1",
		},
		Embedding: Embedding{
			Model:      "text-embedding-3-small",
			BaseURL:    "https://api.openai.com/v1",
			Dimensions: 1536,
		},
		Index: Index{
			Driver: "sqlite",
			Path:   "docrag.db",
			Table:  "chunks",
		},
	}
}

// Load reads the config file at path, applied over Default(). A missing
// file is not an error when path is empty; an explicit path must exist.
// The DOCRAG_CONFIG env var overrides an empty path.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = os.Getenv("DOCRAG_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = "docrag.toml"
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: load %s: %w", path, err)
	}

	// API keys come from env when not set in the file.
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("DOCRAG_LLM_API_KEY")
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("DOCRAG_EMBEDDING_API_KEY")
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Index.Driver {
	case "sqlite":
		if c.Index.Path == "" {
			return fmt.Errorf("config: index.path required for sqlite driver")
		}
	case "postgres":
		if c.Index.DSN == "" {
			return fmt.Errorf("config: index.dsn required for postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown index driver %q", c.Index.Driver)
	}
	return nil
}
