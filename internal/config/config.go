// Package config loads the TablePipe configuration:
// defaults -> TOML file -> environment variables (env wins).
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Planner   PlannerConfig   `toml:"planner"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Store     StoreConfig     `toml:"store"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type PlannerConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

type EmbeddingConfig struct {
	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	SeqURL string `toml:"seq_url"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Server:    ServerConfig{Addr: ":8787"},
		Planner:   PlannerConfig{Model: "gemini-2.5-flash"},
		Embedding: EmbeddingConfig{Model: "nomic-embed-text", Dimensions: 768},
		Store:     StoreConfig{Path: "tablepipe.db"},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
// A missing file is not an error; the defaults stand.
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "tablepipe.toml"
	}
	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("TABLEPIPE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TABLEPIPE_PLANNER_API_KEY"); v != "" {
		cfg.Planner.APIKey = v
	}
	if v := os.Getenv("TABLEPIPE_PLANNER_MODEL"); v != "" {
		cfg.Planner.Model = v
	}
	if v := os.Getenv("TABLEPIPE_EMBEDDING_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("TABLEPIPE_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("TABLEPIPE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("TABLEPIPE_SEQ_URL"); v != "" {
		cfg.Logging.SeqURL = v
	}

	return cfg
}
