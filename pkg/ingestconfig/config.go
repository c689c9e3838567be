// Package ingestconfig provides unified configuration for the chat-export
// ingestion service. This is the single source of truth for settings shared
// between the HTTP server and the background pipeline.
package ingestconfig

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the unified ingestion configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Milvus    MilvusConfig    `yaml:"milvus"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Language  LanguageConfig  `yaml:"language"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Database  DatabaseConfig  `yaml:"database"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type MilvusConfig struct {
	Address          string            `yaml:"address"`
	CollectionPrefix string            `yaml:"collection_prefix"`
	UpsertChunkSize  int               `yaml:"upsert_chunk_size"`
	Index            MilvusIndexConfig `yaml:"index"`
}

type MilvusIndexConfig struct {
	Type           string `yaml:"type"`
	Metric         string `yaml:"metric"`
	M              int    `yaml:"m"`
	EfConstruction int    `yaml:"ef_construction"`
}

type EmbeddingConfig struct {
	BaseURL      string `yaml:"base_url"`
	Model        string `yaml:"model"`
	Dimension    int    `yaml:"dimension"`
	BatchSize    int    `yaml:"batch_size"`
	BatchDelayMs int    `yaml:"batch_delay_ms"`
}

type LanguageConfig struct {
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	SampleSize int    `yaml:"sample_size"`
}

type PipelineConfig struct {
	MinMessages    int `yaml:"min_messages"`
	MaxLossPercent int `yaml:"max_loss_percent"`
	TimeoutMinutes int `yaml:"timeout_minutes"`
	Workers        int `yaml:"workers"`
}

type DatabaseConfig struct {
	SQLite string `yaml:"sqlite"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8085",
		},
		Milvus: MilvusConfig{
			Address:          "localhost:19530",
			CollectionPrefix: "chat",
			UpsertChunkSize:  100,
			Index: MilvusIndexConfig{
				Type:           "HNSW",
				Metric:         "COSINE",
				M:              16,
				EfConstruction: 256,
			},
		},
		Embedding: EmbeddingConfig{
			BaseURL:      "http://127.0.0.1:11434/v1",
			Model:        "qwen3-embedding:8b",
			Dimension:    4096,
			BatchSize:    100,
			BatchDelayMs: 0,
		},
		Language: LanguageConfig{
			BaseURL:    "",
			Model:      "gpt-4o-mini",
			SampleSize: 10,
		},
		Pipeline: PipelineConfig{
			MinMessages:    10,
			MaxLossPercent: 30,
			TimeoutMinutes: 30,
			Workers:        4,
		},
		Database: DatabaseConfig{
			SQLite: "chatrecall.db",
		},
	}
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default() // Start with defaults
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadFromDir looks for chatrecall.yaml in the given directory or parent directories
func LoadFromDir(dir string) (*Config, error) {
	current := dir
	for {
		path := filepath.Join(current, "chatrecall.yaml")
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(current)
		if parent == current {
			break // Reached root
		}
		current = parent
	}

	return nil, fmt.Errorf("chatrecall.yaml not found in %s or parent directories", dir)
}

// LoadFromFlagOrDir loads the config from cfgPath if provided, otherwise searches
// for chatrecall.yaml starting from dir (walking up parent directories).
func LoadFromFlagOrDir(cfgPath string, dir string) (*Config, error) {
	if cfgPath != "" {
		return Load(cfgPath)
	}
	return LoadFromDir(dir)
}

// LoadOrDefault tries to load from chatrecall.yaml, falls back to defaults
func LoadOrDefault(dir string) *Config {
	cfg, err := LoadFromDir(dir)
	if err != nil {
		return Default()
	}
	return cfg
}

// Hash returns a SHA256 hash of the configuration for change detection
func (c *Config) Hash() string {
	data, _ := yaml.Marshal(c)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// EmbeddingIdentity returns a string identifying the embedding configuration.
// Use this to detect mismatches between index and query embeddings.
func (c *Config) EmbeddingIdentity() string {
	return fmt.Sprintf("%s:%s:%d", c.Embedding.BaseURL, c.Embedding.Model, c.Embedding.Dimension)
}
