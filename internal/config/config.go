// Package config provides configuration loading and structs for the skillrec service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvGeminiAPIKey   = "GEMINI_API_KEY"
	EnvCatalogPath    = "SKILLREC_CATALOG_PATH"
	EnvEmbeddingModel = "SKILLREC_EMBEDDING_MODEL"
	EnvGeminiModel    = "SKILLREC_GEMINI_MODEL"
	EnvTopK           = "SKILLREC_TOP_K"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	LLM       LLMConfig       `yaml:"llm"`
	Recommend RecommendConfig `yaml:"recommend"`
	Scraper   ScraperConfig   `yaml:"scraper"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CatalogConfig locates the catalog file.
type CatalogConfig struct {
	Path string `yaml:"path"`
	// Watch rebuilds the index when the catalog file changes.
	Watch bool `yaml:"watch"`
}

// EmbeddingConfig selects and tunes the embedder.
type EmbeddingConfig struct {
	// Provider is one of hash, onnx, gemini.
	Provider string `yaml:"provider"`
	// Model is the ONNX model path or the Gemini embedding model name.
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	BatchSize  int    `yaml:"batch_size"`
}

// IndexConfig locates the persisted index.
type IndexConfig struct {
	Dir  string `yaml:"dir"`
	Type string `yaml:"type"`
}

// LLMConfig configures the generative model.
type LLMConfig struct {
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	// APIKey only comes from the environment.
	APIKey string `yaml:"-"`
}

// RecommendConfig holds retrieval depths and the audit output location.
type RecommendConfig struct {
	TopK      int    `yaml:"top_k"`
	ResponseK int    `yaml:"response_k"`
	OutputDir string `yaml:"output_dir"`
}

// ScraperConfig configures the catalog scraper.
type ScraperConfig struct {
	BaseURL         string        `yaml:"base_url"`
	SiteRoot        string        `yaml:"site_root"`
	Type            int           `yaml:"type"`
	MaxPages        int           `yaml:"max_pages"`
	PageSize        int           `yaml:"page_size"`
	Workers         int           `yaml:"workers"`
	PageDelay       time.Duration `yaml:"page_delay"`
	Timeout         time.Duration `yaml:"timeout"`
	ListingAttempts int           `yaml:"listing_attempts"`
	ListingDelay    time.Duration `yaml:"listing_delay"`
	DetailAttempts  int           `yaml:"detail_attempts"`
	DetailDelay     time.Duration `yaml:"detail_delay"`
	UserAgent       string        `yaml:"user_agent"`
	LinksPath       string        `yaml:"links_path"`
	CatalogPath     string        `yaml:"catalog_path"`
	MinEntries      int           `yaml:"min_entries"`
}

// Load reads the config file at path, applies defaults, expands relative paths
// against the config directory and applies environment overrides. An empty path
// yields the defaults with environment overrides.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	ApplyDefaults(&cfg)

	if path != "" {
		configDir := filepath.Dir(path)
		cfg.Catalog.Path = expandPath(cfg.Catalog.Path, configDir)
		cfg.Index.Dir = expandPath(cfg.Index.Dir, configDir)
		cfg.Recommend.OutputDir = expandPath(cfg.Recommend.OutputDir, configDir)
		cfg.Scraper.LinksPath = expandPath(cfg.Scraper.LinksPath, configDir)
		cfg.Scraper.CatalogPath = expandPath(cfg.Scraper.CatalogPath, configDir)
		if cfg.Embedding.Provider == "onnx" {
			cfg.Embedding.Model = expandPath(cfg.Embedding.Model, configDir)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv loads variables from the given .env files (default ".env") without
// overriding variables already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.LLM.APIKey = strings.TrimSpace(os.Getenv(EnvGeminiAPIKey))
	if v := os.Getenv(EnvCatalogPath); v != "" {
		cfg.Catalog.Path = v
	}
	if v := os.Getenv(EnvEmbeddingModel); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv(EnvGeminiModel); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv(EnvTopK); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil || k <= 0 {
			return fmt.Errorf("invalid %s %q: must be a positive integer", EnvTopK, v)
		}
		cfg.Recommend.TopK = k
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath resolves "~/" against the home directory and other relative paths
// against configDir.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
		return path
	}
	return filepath.Join(configDir, path)
}
