package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "data/processed/shl_catalog_clean.csv"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "hash"
	}
	if cfg.Embedding.Dimensions == 0 && cfg.Embedding.Provider != "gemini" {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}
	if cfg.Index.Dir == "" {
		cfg.Index.Dir = "data/index"
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "memory"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gemini-2.0-flash"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.3
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 2
	}
	if cfg.LLM.RetryDelay == 0 {
		cfg.LLM.RetryDelay = 2 * time.Second
	}
	if cfg.Recommend.TopK == 0 {
		cfg.Recommend.TopK = 5
	}
	if cfg.Recommend.ResponseK == 0 {
		cfg.Recommend.ResponseK = 10
	}
	if cfg.Recommend.OutputDir == "" {
		cfg.Recommend.OutputDir = "outputs"
	}
	applyScraperDefaults(&cfg.Scraper)
}

func applyScraperDefaults(s *ScraperConfig) {
	if s.BaseURL == "" {
		s.BaseURL = "https://www.shl.com/solutions/products/product-catalog/"
	}
	if s.SiteRoot == "" {
		s.SiteRoot = "https://www.shl.com"
	}
	if s.Type == 0 {
		s.Type = 1
	}
	if s.MaxPages == 0 {
		s.MaxPages = 45
	}
	if s.PageSize == 0 {
		s.PageSize = 12
	}
	if s.Workers == 0 {
		s.Workers = 5
	}
	if s.PageDelay == 0 {
		s.PageDelay = 1200 * time.Millisecond
	}
	if s.Timeout == 0 {
		s.Timeout = 50 * time.Second
	}
	if s.ListingAttempts == 0 {
		s.ListingAttempts = 4
	}
	if s.ListingDelay == 0 {
		s.ListingDelay = 2 * time.Second
	}
	if s.DetailAttempts == 0 {
		s.DetailAttempts = 5
	}
	if s.DetailDelay == 0 {
		s.DetailDelay = 3 * time.Second
	}
	if s.UserAgent == "" {
		s.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	}
	if s.LinksPath == "" {
		s.LinksPath = "data/shl_links.json"
	}
	if s.CatalogPath == "" {
		s.CatalogPath = "data/processed/shl_catalog_clean.csv"
	}
	if s.MinEntries == 0 {
		s.MinEntries = 377
	}
}
