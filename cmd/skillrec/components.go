package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hyperjump/skillrec/internal/config"
	"github.com/hyperjump/skillrec/internal/embedding"
	"github.com/hyperjump/skillrec/internal/llm"
	"github.com/hyperjump/skillrec/internal/recommend"
	"github.com/hyperjump/skillrec/pkg/utils"
	"go.uber.org/zap"
)

const defaultConfigFile = "config.yaml"

// loadConfig loads .env and then the config at path. An empty path falls back to
// config.yaml in the current directory when it exists, otherwise to built-in defaults.
// Returns the config and the path actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, "", err
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// session bundles what every engine-backed command needs.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	engine *recommend.Engine
}

func (s *session) Close() {
	if s.engine != nil {
		_ = s.engine.Close()
	}
	_ = s.logger.Sync()
}

// setup loads config, creates the logger and initializes the engine.
func setup(ctx context.Context, extra ...recommend.Option) (*session, error) {
	cfg, path, err := loadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", path))

	engine, err := initializeComponents(ctx, cfg, logger, extra...)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, engine: engine}, nil
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, extra ...recommend.Option) (*recommend.Engine, error) {
	emb, err := embedding.New(ctx, embedding.Options{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		MaxTokens:  cfg.Embedding.MaxTokens,
		CacheSize:  cfg.Embedding.CacheSize,
		APIKey:     cfg.LLM.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	logger.Info("embedder initialized",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", emb.ModelID()),
		zap.Int("dimensions", emb.Dimensions()))

	opts := []recommend.Option{
		recommend.WithLogger(logger),
		recommend.WithTopK(cfg.Recommend.TopK),
		recommend.WithIndexType(cfg.Index.Type),
		recommend.WithBatchSize(cfg.Embedding.BatchSize),
		recommend.WithOutputDir(cfg.Recommend.OutputDir),
	}
	if cfg.LLM.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not set; recommendations use the ranked fallback listing")
	} else {
		gen, err := llm.NewGeminiGenerator(ctx, cfg.LLM.APIKey, cfg.LLM.Model,
			llm.WithLogger(logger),
			llm.WithTemperature(cfg.LLM.Temperature),
			llm.WithRetries(cfg.LLM.MaxRetries, cfg.LLM.RetryDelay),
		)
		if err != nil {
			logger.Warn("generator unavailable; recommendations use the ranked fallback listing", zap.Error(err))
		} else {
			opts = append(opts, recommend.WithGenerator(gen))
		}
	}

	engine, err := recommend.NewEngine(ctx, emb, cfg.Catalog.Path, cfg.Index.Dir, append(opts, extra...)...)
	if err != nil {
		_ = emb.Close()
		return nil, fmt.Errorf("failed to initialize recommendation engine: %w", err)
	}
	return engine, nil
}
