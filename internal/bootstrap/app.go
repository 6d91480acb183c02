package bootstrap

import (
	"fmt"
	"time"

	"data-extractor/internal/ai"
	"data-extractor/internal/config"
	"data-extractor/internal/logger"
)

type App struct {
	Config   *config.Config
	Log      *logger.Logger
	AIClient *ai.OpenAIClient

	StartedAt time.Time
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}

	aiClient := ai.NewOpenAIClient(ai.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})

	return &App{
		Config:    cfg,
		Log:       log,
		AIClient:  aiClient,
		StartedAt: time.Now(),
	}, nil
}

func (a *App) Close() {
	if a.Log != nil {
		a.Log.Sync()
	}
}
