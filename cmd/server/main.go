package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"edupdf/internal/app"
	"edupdf/internal/config"
	"edupdf/internal/generate"
	"edupdf/internal/server"
	"edupdf/internal/util"
	"edupdf/pkg/ai"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	appCore, err := app.New(app.Config{
		DatabaseURL:    cfg.DatabaseURL,
		StorageDir:     cfg.StorageDir,
		JWTSecret:      cfg.JWTSecret,
		SessionTTL:     sessionTTL,
		MaxUploadBytes: cfg.MaxUploadBytes,
		MinioEndpoint:  minioEndpoint(cfg),
		MinioAccessKey: cfg.MinioAccessKey,
		MinioSecretKey: cfg.MinioSecretKey,
		MinioBucket:    cfg.MinioBucket,
		MinioUseSSL:    cfg.MinioUseSSL,
		Generator:      buildGenerator(cfg),
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                        appCore,
		MaxUploadBytes:             cfg.MaxUploadBytes,
		RedisAddr:                  cfg.RedisAddr,
		RedisPassword:              cfg.RedisPassword,
		RegisterRateLimitPerMinute: cfg.RegisterRateLimitPerMinute,
		LoginRateLimitPerMinute:    cfg.LoginRateLimitPerMinute,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func minioEndpoint(cfg config.FileConfig) string {
	if cfg.StorageBackend != "minio" {
		return ""
	}
	return cfg.MinioEndpoint
}

// buildGenerator returns nil for the heuristic default, which app.New
// fills in itself.
func buildGenerator(cfg config.FileConfig) generate.ContentGenerator {
	switch cfg.Generator {
	case "ollama":
		return generate.NewLLMGenerator(ai.NewOllamaGenerator(cfg.OllamaURL, cfg.GenerationModel))
	case "openai":
		return generate.NewLLMGenerator(ai.NewOpenAICompatGenerator(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.GenerationModel))
	default:
		return nil
	}
}
