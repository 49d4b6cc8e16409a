package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	Port          string
	DatabaseURL   string
	GeminiAPIKey  string
	GeminiBaseURL string
	AITimeout     time.Duration
	BaseURL       string
	ShareSecret   string
	ShareTTL      time.Duration
	MaxBodyBytes  int64
	DataDir       string
}

func LoadConfig() (Config, error) {
	cfg := Config{}

	cfg.Port = envOrDefault("PORT", "8000")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GeminiBaseURL = envOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")

	cfg.BaseURL = envOrDefault("BASE_URL", fmt.Sprintf("http://localhost:%s", cfg.Port))
	cfg.ShareSecret = envOrDefault("SHARE_SECRET", "change-me")
	cfg.DataDir = envOrDefault("DATA_DIR", "data")

	aiTimeoutSeconds, err := parseIntEnv("AI_TIMEOUT_SECONDS", 60)
	if err != nil {
		return Config{}, fmt.Errorf("parse AI_TIMEOUT_SECONDS: %w", err)
	}
	cfg.AITimeout = time.Duration(aiTimeoutSeconds) * time.Second

	shareTTLSeconds, err := parseIntEnv("SHARE_TTL_SECONDS", 86400)
	if err != nil {
		return Config{}, fmt.Errorf("parse SHARE_TTL_SECONDS: %w", err)
	}
	cfg.ShareTTL = time.Duration(shareTTLSeconds) * time.Second

	maxBodyKB, err := parseIntEnv("MAX_BODY_KB", 256)
	if err != nil {
		return Config{}, fmt.Errorf("parse MAX_BODY_KB: %w", err)
	}
	cfg.MaxBodyBytes = maxBodyKB * 1024

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = absDataDir

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseIntEnv(key string, fallback int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return value, nil
}
