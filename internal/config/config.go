// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port              string
	DBPath            string
	BotToken          string
	GeminiAPIKey      string
	GeminiModel       string
	OperatorChatID    int64 // Telegram chat id allowed to run admin commands; 0 disables them
	AdminAPIToken     string
	ConsultationLimit int
	GenerationTimeout time.Duration
	PollTimeout       time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	limit := getEnvInt("CONSULTATION_LIMIT", 5)
	if limit <= 0 {
		limit = 5
	}

	genTimeout := getEnvInt("GENERATION_TIMEOUT_SEC", 90)
	if genTimeout <= 0 {
		genTimeout = 90
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DBPath:            getEnv("DB_PATH", "./data/boardview.db"),
		BotToken:          getEnv("TELEGRAM_BOT_TOKEN", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OperatorChatID:    getEnvInt64("OPERATOR_CHAT_ID", 0),
		AdminAPIToken:     getEnv("ADMIN_API_TOKEN", ""),
		ConsultationLimit: limit,
		GenerationTimeout: time.Duration(genTimeout) * time.Second,
		PollTimeout:       30 * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN cannot be empty")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY cannot be empty")
	}
	if c.ConsultationLimit <= 0 {
		return fmt.Errorf("CONSULTATION_LIMIT must be > 0")
	}
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT_SEC must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
