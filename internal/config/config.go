package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the chat agent.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	DataDir     string
	DatabaseURL string

	OracleMode   string // ollama | mock
	OllamaURL    string
	DefaultModel string
	SystemPrompt string

	DiscordToken string
	AutoReply    bool

	HistoryCapacity    int
	PrefsRetryAttempts int
	PrefsRetryDelay    time.Duration
	OracleTimeout      time.Duration
	GateTimeout        time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "clyde"),
		AllowAnyOrigin:   false,
		DataDir:          envOrDefault("APP_DATA_DIR", "data"),
		DatabaseURL:      envTrimmed("DATABASE_URL"),
		OracleMode:       envOrDefault("APP_ORACLE_MODE", "ollama"),
		OllamaURL:        envOrDefault("OLLAMA_URL", "http://localhost:11434"),
		DefaultModel:     envOrDefault("OLLAMA_DEFAULT_MODEL", "llama3.2"),
		SystemPrompt:     os.Getenv("APP_SYSTEM_PROMPT"),
		DiscordToken:     envTrimmed("DISCORD_BOT_TOKEN"),
		// Unaddressed messages stay unanswered unless auto-reply is
		// switched on deliberately.
		AutoReply:          false,
		HistoryCapacity:    10,
		PrefsRetryAttempts: 3,
		PrefsRetryDelay:    time.Second,
		OracleTimeout:      2 * time.Minute,
		GateTimeout:        15 * time.Second,
		ShutdownTimeout:    15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.PrefsRetryDelay, err = durationFromEnv("APP_PREFS_RETRY_DELAY", cfg.PrefsRetryDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.OracleTimeout, err = durationFromEnv("APP_ORACLE_TIMEOUT", cfg.OracleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.GateTimeout, err = durationFromEnv("APP_GATE_TIMEOUT", cfg.GateTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryCapacity, err = intFromEnv("APP_HISTORY_CAPACITY", cfg.HistoryCapacity)
	if err != nil {
		return Config{}, err
	}
	cfg.PrefsRetryAttempts, err = intFromEnv("APP_PREFS_RETRY_ATTEMPTS", cfg.PrefsRetryAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.AutoReply, err = boolFromEnv("APP_AUTO_REPLY", cfg.AutoReply)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	switch cfg.OracleMode {
	case "ollama", "mock":
	default:
		return Config{}, fmt.Errorf("APP_ORACLE_MODE must be ollama or mock, got %q", cfg.OracleMode)
	}
	if cfg.HistoryCapacity < 1 {
		return Config{}, fmt.Errorf("APP_HISTORY_CAPACITY must be at least 1")
	}
	if cfg.PrefsRetryAttempts < 1 {
		return Config{}, fmt.Errorf("APP_PREFS_RETRY_ATTEMPTS must be at least 1")
	}
	if cfg.OracleTimeout <= 0 {
		return Config{}, fmt.Errorf("APP_ORACLE_TIMEOUT must be positive")
	}
	if cfg.GateTimeout <= 0 {
		return Config{}, fmt.Errorf("APP_GATE_TIMEOUT must be positive")
	}
	if cfg.OracleMode == "ollama" && strings.TrimSpace(cfg.OllamaURL) == "" {
		return Config{}, fmt.Errorf("OLLAMA_URL must be set for ollama oracle mode")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
