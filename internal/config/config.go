// Package config provides application configuration for foodingo commands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server
	Port string

	// External capabilities
	OpenAIKey        string
	ElevenLabsKey    string
	ElevenLabsVoice  string
	ResolverModel    string
	ResolverTimeout  time.Duration

	// Recipe catalog
	DBPath string

	// Voice
	WakePhrase    string
	SettleDelay   time.Duration
	CommandFloor  time.Duration
	TranscriptMax int
	LogLevel      string
}

// Load reads configuration from a .env file (if present) and the
// environment. Missing .env is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8000"),
		OpenAIKey:       getEnv("OPENAI_API_KEY", ""),
		ElevenLabsKey:   getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoice: getEnv("ELEVENLABS_VOICE_ID", ""),
		ResolverModel:   getEnv("AI_MODEL", "gpt-4"),
		ResolverTimeout: getEnvDuration("RESOLVER_TIMEOUT", 15*time.Second),
		DBPath:          getEnv("DB_PATH", "./data/recipes.db"),
		WakePhrase:      getEnv("WAKE_PHRASE", "foodingo"),
		SettleDelay:     getEnvDuration("SETTLE_DELAY", 1500*time.Millisecond),
		CommandFloor:    getEnvDuration("COMMAND_TIMEOUT_FLOOR", 30*time.Second),
		TranscriptMax:   getEnvInt("TRANSCRIPT_MAX", 40),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("SETTLE_DELAY cannot be negative")
	}
	if c.CommandFloor <= 0 {
		return fmt.Errorf("COMMAND_TIMEOUT_FLOOR must be > 0")
	}
	if c.TranscriptMax <= 0 {
		return fmt.Errorf("TRANSCRIPT_MAX must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
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
