// Package config resolves runtime configuration from environment
// variables with typed defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration for the server.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Session   SessionConfig
	STT       GatewayConfig
	Translate GatewayConfig
	TTS       GatewayConfig
}

type ServerConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
}

type AuthConfig struct {
	// DevBypass enables the elevated anonymous dev identity. Never set
	// in production.
	DevBypass bool
}

type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	MaxSegments   int
}

type GatewayConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Load resolves configuration from environment variables and defaults.
func Load() Config {
	return Config{
		Server: ServerConfig{
			Addr:              envOrDefault("SPEECHBRIDGE_ADDR", ":8080"),
			ReadHeaderTimeout: envOrDefaultDuration("SPEECHBRIDGE_READ_HEADER_TIMEOUT_MS", 5*time.Second),
		},
		Auth: AuthConfig{
			DevBypass: envOrDefaultBool("SPEECHBRIDGE_DEV_BYPASS", false),
		},
		Session: SessionConfig{
			IdleTimeout:   envOrDefaultDuration("SPEECHBRIDGE_IDLE_TIMEOUT_MS", 5*time.Minute),
			SweepInterval: envOrDefaultDuration("SPEECHBRIDGE_SWEEP_INTERVAL_MS", time.Minute),
			MaxSegments:   envOrDefaultInt("SPEECHBRIDGE_MAX_SEGMENTS", 1000),
		},
		STT: GatewayConfig{
			BaseURL: strings.TrimSpace(os.Getenv("SPEECHBRIDGE_STT_URL")),
			APIKey:  strings.TrimSpace(os.Getenv("SPEECHBRIDGE_STT_API_KEY")),
			Model:   envOrDefault("SPEECHBRIDGE_STT_MODEL", "whisper-1"),
			Timeout: envOrDefaultDuration("SPEECHBRIDGE_STT_TIMEOUT_MS", 30*time.Second),
		},
		Translate: GatewayConfig{
			BaseURL: strings.TrimSpace(os.Getenv("SPEECHBRIDGE_TRANSLATE_URL")),
			APIKey:  strings.TrimSpace(os.Getenv("SPEECHBRIDGE_TRANSLATE_API_KEY")),
			Timeout: envOrDefaultDuration("SPEECHBRIDGE_TRANSLATE_TIMEOUT_MS", 15*time.Second),
		},
		TTS: GatewayConfig{
			BaseURL: strings.TrimSpace(os.Getenv("SPEECHBRIDGE_TTS_URL")),
			APIKey:  strings.TrimSpace(os.Getenv("SPEECHBRIDGE_TTS_API_KEY")),
			Timeout: envOrDefaultDuration("SPEECHBRIDGE_TTS_TIMEOUT_MS", 20*time.Second),
		},
	}
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return time.Duration(parsed) * time.Millisecond
}

func envOrDefaultBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
