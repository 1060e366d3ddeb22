package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all configuration values.
type Config struct {
	// Backend API
	ServerURL     string
	ClientTimeout time.Duration

	// Local state
	DataDir string

	// Anonymous mode
	RepliesFile    string
	TypingDelayMin time.Duration
	TypingDelayMax time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
// Defaults target a locally running backend on port 8000.
func Load() Config {
	return Config{
		ServerURL:     getEnv("SAKHI_SERVER_URL", "http://localhost:8000"),
		ClientTimeout: parseDuration(getEnv("SAKHI_CLIENT_TIMEOUT", "2m")),

		DataDir: getEnv("SAKHI_DATA_DIR", defaultDataDir()),

		RepliesFile:    getEnv("SAKHI_REPLIES_FILE", ""),
		TypingDelayMin: parseDuration(getEnv("SAKHI_TYPING_DELAY_MIN", "1s")),
		TypingDelayMax: parseDuration(getEnv("SAKHI_TYPING_DELAY_MAX", "3s")),

		LogFile:  getEnv("SAKHI_LOG_FILE", "/tmp/sakhi.log"),
		LogLevel: parseLogLevel(getEnv("SAKHI_LOG_LEVEL", "INFO")),
	}
}

// TokenPath returns the location of the persisted token pair.
func (c Config) TokenPath() string {
	return filepath.Join(c.DataDir, "tokens.json")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sakhi"
	}
	return filepath.Join(home, ".sakhi")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
