package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port         string `validate:"required,numeric"`
	DBPath       string `validate:"required"`
	UploadDir    string `validate:"required"`
	CSRFKey      []byte `validate:"len=32"`
	SessionKey   []byte `validate:"min=32"`
	CookieDomain string
	CookieSecure bool
	LogLevel     string `validate:"oneof=debug info warn error"`
}

// LoadConfig reads the configuration from the environment. A .env file in
// the working directory is loaded first when present; variables already set
// in the environment win.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env")
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8585"),
		DBPath:       getEnv("DB_PATH", "./bookstore.db"),
		UploadDir:    getEnv("UPLOAD_DIR", "./uploads"),
		CookieDomain: getEnv("COOKIE_DOMAIN", ""),
		CookieSecure: getEnv("COOKIE_SECURE", "false") == "true",
		LogLevel:     strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	// gorilla/csrf requires exactly 32 bytes.
	cfg.CSRFKey = loadKey("CSRF_KEY", 32)
	if len(cfg.CSRFKey) > 32 {
		cfg.CSRFKey = cfg.CSRFKey[:32]
	}
	cfg.SessionKey = loadKey("SESSION_KEY", 32)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SlogLevel maps LogLevel to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadKey decodes a base64 key from the environment. A missing or short key
// is replaced by a random one, which invalidates cookies on every restart.
func loadKey(name string, minLen int) []byte {
	raw := os.Getenv(name)
	if raw == "" {
		slog.Warn(name+" not set. Generating a random key; sessions will not survive a restart. Set it in production!", "env", name)
		return generateRandomBytes(minLen)
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(decoded) < minLen {
		slog.Warn(name+" is invalid or too short. Generating a random key. Set a base64 key of at least 32 bytes in production!", "env", name)
		return generateRandomBytes(minLen)
	}
	return decoded
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(fmt.Sprintf("failed to read random bytes: %v", err))
	}
	return b
}
