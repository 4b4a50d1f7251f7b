package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the server's environment-driven settings.
type Config struct {
	HTTPAddr        string
	DatabaseURL     string
	KafkaBrokers    []string
	DefaultCurrency string
}

// Load reads configuration from the environment. A .env file is loaded first
// when present; real environments set variables directly.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		KafkaBrokers:    getEnvAsSlice("KAFKA_BROKERS"),
		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "USD"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsSlice(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
