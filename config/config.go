// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every value the server needs at startup.
type Config struct {
	Port     string
	LogLevel string
	GinMode  string

	// CORSOrigins always includes the local dev servers; FRONTEND_URL adds more.
	CORSOrigins []string

	DatabaseURL string

	AmadeusClientID     string
	AmadeusClientSecret string
	AmadeusEnv          string

	TavilyAPIKey      string
	PexelsAPIKey      string
	HuggingFaceAPIKey string
	HFImageModel      string

	// HTTPTimeout applies to every outbound provider call. Clamped to 10–30s.
	HTTPTimeout time.Duration

	// ConcurrentLegs fans destination lookups out in parallel.
	ConcurrentLegs bool
}

// Load reads configuration from the environment. It returns an error naming
// every variable that holds an unparseable value.
func Load() (Config, error) {
	cfg := Config{
		Port:                getEnv("PORT", "8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		GinMode:             os.Getenv("GIN_MODE"),
		CORSOrigins:         append([]string{"http://localhost:5173", "http://localhost:3000"}, splitCSV(os.Getenv("FRONTEND_URL"))...),
		DatabaseURL:         buildDSN(),
		AmadeusClientID:     os.Getenv("AMADEUS_CLIENT_ID"),
		AmadeusClientSecret: os.Getenv("AMADEUS_CLIENT_SECRET"),
		AmadeusEnv:          getEnv("AMADEUS_ENV", "test"),
		TavilyAPIKey:        os.Getenv("TAVILY_API_KEY"),
		PexelsAPIKey:        os.Getenv("PEXELS_API_KEY"),
		HuggingFaceAPIKey:   os.Getenv("HUGGINGFACE_API_KEY"),
		HFImageModel:        os.Getenv("HF_IMAGE_MODEL"),
	}

	var invalid []string

	secs, err := strconv.Atoi(getEnv("HTTP_TIMEOUT_SECONDS", "20"))
	if err != nil {
		invalid = append(invalid, "HTTP_TIMEOUT_SECONDS")
	}
	cfg.HTTPTimeout = time.Duration(min(max(secs, 10), 30)) * time.Second

	if v := os.Getenv("CONCURRENT_LEGS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			invalid = append(invalid, "CONCURRENT_LEGS")
		}
		cfg.ConcurrentLegs = b
	}

	switch cfg.AmadeusEnv {
	case "test", "production":
	default:
		invalid = append(invalid, "AMADEUS_ENV")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

// buildDSN prefers DATABASE_URL and otherwise assembles a key/value DSN from
// the individual DB_* variables.
func buildDSN() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	pass := getEnv("DB_PASSWORD", "postgres")
	name := getEnv("DB_NAME", "tripplanner")
	sslmode := getEnv("DB_SSLMODE", "disable")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, pass, name, sslmode)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
