package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend selects the result-repository implementation.
const (
	BackendTable  = "table"
	BackendMemory = "memory"
)

type Config struct {
	Host           string
	Port           string
	RequestTimeout time.Duration
	MaxUploadSize  int64

	// Azure storage (blob upload + table persistence)
	StorageAccount  string
	StorageKey      string
	UploadContainer string
	ResultsTable    string
	Backend         string

	// Vision provider
	VisionEndpoint string
	VisionKey      string
	VisionTimeout  time.Duration

	// Text-extraction poll loop
	OCRPollInterval time.Duration
	OCRPollAttempts int

	// Query ceilings
	MaxSearchResults int
	StatsScanLimit   int
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	// Set defaults
	cfg := &Config{
		Host:           getEnvOrDefault("HOST", "0.0.0.0"),
		Port:           getEnvOrDefault("PORT", "8080"),
		RequestTimeout: parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		MaxUploadSize:  parseIntOrDefault("MAX_UPLOAD_SIZE", 4*1024*1024), // 4MB

		StorageAccount:  os.Getenv("STORAGE_ACCOUNT"),
		StorageKey:      os.Getenv("STORAGE_KEY"),
		UploadContainer: getEnvOrDefault("UPLOAD_CONTAINER", "images-upload"),
		ResultsTable:    getEnvOrDefault("RESULTS_TABLE", "ImageAnalysisResults"),
		Backend:         getEnvOrDefault("REPOSITORY_BACKEND", BackendTable),

		VisionEndpoint: os.Getenv("VISION_ENDPOINT"),
		VisionKey:      os.Getenv("VISION_KEY"),
		VisionTimeout:  parseDurationOrDefault("VISION_TIMEOUT", 20*time.Second),

		OCRPollInterval: parseDurationOrDefault("OCR_POLL_INTERVAL", time.Second),
		OCRPollAttempts: int(parseIntOrDefault("OCR_POLL_ATTEMPTS", 10)),

		MaxSearchResults: int(parseIntOrDefault("MAX_SEARCH_RESULTS", 100)),
		StatsScanLimit:   int(parseIntOrDefault("STATS_SCAN_LIMIT", 1000)),
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_SIZE must be > 0 (got %d)", cfg.MaxUploadSize)
	}
	if cfg.RequestTimeout <= 0 || cfg.VisionTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, vision=%s)",
			cfg.RequestTimeout, cfg.VisionTimeout)
	}
	if cfg.OCRPollInterval <= 0 || cfg.OCRPollAttempts <= 0 {
		return nil, fmt.Errorf("OCR poll settings must be > 0 (got interval=%s, attempts=%d)",
			cfg.OCRPollInterval, cfg.OCRPollAttempts)
	}
	if cfg.Backend != BackendTable && cfg.Backend != BackendMemory {
		return nil, fmt.Errorf("invalid REPOSITORY_BACKEND: %q", cfg.Backend)
	}
	if cfg.Backend == BackendTable && (cfg.StorageAccount == "" || cfg.StorageKey == "") {
		return nil, fmt.Errorf("STORAGE_ACCOUNT and STORAGE_KEY are required for the table backend")
	}
	if cfg.MaxSearchResults <= 0 || cfg.StatsScanLimit <= 0 {
		return nil, fmt.Errorf("query ceilings must be > 0 (got search=%d, stats=%d)",
			cfg.MaxSearchResults, cfg.StatsScanLimit)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
