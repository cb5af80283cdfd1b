package common

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all process-level configuration, loaded once at startup from
// the environment and passed by reference into the components that need it.
type Config struct {
	Service ServiceConfig
	Extract ExtractConfig
	Batch   BatchConfig
}

// ServiceConfig holds inference-service credentials and request knobs.
type ServiceConfig struct {
	Endpoint    string // e.g. https://your-resource.openai.azure.com
	APIKey      string
	Deployment  string
	APIVersion  string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// ExtractConfig holds document-extraction knobs.
type ExtractConfig struct {
	Pdftotext string // binary name or absolute path
	Pdftoppm  string
	DPI       int
	MaxPages  int // 0 = no limit
}

// BatchConfig holds orchestration knobs.
type BatchConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	Concurrency int
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Endpoint:    getEnv("AZURE_OPENAI_ENDPOINT", ""),
			APIKey:      getEnv("AZURE_OPENAI_API_KEY", ""),
			Deployment:  getEnv("AZURE_OPENAI_DEPLOYMENT", "gpt-5-chat"),
			APIVersion:  getEnv("AZURE_OPENAI_API_VERSION", "2024-12-01-preview"),
			Temperature: getEnvAsFloat32("AZURE_OPENAI_TEMPERATURE", 0.1),
			MaxTokens:   getEnvAsInt("AZURE_OPENAI_MAX_TOKENS", 2000),
			Timeout:     getEnvAsDuration("AZURE_OPENAI_TIMEOUT", 120*time.Second),
		},
		Extract: ExtractConfig{
			Pdftotext: getEnv("PDFTOTEXT", "pdftotext"),
			Pdftoppm:  getEnv("PDFTOPPM", "pdftoppm"),
			DPI:       getEnvAsInt("EXTRACT_DPI", 300),
			MaxPages:  getEnvAsInt("EXTRACT_MAX_PAGES", 0),
		},
		Batch: BatchConfig{
			MaxAttempts: getEnvAsInt("BATCH_MAX_ATTEMPTS", 3),
			BaseDelay:   getEnvAsDuration("BATCH_BASE_DELAY", 2*time.Second),
			Multiplier:  getEnvAsFloat64("BATCH_BACKOFF_MULTIPLIER", 2.0),
			Concurrency: getEnvAsInt("BATCH_CONCURRENCY", 1),
		},
	}
}

// Validate checks the parts of the configuration that analysis commands
// cannot run without. A failure here is fatal before any work starts.
func (c *Config) Validate() error {
	if c.Service.Endpoint == "" {
		return fmt.Errorf("%s: AZURE_OPENAI_ENDPOINT is required", KindConfig)
	}
	if c.Service.APIKey == "" {
		return fmt.Errorf("%s: AZURE_OPENAI_API_KEY is required", KindConfig)
	}
	if c.Batch.MaxAttempts < 1 {
		return fmt.Errorf("%s: BATCH_MAX_ATTEMPTS must be >= 1", KindConfig)
	}
	return nil
}

// Helper functions for environment variable parsing.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
