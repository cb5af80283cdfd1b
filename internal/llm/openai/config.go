package openai

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// Config for the Azure OpenAI vision client.
type Config struct {
	Endpoint    string // https://<resource>.openai.azure.com; falls back to env AZURE_OPENAI_ENDPOINT
	APIKey      string // falls back to env AZURE_OPENAI_API_KEY
	Deployment  string // e.g. "gpt-5-chat"
	APIVersion  string
	Temperature float32 // low temperature keeps the analysis consistent
	MaxTokens   int
	Timeout     time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("AZURE_OPENAI_API_KEY")
	}
	if cfg.Deployment == "" {
		cfg.Deployment = "gpt-5-chat"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-12-01-preview"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}
