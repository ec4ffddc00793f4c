package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// Shopify app credentials. The API secret signs both webhook HMACs and
	// app-proxy request signatures.
	ShopifyAPIKey     string
	ShopifyAPISecret  string
	ShopifyAPIVersion string

	// External fashion-photo generation service.
	FashionAPIBaseURL string
	FashionAPIKey     string
	FashionAPITimeout time.Duration

	StorageBaseURL string
	StoragePath    string
	GeoIPDBPath    string

	// Origins allowed to call the widget-facing endpoints from the browser.
	WidgetOrigins []string
	DefaultLocale string

	WorkerPollInterval  time.Duration
	ProviderPollEvery   time.Duration
	ProviderPollBudget  int
	WebhookTimeout      time.Duration
	HTTPReadTimeout     time.Duration
	HTTPWriteTimeout    time.Duration
	HTTPIdleTimeout     time.Duration
	RateLimitPerMin     int
	ExportDownloadLimit int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		ShopifyAPIKey:       os.Getenv("SHOPIFY_API_KEY"),
		ShopifyAPISecret:    os.Getenv("SHOPIFY_API_SECRET"),
		ShopifyAPIVersion:   getEnv("SHOPIFY_API_VERSION", "2025-07"),
		FashionAPIBaseURL:   getEnv("FASHION_API_BASE_URL", "https://api.fashionphoto.ai/v1"),
		FashionAPIKey:       os.Getenv("FASHION_API_KEY"),
		FashionAPITimeout:   time.Second * time.Duration(getEnvInt("FASHION_API_TIMEOUT_SECONDS", 60)),
		StorageBaseURL:      getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		StoragePath:         getEnv("STORAGE_PATH", "./storage"),
		GeoIPDBPath:         os.Getenv("GEOIP_DB_PATH"),
		WidgetOrigins:       splitCSV(os.Getenv("WIDGET_ORIGINS")),
		DefaultLocale:       getEnv("DEFAULT_LOCALE", "en"),
		WorkerPollInterval:  time.Second * time.Duration(getEnvInt("WORKER_POLL_INTERVAL_SECONDS", 2)),
		ProviderPollEvery:   time.Second * time.Duration(getEnvInt("PROVIDER_POLL_INTERVAL_SECONDS", 5)),
		ProviderPollBudget:  getEnvInt("PROVIDER_POLL_MAX_ATTEMPTS", 120),
		WebhookTimeout:      time.Second * time.Duration(getEnvInt("WEBHOOK_TIMEOUT_SECONDS", 10)),
		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:     getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		ExportDownloadLimit: getEnvInt("EXPORT_DOWNLOAD_LIMIT", 50),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.ShopifyAPISecret == "" {
		return nil, fmt.Errorf("SHOPIFY_API_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
