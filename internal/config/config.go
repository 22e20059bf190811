// Package config loads service configuration from the environment. A .env
// file in the working directory is honoured for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the full service configuration. Secrets are plain strings here;
// consumers move them into enclaves at construction time.
type Config struct {
	Env        string
	ListenAddr string
	DataDir    string

	AdminPassword      string
	AdminSessionSecret string

	AssistantAPIKey  string
	AssistantName    string
	AssistantBaseURL string
	ChatInstructions string

	ApifyToken  string
	CrawlerSite string
	StoreURL    string
	BlogHandle  string

	ResendAPIKey      string
	EmailFrom         string
	NotificationEmail string

	StatsTimeZone string
}

// Load reads configuration from the environment, first loading a .env file
// when one exists. Missing optional values fall back to defaults; the fields
// the admin surface depends on are validated by the components that consume
// them, not here, so a partially configured service can still start and
// report its misconfiguration.
func Load() (*Config, error) {
	// absence of a .env file is the normal production case
	_ = godotenv.Load()

	cfg := &Config{
		Env:        getenv("SPACHAT_ENV", "development"),
		ListenAddr: getenv("LISTEN_ADDR", ":8080"),
		DataDir:    getenv("DATA_DIR", "./data"),

		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
		AdminSessionSecret: os.Getenv("ADMIN_SESSION_SECRET"),

		AssistantAPIKey:  os.Getenv("PINECONE_API_KEY"),
		AssistantName:    os.Getenv("PINECONE_ASSISTANT_NAME"),
		AssistantBaseURL: os.Getenv("PINECONE_BASE_URL"),
		ChatInstructions: os.Getenv("CHAT_INSTRUCTIONS"),

		ApifyToken:  os.Getenv("APIFY_API_TOKEN"),
		CrawlerSite: os.Getenv("CRAWLER_SITE_URL"),
		StoreURL:    os.Getenv("SHOPIFY_STORE_URL"),
		BlogHandle:  getenv("SHOPIFY_BLOG_HANDLE", "news"),

		ResendAPIKey:      os.Getenv("RESEND_API_KEY"),
		EmailFrom:         os.Getenv("EMAIL_FROM"),
		NotificationEmail: os.Getenv("NOTIFICATION_EMAIL"),

		StatsTimeZone: os.Getenv("STATS_TIMEZONE"),
	}

	if port := os.Getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.ListenAddr = ":" + port
	}
	return cfg, nil
}

// Production reports whether the service runs in a production environment.
// It controls, among other things, whether session cookies are forced Secure.
func (c *Config) Production() bool {
	return c.Env == "production"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
