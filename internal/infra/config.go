package infra

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv   string `env:"APP_ENV, default=development"`
	Port     string `env:"PORT, default=8080"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	GeoIPDBPath string `env:"GEOIP_DB_PATH"`

	// GoogleClientID is handed to the front end for one-tap sign-in; the
	// server never talks to Google itself.
	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`

	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS, default=http://localhost:3000"`

	HTTPReadTimeoutSeconds  int `env:"HTTP_READ_TIMEOUT_SECONDS, default=15"`
	HTTPWriteTimeoutSeconds int `env:"HTTP_WRITE_TIMEOUT_SECONDS, default=0"`
	HTTPIdleTimeoutSeconds  int `env:"HTTP_IDLE_TIMEOUT_SECONDS, default=60"`

	APIRatePerSecond     float64 `env:"API_RATE_PER_SECOND, default=5"`
	APIRateBurst         int     `env:"API_RATE_BURST, default=20"`
	DailyGenerationLimit int     `env:"DAILY_GENERATION_LIMIT, default=5"`
	QuotaTimezone        string  `env:"QUOTA_TIMEZONE, default=Local"`

	OpenAI      OpenAIConfig
	Image       ImageConfig
	WooCommerce WooCommerceConfig
	Supabase    SupabaseConfig
	Storage     StorageConfig

	HTTPReadTimeout      time.Duration
	HTTPWriteTimeout     time.Duration
	HTTPIdleTimeout      time.Duration
	QuotaLocation        *time.Location
	ImageSourceAllowlist []string
}

// OpenAIConfig configures the chat completion upstream used for prompt enhancement.
type OpenAIConfig struct {
	APIKey    string `env:"OPENAI_API_KEY"`
	BaseURL   string `env:"OPENAI_BASE_URL, default=https://api.openai.com/v1"`
	ChatModel string `env:"OPENAI_CHAT_MODEL, default=gpt-4o-mini"`
}

// ImageConfig configures the image generation upstream.
type ImageConfig struct {
	APIKey  string `env:"IMAGE_API_KEY"`
	BaseURL string `env:"IMAGE_BASE_URL, default=https://api.openai.com/v1"`
	Model   string `env:"IMAGE_MODEL, default=dall-e-3"`
}

// WooCommerceConfig configures the order management upstream.
type WooCommerceConfig struct {
	URL            string `env:"WOOCOMMERCE_URL"`
	ConsumerKey    string `env:"WOOCOMMERCE_CONSUMER_KEY"`
	ConsumerSecret string `env:"WOOCOMMERCE_CONSUMER_SECRET"`
}

// SupabaseConfig configures the hosted backend.
type SupabaseConfig struct {
	URL           string `env:"SUPABASE_URL"`
	AnonKey       string `env:"SUPABASE_ANON_KEY"`
	ServiceKey    string `env:"SUPABASE_SERVICE_KEY"`
	JWTSecret     string `env:"SUPABASE_JWT_SECRET"`
	StorageBucket string `env:"SUPABASE_STORAGE_BUCKET, default=designs"`
}

// StorageConfig configures the local filesystem store used when Supabase is absent.
type StorageConfig struct {
	Path      string `env:"STORAGE_PATH, default=./storage"`
	BaseURL   string `env:"STORAGE_BASE_URL"`
	Allowlist string `env:"IMAGE_SOURCE_HOST_ALLOWLIST"`
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if strings.TrimSpace(cfg.Storage.BaseURL) == "" {
		cfg.Storage.BaseURL = fmt.Sprintf("http://localhost:%s/static", cfg.Port)
	}
	cfg.HTTPReadTimeout = time.Second * time.Duration(cfg.HTTPReadTimeoutSeconds)
	cfg.HTTPWriteTimeout = time.Second * time.Duration(cfg.HTTPWriteTimeoutSeconds)
	cfg.HTTPIdleTimeout = time.Second * time.Duration(cfg.HTTPIdleTimeoutSeconds)

	if cfg.DailyGenerationLimit <= 0 {
		return nil, fmt.Errorf("DAILY_GENERATION_LIMIT must be positive")
	}
	loc, err := time.LoadLocation(cfg.QuotaTimezone)
	if err != nil {
		return nil, fmt.Errorf("QUOTA_TIMEZONE: %w", err)
	}
	cfg.QuotaLocation = loc
	cfg.ImageSourceAllowlist = buildAllowlist(cfg.ownedImageBaseURL(), cfg.Storage.Allowlist)

	return cfg, nil
}

// UsesSupabaseStorage reports whether generated images go to the Supabase bucket.
func (c *Config) UsesSupabaseStorage() bool {
	return strings.TrimSpace(c.Supabase.URL) != "" && strings.TrimSpace(c.Supabase.ServiceKey) != ""
}

// CORSOrigins splits the configured origin list.
func (c *Config) CORSOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

func (c *Config) ownedImageBaseURL() string {
	if c.UsesSupabaseStorage() {
		return c.Supabase.URL
	}
	return c.Storage.BaseURL
}

func buildAllowlist(baseURL, explicit string) []string {
	seen := map[string]struct{}{}
	if u, err := url.Parse(strings.TrimSpace(baseURL)); err == nil && u.Hostname() != "" {
		seen[strings.ToLower(u.Hostname())] = struct{}{}
	}
	for _, host := range splitList(explicit) {
		seen[strings.ToLower(host)] = struct{}{}
	}
	hosts := make([]string, 0, len(seen))
	for host := range seen {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
