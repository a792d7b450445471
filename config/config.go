// Package config loads service configuration from the environment.
// A .env file is honored when present so local development does not need
// exported variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultProviders are the resolvers enabled when PROVIDERS is unset.
const DefaultProviders = "aws,azure,gcp"

// ProviderConfig holds per-provider resolver settings.
type ProviderConfig struct {
	// Name is the provider identifier ("aws", "azure", "gcp").
	Name string

	// Enabled controls whether the resolver is built at startup.
	Enabled bool

	// APIKey authenticates the provider's pricing API where one is used
	// (GCP Cloud Billing catalog).
	APIKey string

	// UseSDK enables the credentialed SDK fallback source (AWS Pricing API).
	// Credentials themselves come from the provider's standard chain.
	UseSDK bool

	// BaseURL overrides the public pricing endpoint. Used in tests.
	BaseURL string
}

// Config is the full service configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port int

	// LogFormat selects "json" or "pretty" console output.
	LogFormat string

	// LogLevel is the minimum slog level ("debug", "info", "warn", "error").
	LogLevel string

	// MetricsEnabled exposes /metrics when true.
	MetricsEnabled bool

	// MasterKey, when set, requires Bearer authentication on the API
	// routes. Health and metrics stay public.
	MasterKey string

	// RedisURL enables the Redis cache backend when non-empty; otherwise
	// the in-memory store is used.
	RedisURL string

	// CacheTTL is how long successful price resolutions are cached.
	CacheTTL time.Duration

	// NegativeCacheTTL is how long resolution failures are cached.
	NegativeCacheTTL time.Duration

	// CatalogPath overrides the built-in service equivalency table.
	CatalogPath string

	// CompareTimeout bounds each provider's resolution during a comparison.
	CompareTimeout time.Duration

	// Providers holds per-provider settings keyed by name.
	Providers map[string]ProviderConfig
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	// Missing .env is fine; env vars win either way.
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnvInt("PORT", 8080),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		MetricsEnabled:   getEnvBool("METRICS_ENABLED", true),
		MasterKey:        getEnv("MASTER_KEY", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		CacheTTL:         getEnvDuration("CACHE_TTL", 24*time.Hour),
		NegativeCacheTTL: getEnvDuration("NEGATIVE_CACHE_TTL", 5*time.Minute),
		CatalogPath:      getEnv("CATALOG_PATH", ""),
		CompareTimeout:   getEnvDuration("COMPARE_TIMEOUT", 60*time.Second),
		Providers:        make(map[string]ProviderConfig),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "pretty" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q (want json or pretty)", cfg.LogFormat)
	}

	enabled := strings.Split(getEnv("PROVIDERS", DefaultProviders), ",")
	for _, name := range enabled {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		pc := ProviderConfig{Name: name, Enabled: true}
		switch name {
		case "aws":
			pc.UseSDK = getEnvBool("AWS_PRICING_SDK", false)
			pc.BaseURL = getEnv("AWS_PRICING_BASE_URL", "")
		case "azure":
			pc.BaseURL = getEnv("AZURE_RETAIL_BASE_URL", "")
		case "gcp":
			pc.APIKey = getEnv("GCP_BILLING_API_KEY", "")
			pc.BaseURL = getEnv("GCP_BILLING_BASE_URL", "")
		default:
			return nil, fmt.Errorf("unknown provider %q in PROVIDERS", name)
		}
		cfg.Providers[name] = pc
	}
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("PROVIDERS enables no providers")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvDuration accepts either plain integers (seconds) or Go duration
// strings ("10m", "1h30m").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	return defaultVal
}
