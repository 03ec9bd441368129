package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers.
const (
	DriverSupabase = "supabase"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP client
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`

	// Resilience
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"3"`
	InitialBackoff time.Duration `env:"INITIAL_BACKOFF" envDefault:"100ms"`
	MaxConcurrency int           `env:"MAX_CONCURRENCY" envDefault:"8"`

	// Cache
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"30s"`

	// Observability; tracing is off when empty.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// Store
	StoreDriver        string `env:"STORE_DRIVER" envDefault:"supabase"`
	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseAnonKey    string `env:"SUPABASE_ANON_KEY"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`
	SQLitePath         string `env:"SQLITE_PATH" envDefault:"onboarding.db"`

	// Payment processor webhook signing secret
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`

	// Sender registry
	RegistryURL       string `env:"REGISTRY_URL" envDefault:"https://csp-api.campaignregistry.com"`
	RegistryAPIKey    string `env:"REGISTRY_API_KEY"`
	RegistryAPISecret string `env:"REGISTRY_API_SECRET"`

	// Auth provider token verification (HS256 shared secret).
	AuthJWTSecret string `env:"AUTH_JWT_SECRET"`

	// Onboarding
	SkipRegistryVerification bool          `env:"SKIP_REGISTRY_VERIFICATION" envDefault:"false"`
	RepairGracePeriod        time.Duration `env:"REPAIR_GRACE_PERIOD" envDefault:"10m"`
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	return &cfg, nil
}

// Validate checks the settings a serving process cannot run without.
func (c *Config) Validate() error {
	missing, err := c.storeMissing()
	if err != nil {
		return err
	}
	if c.StripeWebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if c.AuthJWTSecret == "" {
		missing = append(missing, "AUTH_JWT_SECRET")
	}
	return missingErr(missing)
}

// ValidateStore checks only the store settings, for offline jobs.
func (c *Config) ValidateStore() error {
	missing, err := c.storeMissing()
	if err != nil {
		return err
	}
	return missingErr(missing)
}

func (c *Config) storeMissing() ([]string, error) {
	var missing []string
	switch c.StoreDriver {
	case DriverSupabase:
		if c.SupabaseURL == "" {
			missing = append(missing, "SUPABASE_URL")
		}
		if c.SupabaseServiceKey == "" {
			missing = append(missing, "SUPABASE_SERVICE_ROLE_KEY")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			missing = append(missing, "SQLITE_PATH")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want %s or %s)", c.StoreDriver, DriverSupabase, DriverSQLite)
	}
	return missing, nil
}

func missingErr(missing []string) error {
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
