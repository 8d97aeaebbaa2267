package config

import "github.com/kelseyhightower/envconfig"

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"VERSION" default:"dev"`

	DatabaseURL   string `envconfig:"DATABASE_URL" required:"true"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`

	// ProviderURL is the base URL of the GoTrue-compatible identity provider.
	ProviderURL       string `envconfig:"PROVIDER_URL" required:"true"`
	ProviderJWTSecret string `envconfig:"PROVIDER_JWT_SECRET" required:"true"`
	// ProviderTimeoutSeconds bounds the session recovery call on startup.
	ProviderTimeoutSeconds int `envconfig:"PROVIDER_TIMEOUT_SECONDS" default:"5"`

	// Surface names the application surface this deployment serves, used for
	// surface role tagging.
	Surface string `envconfig:"SURFACE" default:"admin_portal"`

	// ServiceKeyHash is the bcrypt hash of the operator service key that
	// guards allowlist management.
	ServiceKeyHash string `envconfig:"SERVICE_KEY_HASH" required:"true"`

	ReconcileQueueSize int `envconfig:"RECONCILE_QUEUE_SIZE" default:"64"`

	SignInRateLimit float64 `envconfig:"SIGNIN_RATE_LIMIT" default:"1"`
	SignInRateBurst int     `envconfig:"SIGNIN_RATE_BURST" default:"5"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
