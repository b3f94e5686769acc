// Package config loads application configuration from environment variables.
//
// Configuration is read once at startup and passed down explicitly. Required
// values have no defaults — the server refuses to start without them, which
// surfaces misconfiguration immediately instead of at the first request.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the server needs to run.
//
// Struct tags drive parsing via caarlos0/env: `env` names the variable,
// `envDefault` supplies a fallback, and `required` makes Load fail when the
// variable is absent or empty.
type Config struct {
	Port int    `env:"PORT" envDefault:"3001"`
	Env  string `env:"APP_ENV" envDefault:"development"`

	// SQLite database file. ":memory:" is valid and used by tests.
	DBPath string `env:"DB_PATH" envDefault:"data/afy.db"`

	// Supabase project URL and the service-role key. The service-role key
	// bypasses row-level security — it must never reach a client.
	SupabaseURL        string `env:"SUPABASE_URL,required,notEmpty"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_ROLE_KEY,required,notEmpty"`

	// Independent signing secrets for the access and refresh token domains.
	// Two secrets limit the blast radius if one leaks: a stolen access
	// secret cannot forge refresh tokens and extend sessions indefinitely.
	JWTAccessSecret  string `env:"JWT_ACCESS_SECRET,required,notEmpty"`
	JWTRefreshSecret string `env:"JWT_REFRESH_SECRET,required,notEmpty"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	return &cfg, nil
}

// IsDevelopment reports whether the server runs in development mode.
// Development mode includes internal error detail in 500 responses.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
