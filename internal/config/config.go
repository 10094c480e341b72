package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field maps to an
// environment variable (see the env tags); nested sections carry their own
// prefix.  Only JWT_SECRET is mandatory.
type Config struct {
	Env       string `env:"APP_ENV" envDefault:"dev"`     // application environment (dev/test/prod)
	Port      string `env:"APP_PORT" envDefault:"8080"`   // HTTP port to listen on
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`  // debug, info, warn, error
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // text or json
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"` // secret used to verify access tokens

	DB        DBConfig        `envPrefix:"DB_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Realtime  RealtimeConfig  `envPrefix:"REALTIME_"`
	Reward    RewardConfig    `envPrefix:"REWARD_"`
	Dispatch  DispatchConfig  `envPrefix:"DISPATCH_"`

	// CapabilityTTL bounds how long a schema probe result is trusted before
	// the optional columns are probed again.
	CapabilityTTL time.Duration `env:"CAPABILITY_TTL" envDefault:"10m"`
	// LegacyDateFallback keeps matching unlinked reservations by venue and
	// date.  Turn it off once `backfill` has assigned every event_id.
	LegacyDateFallback bool `env:"LEGACY_DATE_FALLBACK" envDefault:"true"`
}

// DBConfig describes the relational store.  Driver is "mysql" in
// production; "sqlite" opens the file at Path and is meant for local runs.
type DBConfig struct {
	Driver string `env:"DRIVER" envDefault:"mysql"`
	User   string `env:"USER" envDefault:"root"`
	Pass   string `env:"PASS"`
	Host   string `env:"HOST" envDefault:"127.0.0.1"`
	Port   string `env:"PORT" envDefault:"3306"`
	Name   string `env:"NAME" envDefault:"venue_checkin"`
	Path   string `env:"PATH" envDefault:"venue_checkin.db"`
}

// RewardConfig points at the external gifts service.  An empty URL
// disables rewards entirely.
type RewardConfig struct {
	URL     string        `env:"SERVICE_URL"`
	Token   string        `env:"SERVICE_TOKEN"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"3s"`
}

// DispatchConfig sizes the in-process side-effect dispatcher.
type DispatchConfig struct {
	Workers int `env:"WORKERS" envDefault:"4"`
	Buffer  int `env:"BUFFER" envDefault:"256"`
}

// Load reads an optional .env file and then parses the environment into a
// Config.  A missing .env file is not an error; a missing required variable
// is.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.RateLimit = cfg.RateLimit.normalize()
	if cfg.Dispatch.Workers < 1 {
		cfg.Dispatch.Workers = 1
	}
	if cfg.Dispatch.Buffer < 1 {
		cfg.Dispatch.Buffer = 1
	}
	return cfg, nil
}
