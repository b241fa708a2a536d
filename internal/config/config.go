package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings; everything comes from the
// environment.
type Config struct {
	Addr            string        `env:"PASSGATE_ADDR" envDefault:":8080"`
	TokenSecret     string        `env:"PASSGATE_TOKEN_SECRET"`
	AccessTTL       time.Duration `env:"PASSGATE_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL      time.Duration `env:"PASSGATE_REFRESH_TTL" envDefault:"168h"`
	PGDSN           string        `env:"PASSGATE_PG_DSN"`
	RedisAddr       string        `env:"PASSGATE_REDIS_ADDR"`
	SeedInvitations bool          `env:"PASSGATE_SEED_INVITATIONS" envDefault:"true"`
}

// Load parses and validates configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if len(c.TokenSecret) < 32 {
		return errors.New("config: PASSGATE_TOKEN_SECRET must be at least 32 bytes")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("config: token lifetimes must be positive")
	}
	if c.AccessTTL >= c.RefreshTTL {
		return errors.New("config: PASSGATE_ACCESS_TTL must be shorter than PASSGATE_REFRESH_TTL")
	}
	if c.PGDSN != "" && c.RedisAddr != "" {
		return errors.New("config: configure either PASSGATE_PG_DSN or PASSGATE_REDIS_ADDR, not both")
	}
	return nil
}
