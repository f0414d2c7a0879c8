// internal/config/config.go
//
// Process configuration from the environment.
// A .env file, if present, is loaded first (development convenience);
// real environment variables win over it.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is every knob the server and CLI read.
type Config struct {
	Port     string `env:"PORT" envDefault:"8008"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	DBPath   string `env:"DB_PATH" envDefault:"./data/tab.db"` // "memory" for an ephemeral store

	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiresDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	ClientOrigin   string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`

	GameTimeout   time.Duration `env:"GAME_TIMEOUT" envDefault:"2m"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1s"`

	CPUPolicy string `env:"CPU_POLICY" envDefault:"greedy"`
	CPUDepth  int    `env:"CPU_DEPTH" envDefault:"2"`
	CPUScript string `env:"CPU_SCRIPT"` // path to a Lua scoring script
}

// JWTTTL is the lifetime of issued bearer tokens.
func (c Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTExpiresDays) * 24 * time.Hour
}

// Load reads .env (if any) and parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the environment only.
func Parse() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch {
	case c.GameTimeout <= 0:
		return errors.New("GAME_TIMEOUT must be positive")
	case c.SweepInterval <= 0:
		return errors.New("SWEEP_INTERVAL must be positive")
	case c.JWTExpiresDays <= 0:
		return errors.New("JWT_EXPIRES_DAYS must be positive")
	}
	return nil
}
