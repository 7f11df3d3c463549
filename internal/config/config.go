// Package config reads the server options from command-line flags and the
// environment. An optional .env file in the working directory is loaded
// first; variables already set in the environment win over it.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/umputun/go-flags"
)

const minSecretLen = 16

type Config struct {
	Port      int    `long:"port" env:"PORT" default:"3000" description:"HTTP port"`
	DBPath    string `long:"db" env:"DB_PATH" default:"data/tracker.db" description:"database image file"`
	Env       string `long:"env" env:"APP_ENV" default:"development" description:"environment name reported by /api/health"`
	BodyLimit int64  `long:"body-limit" env:"BODY_LIMIT" default:"10240" description:"max request body size in bytes"`
	Dbg       bool   `long:"dbg" env:"DEBUG" description:"debug logging"`

	JWT struct {
		Secret  string        `long:"secret" env:"SECRET" description:"token signing secret, at least 16 characters"`
		Expires time.Duration `long:"expires" env:"EXPIRES_IN" default:"168h" description:"token lifetime"`
	} `group:"jwt" namespace:"jwt" env-namespace:"JWT"`

	BcryptCost int `long:"bcrypt-cost" env:"BCRYPT_COST" default:"12" description:"bcrypt work factor"`

	Rate struct {
		API    int           `long:"api" env:"API" default:"100" description:"requests per window on /api"`
		Auth   int           `long:"auth" env:"AUTH" default:"20" description:"requests per window on /api/auth"`
		Window time.Duration `long:"window" env:"WINDOW" default:"15m" description:"rate limit window"`
	} `group:"rate" namespace:"rate" env-namespace:"RATE"`

	Log struct {
		File       string `long:"file" env:"FILE" description:"also write logs to this file, rotated"`
		MaxSize    int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max log file size in MB"`
		MaxBackups int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"rotated files to keep"`
		MaxAge     int    `long:"max-age" env:"MAX_AGE" default:"30" description:"days to keep rotated files"`
	} `group:"log" namespace:"log" env-namespace:"LOG"`
}

// ErrHelp is returned when the user asked for --help. The usage text has
// already been written.
var ErrHelp = errors.New("help requested")

// Load parses args (without the program name) on top of the environment and
// validates the result. Usage and parse errors are written to stderr.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}
	return parse(args, os.Stderr)
}

func parse(args []string, out io.Writer) (*Config, error) {
	var cfg Config
	p := flags.NewParser(&cfg, flags.Default&^flags.PrintErrors)
	if _, err := p.ParseArgs(args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Fprintln(out, err)
			return nil, ErrHelp
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case len(c.JWT.Secret) < minSecretLen:
		return fmt.Errorf("config: JWT_SECRET must be at least %d characters", minSecretLen)
	case c.JWT.Expires <= 0:
		return errors.New("config: JWT_EXPIRES_IN must be positive")
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("config: invalid port %d", c.Port)
	case c.DBPath == "":
		return errors.New("config: DB_PATH must not be empty")
	case c.BodyLimit <= 0:
		return errors.New("config: BODY_LIMIT must be positive")
	case c.Rate.API <= 0 || c.Rate.Auth <= 0 || c.Rate.Window <= 0:
		return errors.New("config: rate limits and window must be positive")
	}
	return nil
}
