// Package config loads the bot configuration from an optional YAML file
// with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
)

// Config is the full process configuration.
type Config struct {
	Telegram Telegram `yaml:"telegram"`
	Storage  Storage  `yaml:"storage"`
	Bot      Bot      `yaml:"bot"`
	Notify   Notify   `yaml:"notify"`
	Metrics  Metrics  `yaml:"metrics"`
}

type Telegram struct {
	Token       string  `yaml:"token" env:"BONI_TELEGRAM_TOKEN"`
	PollTimeout int     `yaml:"poll_timeout" env:"BONI_TELEGRAM_POLL_TIMEOUT"`
	SendRPS     float64 `yaml:"send_rps" env:"BONI_TELEGRAM_SEND_RPS"`
}

type Storage struct {
	Backend       string        `yaml:"backend" env:"BONI_STORAGE_BACKEND"`
	SQLitePath    string        `yaml:"sqlite_path" env:"BONI_SQLITE_PATH"`
	BridgeURL     string        `yaml:"bridge_url" env:"BONI_BRIDGE_URL"`
	BridgeKey     string        `yaml:"bridge_key" env:"BONI_BRIDGE_KEY"`
	BridgeTimeout time.Duration `yaml:"bridge_timeout" env:"BONI_BRIDGE_TIMEOUT"`
}

type Bot struct {
	// AdminPassphrase elevates a user to admin when sent as a message.
	// Empty disables elevation.
	AdminPassphrase  string `yaml:"admin_passphrase" env:"BONI_ADMIN_PASSPHRASE"`
	MismatchReprompt bool   `yaml:"mismatch_reprompt" env:"BONI_MISMATCH_REPROMPT"`
}

type Notify struct {
	NATSURL       string `yaml:"nats_url" env:"BONI_NATS_URL"`
	SubjectPrefix string `yaml:"subject_prefix" env:"BONI_NOTIFY_SUBJECT_PREFIX"`
}

type Metrics struct {
	Addr string `yaml:"addr" env:"BONI_METRICS_ADDR"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Telegram: Telegram{PollTimeout: 60, SendRPS: 25},
		Storage: Storage{
			Backend:       BackendSQLite,
			SQLitePath:    "boni.db",
			BridgeTimeout: 15 * time.Second,
		},
		Notify: Notify{SubjectPrefix: "boni.notify"},
	}
}

// Load reads path (if non-empty) over the defaults, then applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	return load(path, nil)
}

// load takes an explicit environment for tests. A nil environ reads the
// process environment.
func load(path string, environ map[string]string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the settings every command needs. The telegram token is
// checked separately by RequireToken since only `run` needs it.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for the sqlite backend"))
		}
	case BackendSheets:
		if c.Storage.BridgeURL == "" {
			errs = append(errs, errors.New("storage.bridge_url is required for the sheets backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be %q or %q, got %q",
			BackendSQLite, BackendSheets, c.Storage.Backend))
	}
	if c.Telegram.PollTimeout < 0 {
		errs = append(errs, errors.New("telegram.poll_timeout must not be negative"))
	}
	if c.Storage.BridgeTimeout < 0 {
		errs = append(errs, errors.New("storage.bridge_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// RequireToken reports a missing telegram token.
func (c Config) RequireToken() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram.token is required (set BONI_TELEGRAM_TOKEN)")
	}
	return nil
}
