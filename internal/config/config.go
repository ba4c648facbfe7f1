// Package config loads the server configuration from YAML with
// BOTCANVAS_* environment overrides.
//
// Precedence, lowest first: defaults, file, environment. Command line
// flags are applied by the caller after Load.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "BOTCANVAS_"

// Config is the root server configuration.
type Config struct {
	HTTP       HTTP       `yaml:"http"`
	Redis      Redis      `yaml:"redis"`
	Storage    Storage    `yaml:"storage"`
	Encryption Encryption `yaml:"encryption"`
	Redaction  Redaction  `yaml:"redaction"`
	Log        Log        `yaml:"log"`
	Templates  string     `yaml:"templates"`
}

type HTTP struct {
	Addr            string        `yaml:"addr" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
}

// Redis is disabled when Addr is empty.
type Redis struct {
	Addr     string        `yaml:"addr" validate:"omitempty,hostname_port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"min=0,max=15"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl" validate:"min=0"`
}

// Storage keeps documents as JSON files under Dir when Redis is disabled.
type Storage struct {
	Dir string `yaml:"dir"`
}

// Encryption holds the AES-256 key as standard base64. Empty disables it.
type Encryption struct {
	Key string `yaml:"key" validate:"omitempty,base64"`
}

// Redaction lists regular expressions masked out of stored documents.
type Redaction struct {
	Patterns []string `yaml:"patterns" validate:"dive,required"`
}

type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	return &Config{
		HTTP: HTTP{
			Addr:            "localhost:8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Redis: Redis{
			Prefix: "botcanvas:doc:",
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads path (optional) and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct rules, the redaction patterns and the
// encryption key length.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	for i, p := range c.Redaction.Patterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("redaction.patterns[%d]: %w", i, err)
		}
	}
	if _, err := c.EncryptionKey(); err != nil {
		return err
	}
	return nil
}

// EncryptionKey decodes the configured key. A nil key means encryption is off.
func (c *Config) EncryptionKey() ([]byte, error) {
	if c.Encryption.Key == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.Encryption.Key)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// SlogLevel maps Log.Level to a slog level.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
		return nil
	}

	str("HTTP_ADDR", &c.HTTP.Addr)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("REDIS_PREFIX", &c.Redis.Prefix)
	str("ENCRYPTION_KEY", &c.Encryption.Key)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("STORAGE_DIR", &c.Storage.Dir)
	str("TEMPLATES", &c.Templates)

	if v, ok := lookup(EnvPrefix + "REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sREDIS_DB: %w", EnvPrefix, err)
		}
		c.Redis.DB = db
	}
	if v, ok := lookup(EnvPrefix + "REDACT_PATTERNS"); ok {
		c.Redaction.Patterns = nil
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.Redaction.Patterns = append(c.Redaction.Patterns, p)
			}
		}
	}
	if err := dur("HTTP_SHUTDOWN_TIMEOUT", &c.HTTP.ShutdownTimeout); err != nil {
		return err
	}
	return dur("REDIS_TTL", &c.Redis.TTL)
}
