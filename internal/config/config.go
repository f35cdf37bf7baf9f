package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matheus3301/campus/internal/domain"
)

// Config represents the global ~/.campus/config.toml.
type Config struct {
	DefaultInstitute  string   `toml:"default_institute"`
	Identity          Identity `toml:"identity"`
	DatabaseURL       string   `toml:"database_url,omitempty"`
	RedisURL          string   `toml:"redis_url,omitempty"`
	ReadLeaseInterval Duration `toml:"read_lease_interval,omitempty"`
	RequestTimeout    Duration `toml:"request_timeout,omitempty"`
}

// Identity is the locally stored signed-in identity.
type Identity struct {
	ID   string `toml:"id"`
	Role string `toml:"role"`
}

// Duration is a time.Duration written as a string such as "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Resolve builds the effective config: the toml file when present, then the
// variables of envFile (when present, without overriding the real
// environment), then CAMPUS_* environment overrides.
func Resolve(path, envFile string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Environment overrides.
const (
	EnvInstitute         = "CAMPUS_INSTITUTE"
	EnvIdentityID        = "CAMPUS_IDENTITY_ID"
	EnvIdentityRole      = "CAMPUS_IDENTITY_ROLE"
	EnvDatabaseURL       = "CAMPUS_DATABASE_URL"
	EnvRedisURL          = "CAMPUS_REDIS_URL"
	EnvReadLeaseInterval = "CAMPUS_READ_LEASE_INTERVAL"
	EnvRequestTimeout    = "CAMPUS_REQUEST_TIMEOUT"
)

// ApplyEnv overrides fields from the variables lookup finds.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{EnvInstitute, &c.DefaultInstitute},
		{EnvIdentityID, &c.Identity.ID},
		{EnvIdentityRole, &c.Identity.Role},
		{EnvDatabaseURL, &c.DatabaseURL},
		{EnvRedisURL, &c.RedisURL},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok {
			*s.dst = v
		}
	}
	durs := []struct {
		key string
		dst *Duration
	}{
		{EnvReadLeaseInterval, &c.ReadLeaseInterval},
		{EnvRequestTimeout, &c.RequestTimeout},
	}
	for _, d := range durs {
		v, ok := lookup(d.key)
		if !ok {
			continue
		}
		if err := d.dst.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
	}
	return nil
}

// SignedIn returns the configured identity. It fails when no id is set or
// the role is not one of staff, student or parent.
func (c *Config) SignedIn() (domain.Identity, error) {
	if c.Identity.ID == "" {
		return domain.Identity{}, errors.New("no identity configured: set [identity] id and role in config.toml")
	}
	role, err := domain.ParseRole(c.Identity.Role)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{ID: c.Identity.ID, Role: role}, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
