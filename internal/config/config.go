// Package config provides Viper-based configuration loading for the campaign manager.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverJSON     = "json"
	DriverPostgres = "postgres"
)

// StorageConfig selects and locates the persistence backend.
type StorageConfig struct {
	// Driver is "json" (plain files) or "postgres".
	Driver string `mapstructure:"driver"`
	// DataDir is the base directory for relative file paths.
	DataDir string `mapstructure:"data_dir"`
	// CharactersDir holds one JSON file per character.
	CharactersDir string `mapstructure:"characters_dir"`
	// ConditionsFile is the shared condition library.
	ConditionsFile string `mapstructure:"conditions_file"`
	// ItemsFile is the shared item library.
	ItemsFile string `mapstructure:"items_file"`
}

func (s StorageConfig) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.DataDir, p)
}

// CharactersPath returns CharactersDir resolved against DataDir.
func (s StorageConfig) CharactersPath() string { return s.resolve(s.CharactersDir) }

// ConditionsPath returns ConditionsFile resolved against DataDir.
func (s StorageConfig) ConditionsPath() string { return s.resolve(s.ConditionsFile) }

// ItemsPath returns ItemsFile resolved against DataDir.
func (s StorageConfig) ItemsPath() string { return s.resolve(s.ItemsFile) }

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// File receives the log instead of stderr, keeping the console clean.
	File string `mapstructure:"file"`
}

// ContentConfig points at optional YAML seed libraries.
type ContentConfig struct {
	// ConditionsDir holds condition definitions as YAML files.
	ConditionsDir string `mapstructure:"conditions_dir"`
	// ItemsDir holds item definitions as YAML files.
	ItemsDir string `mapstructure:"items_dir"`
}

// ConsoleConfig holds operator console settings.
type ConsoleConfig struct {
	// Prompt is printed before each command line.
	Prompt string `mapstructure:"prompt"`
	// Echo repeats every input line, useful when input is piped.
	Echo bool `mapstructure:"echo"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Content  ContentConfig  `mapstructure:"content"`
	Console  ConsoleConfig  `mapstructure:"console"`
}

// Validate checks all configuration invariants. The database section is only
// checked when the postgres driver is selected.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateStorage(c.Storage); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Storage.Driver == DriverPostgres {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	var errs []string
	switch s.Driver {
	case DriverJSON:
		if s.CharactersDir == "" {
			errs = append(errs, "storage.characters_dir must not be empty")
		}
		if s.ConditionsFile == "" {
			errs = append(errs, "storage.conditions_file must not be empty")
		}
		if s.ItemsFile == "" {
			errs = append(errs, "storage.items_file must not be empty")
		}
	case DriverPostgres:
	default:
		errs = append(errs, fmt.Sprintf("storage.driver must be one of [json, postgres], got %q", s.Driver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and the
// environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with HTBAH_ prefix
	v.SetEnvPrefix("HTBAH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewViper returns a Viper instance holding only the defaults.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")

	v.SetDefault("storage.driver", DriverJSON)
	v.SetDefault("storage.data_dir", ".")
	v.SetDefault("storage.characters_dir", "characters")
	v.SetDefault("storage.conditions_file", "conditions.json")
	v.SetDefault("storage.items_file", "items.json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "htbah")
	v.SetDefault("database.password", "htbah")
	v.SetDefault("database.name", "htbah")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("content.conditions_dir", "")
	v.SetDefault("content.items_dir", "")

	v.SetDefault("console.prompt", "htbah> ")
	v.SetDefault("console.echo", false)
}
