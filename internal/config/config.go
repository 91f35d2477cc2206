// Package config provides configuration management for portage.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	apperrors "github.com/portagehq/portage/internal/errors"
)

const (
	// ConfigFileName is the default config file name
	ConfigFileName = "config.yaml"
	// PortageDir is the portage configuration directory
	PortageDir = ".portage"
	// EnvPrefix prefixes environment overrides (PORTAGE_DATABASE_PATH etc.)
	EnvPrefix = "PORTAGE"
)

// DatabaseConfig locates the tracker database.
type DatabaseConfig struct {
	// Path is the database file, relative to the project root unless
	// absolute. Ignored for the postgres dialect.
	Path string `yaml:"path" mapstructure:"path"`
	// Dialect is "sqlite" or "postgres".
	Dialect string `yaml:"dialect" mapstructure:"dialect"`
	// DSN is the postgres connection string when dialect is postgres.
	DSN string `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// ExportConfig controls archive creation.
type ExportConfig struct {
	// Dir is where export files land by default.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// By is the display name stamped into manifests as the exporter.
	By string `yaml:"by" mapstructure:"by"`
}

// ArchiveConfig bounds archive intake.
type ArchiveConfig struct {
	// MaxSizeBytes caps the size of an archive file accepted for
	// import or preview. Zero means the built-in default.
	MaxSizeBytes int64 `yaml:"max_size_bytes" mapstructure:"max_size_bytes"`
}

// Config is the root portage configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Archive  ArchiveConfig  `yaml:"archive" mapstructure:"archive"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	by := os.Getenv("USER")
	if by == "" {
		by = "unknown"
	}
	return &Config{
		Database: DatabaseConfig{
			Path:    filepath.Join(PortageDir, "tracker.db"),
			Dialect: "sqlite",
		},
		Export: ExportConfig{
			Dir: filepath.Join(PortageDir, "exports"),
			By:  by,
		},
	}
}

// Load reads configuration for the project rooted at root, layering
// defaults, then .portage/config.yaml (or cfgFile when given), then
// PORTAGE_* environment variables. A missing config file is not an
// error; the defaults apply.
func Load(root, cfgFile string) (*Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("database.dialect", def.Database.Dialect)
	v.SetDefault("export.dir", def.Export.Dir)
	v.SetDefault("export.by", def.Export.By)
	v.SetDefault("archive.max_size_bytes", def.Archive.MaxSizeBytes)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(filepath.Join(root, PortageDir))
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field values that would otherwise fail deep inside
// the store or codec.
func (c *Config) Validate() error {
	switch c.Database.Dialect {
	case "sqlite", "postgres":
	default:
		return apperrors.ErrConfigInvalid("database.dialect",
			fmt.Sprintf("%q is not sqlite or postgres", c.Database.Dialect))
	}
	if c.Database.Dialect == "postgres" && c.Database.DSN == "" {
		return apperrors.ErrConfigMissing("database.dsn")
	}
	if c.Archive.MaxSizeBytes < 0 {
		return apperrors.ErrConfigInvalid("archive.max_size_bytes", "must not be negative")
	}
	return nil
}

// Save writes the config to root/.portage/config.yaml, creating the
// directory if needed.
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, PortageDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
