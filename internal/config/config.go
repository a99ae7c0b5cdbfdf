// Package config loads ATC configuration.
//
// Sources, later ones overriding earlier ones:
//  1. Default values
//  2. Configuration file (./atc.yaml, ./configs/atc.yaml, $HOME/.atc/atc.yaml)
//  3. .env file in the working directory
//  4. Environment variables with the ATC_ prefix (ATC_SERVER_PORT=9000)
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Catalog  CatalogConfig  `mapstructure:"catalog" yaml:"catalog"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Codegen  CodegenConfig  `mapstructure:"codegen" yaml:"codegen"`
	Filters  FiltersConfig  `mapstructure:"filters" yaml:"filters"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Security SecurityConfig `mapstructure:"security" yaml:"security"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	Debug           bool          `mapstructure:"debug" yaml:"debug"`
}

// CatalogConfig selects where component definitions come from.
type CatalogConfig struct {
	// Dir is the local catalog tree served by this process.
	Dir string `mapstructure:"dir" yaml:"dir" validate:"required"`
	// URL points the editor at a remote catalog service; empty uses Dir in-process.
	URL string `mapstructure:"url" yaml:"url" validate:"omitempty,url"`
	// Provider is the default cloud provider for new editing sessions.
	Provider string `mapstructure:"provider" yaml:"provider" validate:"required"`
	// Watch reloads component documents when they change on disk.
	Watch bool `mapstructure:"watch" yaml:"watch"`
}

// StorageConfig selects the persistence backend used by editing sessions.
type StorageConfig struct {
	// Backend is "directory" or "remote".
	Backend string `mapstructure:"backend" yaml:"backend" validate:"oneof=directory remote"`
	// Directory is the root under which directory bundles are written.
	Directory string `mapstructure:"directory" yaml:"directory" validate:"required"`
	// ArchiveDir holds the named archives served by the remote archive service.
	ArchiveDir string `mapstructure:"archive_dir" yaml:"archive_dir" validate:"required"`
	// RemoteURL is the base URL of the remote archive service.
	RemoteURL string `mapstructure:"remote_url" yaml:"remote_url" validate:"omitempty,url"`
	// Timeout bounds a single persistence operation.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CodegenConfig configures Terraform generation.
type CodegenConfig struct {
	EmitTfvars  bool   `mapstructure:"emit_tfvars" yaml:"emit_tfvars"`
	MaxParallel int    `mapstructure:"max_parallel" yaml:"max_parallel" validate:"min=0,max=32"`
	Region      string `mapstructure:"region" yaml:"region"`
	// Project is the GCP project id written to terraform.tfvars.
	Project     string `mapstructure:"project" yaml:"project"`
}

// FiltersConfig configures the global dashboard filter store.
type FiltersConfig struct {
	// OptionsURL serves {"Environment":[...],"NarrowEnvironment":[...]}; empty disables refresh.
	OptionsURL string `mapstructure:"options_url" yaml:"options_url" validate:"omitempty,url"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" yaml:"format" validate:"oneof=json console"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// SecurityConfig contains rate limiting and CORS settings.
type SecurityConfig struct {
	RateLimit      int      `mapstructure:"rate_limit" yaml:"rate_limit" validate:"min=0"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Load reads configuration from a file and environment variables.
// If cfgFile is empty, it searches for atc.yaml in standard locations.
// An explicitly named file that does not exist falls back to defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("atc")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.atc")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			if !isFileNotFoundError(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	_ = godotenv.Load() // .env is optional

	v.SetEnvPrefix("ATC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.debug", false)

	v.SetDefault("catalog.dir", "./atc")
	v.SetDefault("catalog.url", "")
	v.SetDefault("catalog.provider", "gcp")
	v.SetDefault("catalog.watch", true)

	v.SetDefault("storage.backend", "directory")
	v.SetDefault("storage.directory", "./diagrams")
	v.SetDefault("storage.archive_dir", "./atc/architectures")
	v.SetDefault("storage.remote_url", "")
	v.SetDefault("storage.timeout", "30s")

	v.SetDefault("codegen.emit_tfvars", true)
	v.SetDefault("codegen.max_parallel", 0)
	v.SetDefault("codegen.region", "")
	v.SetDefault("codegen.project", "")

	v.SetDefault("filters.options_url", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 7)
	v.SetDefault("logging.compress", false)

	v.SetDefault("security.rate_limit", 100)
	v.SetDefault("security.allowed_origins", []string{"*"})
}

var structValidator = validator.New()

// Validate checks field constraints on a loaded configuration.
func Validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		return err
	}
	if cfg.Storage.Backend == "remote" && cfg.Storage.RemoteURL == "" {
		return errors.New("storage.remote_url is required for the remote backend")
	}
	return nil
}

// isFileNotFoundError checks if an error is a file not found error.
func isFileNotFoundError(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return errors.Is(pathErr, os.ErrNotExist)
	}
	return false
}
