// Package config loads the strata.yml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the strata.yml project configuration.
type Config struct {
	ProjectName string         `mapstructure:"project_name"`
	Source      SourceConfig   `mapstructure:"source"`
	Output      OutputConfig   `mapstructure:"output"`
	Database    DatabaseConfig `mapstructure:"database"`
}

// SourceConfig locates the annotated classes.
type SourceConfig struct {
	// Root is the directory the root namespace's packages live in.
	Root string `mapstructure:"root"`
	// Namespace is the root namespace; only classes in or under it are
	// mapped. Empty maps everything under Root.
	Namespace string `mapstructure:"namespace"`
}

// OutputConfig locates the build artifacts.
type OutputConfig struct {
	// Snapshot is the metadata snapshot path. A .gz suffix stores it
	// compressed.
	Snapshot string `mapstructure:"snapshot"`
	// Schema is the path the sql command writes the DDL script to.
	Schema string `mapstructure:"schema"`
}

// DatabaseConfig selects the SQL dialect for schema generation. URL is
// carried for runtimes that read the same project file; the compiler
// itself never connects.
type DatabaseConfig struct {
	Dialect string `mapstructure:"dialect"`
	URL     string `mapstructure:"url"`
}

// Load reads strata.yml (or strata.yaml) from dir, applying defaults and
// STRATA_-prefixed environment overrides. A missing file yields the
// defaults; dir may be empty for the working directory.
func Load(dir string) (*Config, error) {
	v := viper.New()

	v.SetDefault("source.root", "models")
	v.SetDefault("source.namespace", "")
	v.SetDefault("output.snapshot", "build/metadata.json")
	v.SetDefault("output.schema", "build/schema.sql")
	v.SetDefault("database.dialect", "postgres")

	v.SetConfigName("strata")
	v.SetConfigType("yaml")
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)

	v.SetEnvPrefix("STRATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindProjectRoot walks up from the working directory to the nearest
// directory holding a strata.yml or strata.yaml.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if hasConfigFile(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a strata project (no strata.yml found)")
		}
		dir = parent
	}
}

func hasConfigFile(dir string) bool {
	for _, name := range []string{"strata.yml", "strata.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

func validate(cfg *Config) error {
	if cfg.Source.Root == "" {
		return fmt.Errorf("source.root must not be empty")
	}
	if strings.HasPrefix(cfg.Source.Namespace, "/") || strings.HasSuffix(cfg.Source.Namespace, "/") {
		return fmt.Errorf("source.namespace must not start or end with '/', got: %s", cfg.Source.Namespace)
	}
	if cfg.Output.Snapshot == "" {
		return fmt.Errorf("output.snapshot must not be empty")
	}
	return nil
}
