// Package config loads forge.yml and resolves the database connection
// and generation defaults the commands run with.
package config

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/forge-cli/forge/internal/generate"
)

// Config represents the forge configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Generate GenerateConfig `mapstructure:"generate"`
	Paths    PathsConfig    `mapstructure:"paths"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL    string `mapstructure:"url"`
	Driver string `mapstructure:"driver"`
}

// GenerateConfig toggles the pieces `forge generate crud` produces
type GenerateConfig struct {
	Repository          bool `mapstructure:"repository"`
	APIController       bool `mapstructure:"api_controller"`
	AddRoutes           bool `mapstructure:"add_routes"`
	DetectRelationships bool `mapstructure:"detect_relationships"`
}

// PathsConfig names the directories generated code is written to
type PathsConfig struct {
	Models       string `mapstructure:"models"`
	Controllers  string `mapstructure:"controllers"`
	Requests     string `mapstructure:"requests"`
	Repositories string `mapstructure:"repositories"`
	Routes       string `mapstructure:"routes"`
	Migrations   string `mapstructure:"migrations"`
}

// Load loads the configuration from forge.yml or forge.yaml. The file is
// searched upward from the working directory, so commands run from anywhere
// inside a project; generated paths are rebased onto the project root.
func Load() (*Config, error) {
	root := projectRoot()
	v := viper.New()

	// Set defaults
	v.SetDefault("generate.repository", true)
	v.SetDefault("generate.api_controller", true)
	v.SetDefault("generate.add_routes", true)
	v.SetDefault("generate.detect_relationships", true)
	v.SetDefault("paths.models", "app/models")
	v.SetDefault("paths.controllers", "app/controllers")
	v.SetDefault("paths.requests", "app/requests")
	v.SetDefault("paths.repositories", "app/repositories")
	v.SetDefault("paths.routes", "app/routes")
	v.SetDefault("paths.migrations", "migrations")

	// Set config name and paths
	v.SetConfigName("forge")
	v.SetConfigType("yaml")
	v.AddConfigPath(root)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Database.URL == "" {
		config.Database.URL = os.Getenv("DATABASE_URL")
	}
	if config.Database.Driver == "" {
		config.Database.Driver = DriverFromURL(config.Database.URL)
	}
	if root != "." {
		config.Paths = config.Paths.under(root)
	}

	return &config, nil
}

// projectRoot resolves the directory forge.yml lives in. The working
// directory itself and trees without a config file resolve to "." so a
// fresh project still scaffolds in place.
func projectRoot() string {
	if InProject() {
		return "."
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	root, err := GetProjectRoot()
	if err != nil || root == wd {
		return "."
	}
	return root
}

// under rebases every relative path onto the project root.
func (p PathsConfig) under(root string) PathsConfig {
	join := func(path string) string {
		if filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(root, path)
	}
	return PathsConfig{
		Models:       join(p.Models),
		Controllers:  join(p.Controllers),
		Requests:     join(p.Requests),
		Repositories: join(p.Repositories),
		Routes:       join(p.Routes),
		Migrations:   join(p.Migrations),
	}
}

// Layout maps the configured paths onto the generator's layout.
func (c *Config) Layout() generate.Layout {
	return generate.Layout{
		Models:       c.Paths.Models,
		Controllers:  c.Paths.Controllers,
		Requests:     c.Paths.Requests,
		Repositories: c.Paths.Repositories,
		Routes:       c.Paths.Routes,
		Migrations:   c.Paths.Migrations,
	}
}

// DriverFromURL guesses the sql driver name from a connection URL scheme.
// Unknown schemes return "" and the caller treats the database as absent.
func DriverFromURL(url string) string {
	switch {
	case url == "":
		return ""
	case strings.HasPrefix(url, "mysql://"):
		return "mysql"
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "pgx"
	case strings.HasPrefix(url, "sqlite://"), strings.HasPrefix(url, "sqlite3://"),
		strings.HasSuffix(url, ".db"), strings.HasSuffix(url, ".sqlite"):
		return "sqlite3"
	default:
		return ""
	}
}

// Connect opens the configured database. A missing URL or unknown driver
// returns (nil, nil): commands then run on migration evidence alone.
func (c *Config) Connect() (*sql.DB, error) {
	if c.Database.URL == "" || c.Database.Driver == "" {
		return nil, nil
	}
	dsn := c.Database.URL
	switch c.Database.Driver {
	case "mysql":
		// database/sql's mysql driver wants a bare DSN, not a URL.
		dsn = strings.TrimPrefix(dsn, "mysql://")
	case "sqlite3":
		dsn = strings.TrimPrefix(dsn, "sqlite3://")
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	}
	db, err := sql.Open(c.Database.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// InProject checks if the current directory is a forge project
func InProject() bool {
	if _, err := os.Stat("app"); err != nil {
		return false
	}
	if _, err := os.Stat("forge.yml"); err == nil {
		return true
	}
	if _, err := os.Stat("forge.yaml"); err == nil {
		return true
	}
	return false
}

// GetProjectRoot tries to find the project root by looking for forge.yml
func GetProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "forge.yml")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "forge.yaml")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a forge project (no forge.yml found)")
		}
		dir = parent
	}
}
