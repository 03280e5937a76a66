package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		BodyLimitMB int    `yaml:"body_limit_mb"`
	} `yaml:"server"`

	Cache struct {
		Dir             string `yaml:"dir"`
		IntervalMinutes int    `yaml:"interval_minutes"`
		// MaxAgeHours <= 0 keeps cached uploads forever.
		MaxAgeHours int `yaml:"max_age_hours"`
	} `yaml:"cache"`

	Storage struct {
		// Database defaults to metadata.db inside the cache directory.
		Database string `yaml:"database"`
	} `yaml:"storage"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Figure struct {
		Height     float64 `yaml:"height"`
		DPI        int     `yaml:"dpi"`
		MaxWidthPx int     `yaml:"max_width_px"`
	} `yaml:"figure"`

	Frontend struct {
		StaticDir string `yaml:"static_dir"`
	} `yaml:"frontend"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	var c Config
	c.Server.Host = "127.0.0.1"
	c.Server.Port = 8000
	c.Server.BodyLimitMB = 512
	c.Cache.Dir = defaultCacheDir()
	c.Cache.IntervalMinutes = 60
	c.Workers.Count = 2
	c.Figure.Height = 4
	c.Figure.DPI = 100
	c.Figure.MaxWidthPx = 30000
	c.Frontend.StaticDir = "static"
	return &c
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "speech_align_viz")
	}
	return filepath.Join(home, ".cache", "speech_align_viz")
}

// Load reads .env files, then the YAML file at path over the defaults, then
// SALIGN_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := Default()
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(file, config); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if config.Cache.Dir == "" {
		config.Cache.Dir = defaultCacheDir()
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SALIGN_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SALIGN_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SALIGN_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("SALIGN_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	return nil
}

// DatabasePath returns the metadata database location
func (c *Config) DatabasePath() string {
	if c.Storage.Database != "" {
		return c.Storage.Database
	}
	return filepath.Join(c.Cache.Dir, "metadata.db")
}

// Addr returns host:port for the HTTP listener
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
