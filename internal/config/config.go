// Package config loads application configuration from a YAML file and
// BOOKAPP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	DataDir       string         `mapstructure:"data_dir"`
	HTTPAddr      string         `mapstructure:"http_addr"`
	APIBaseURL    string         `mapstructure:"api_base_url"`
	CoversBaseURL string         `mapstructure:"covers_base_url"`
	ProbeURL      string         `mapstructure:"probe_url"`
	Prefetch      PrefetchConfig `mapstructure:"prefetch"`
}

// PrefetchConfig fixes the catalog slice the preloader warms.
type PrefetchConfig struct {
	Genres            []string      `mapstructure:"genres"`
	PagesPerGenre     int           `mapstructure:"pages_per_genre"`
	PageSize          int           `mapstructure:"page_size"`
	TTL               time.Duration `mapstructure:"ttl"`
	DetailConcurrency int           `mapstructure:"detail_concurrency"`
}

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		DataDir:  "./data",
		HTTPAddr: "localhost:8080",
		Prefetch: PrefetchConfig{
			Genres:            []string{"fiction", "fantasy", "romance", "mystery"},
			PagesPerGenre:     3,
			PageSize:          20,
			TTL:               7 * 24 * time.Hour,
			DetailConcurrency: 5,
		},
	}
}

// DBPath returns the SQLite file location under the data dir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "bookapp.db")
}

// IndexPath returns the Bleve index location under the data dir.
func (c *Config) IndexPath() string {
	return filepath.Join(c.DataDir, "index.bleve")
}

// Load reads configuration from the given file (optional), falling back
// to bookapp.yaml in the working directory or ~/.bookapp, with
// environment overrides.
func Load(file string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("http_addr", def.HTTPAddr)
	v.SetDefault("api_base_url", "")
	v.SetDefault("covers_base_url", "")
	v.SetDefault("probe_url", "")
	v.SetDefault("prefetch.genres", def.Prefetch.Genres)
	v.SetDefault("prefetch.pages_per_genre", def.Prefetch.PagesPerGenre)
	v.SetDefault("prefetch.page_size", def.Prefetch.PageSize)
	v.SetDefault("prefetch.ttl", def.Prefetch.TTL)
	v.SetDefault("prefetch.detail_concurrency", def.Prefetch.DetailConcurrency)

	v.SetEnvPrefix("BOOKAPP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("bookapp")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.bookapp")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
