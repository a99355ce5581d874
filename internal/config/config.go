// Package config provides configuration management for emit-prep.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/robert-malhotra/emit-prep/internal/prepare"
)

// Config holds the complete application configuration loaded from environment variables.
type Config struct {
	CMR      CMRConfig      `envPrefix:"CMR_"`
	Download DownloadConfig `envPrefix:"DOWNLOAD_"`
	Prepare  PrepareConfig  `envPrefix:"PREPARE_"`
	STAC     STACConfig     `envPrefix:"STAC_"`
	Logging  LoggingConfig  `envPrefix:"LOG_"`
}

// CMRConfig contains CMR search configuration.
type CMRConfig struct {
	BaseURL       string        `env:"BASE_URL" envDefault:"https://cmr.earthdata.nasa.gov/search"`
	DOI           string        `env:"DOI" envDefault:"10.5067/EMIT/EMITL2ARFL.001"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"0s"` // 0 = no timeout
	PageSize      int           `env:"PAGE_SIZE" envDefault:"2000"`
	ProductMarker string        `env:"PRODUCT_MARKER" envDefault:"_RFL_"`

	// CloudCover is an optional "min,max" percentage filter.
	CloudCover string `env:"CLOUD_COVER" envDefault:""`
}

// DownloadConfig contains authenticated download configuration.
type DownloadConfig struct {
	// NetrcPath defaults to $NETRC, then ~/.netrc.
	NetrcPath        string        `env:"NETRC" envDefault:""`
	Host             string        `env:"HOST" envDefault:"urs.earthdata.nasa.gov"`
	Timeout          time.Duration `env:"TIMEOUT" envDefault:"0s"`
	Dir              string        `env:"DIR" envDefault:"."`
	ChunkSize        int           `env:"CHUNK_SIZE" envDefault:"1024"`
	ProgressInterval time.Duration `env:"PROGRESS_INTERVAL" envDefault:"5s"`
}

// PrepareConfig contains the default preparation options.
type PrepareConfig struct {
	Group             int     `env:"GROUP" envDefault:"1"`
	RemoveRareClasses bool    `env:"REMOVE_RARE_CLASSES" envDefault:"true"`
	Balance           bool    `env:"BALANCE" envDefault:"true"`
	Trim              bool    `env:"TRIM" envDefault:"true"`
	Scale             bool    `env:"SCALE" envDefault:"true"`
	CropScale         float64 `env:"CROP_SCALE" envDefault:"1"`
	TrimFraction      float64 `env:"TRIM_FRACTION" envDefault:"0.05"`
	Seed              uint64  `env:"SEED" envDefault:"42"`
	MinClassCount     int     `env:"MIN_CLASS_COUNT" envDefault:"3"`
	Neighbors         int     `env:"NEIGHBORS" envDefault:"2"`
}

// STACConfig contains STAC rendering configuration.
type STACConfig struct {
	CollectionID string `env:"COLLECTION_ID" envDefault:"EMITL2ARFL"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
}

// Load parses configuration from environment variables.
// It returns an error if required fields are missing or invalid.
func Load() (*Config, error) {
	return load(env.Options{RequiredIfNoDef: true})
}

// LoadFromMap parses configuration from the given variables instead of the
// process environment.
func LoadFromMap(vars map[string]string) (*Config, error) {
	if vars == nil {
		vars = map[string]string{}
	}
	return load(env.Options{RequiredIfNoDef: true, Environment: vars})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	// Validate CMR config
	if c.CMR.BaseURL == "" {
		return fmt.Errorf("CMR base URL is required")
	}

	if c.CMR.DOI == "" {
		return fmt.Errorf("CMR DOI is required")
	}

	if c.CMR.Timeout < 0 {
		return fmt.Errorf("CMR timeout must not be negative, got %s", c.CMR.Timeout)
	}

	if c.CMR.PageSize < 1 || c.CMR.PageSize > 2000 {
		return fmt.Errorf("CMR page size must be between 1 and 2000, got %d", c.CMR.PageSize)
	}

	// Validate download config
	if c.Download.Host == "" {
		return fmt.Errorf("download host is required")
	}

	if c.Download.Timeout < 0 {
		return fmt.Errorf("download timeout must not be negative, got %s", c.Download.Timeout)
	}

	if c.Download.ChunkSize < 1 {
		return fmt.Errorf("download chunk size must be positive, got %d", c.Download.ChunkSize)
	}

	// Validate prepare config
	if c.Prepare.Group < 1 {
		return fmt.Errorf("ground truth group must be positive, got %d", c.Prepare.Group)
	}

	if err := c.Prepare.Options().Validate(); err != nil {
		return err
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, text", c.Logging.Format)
	}

	return nil
}

// Options converts the prepare settings to pipeline options.
func (p PrepareConfig) Options() prepare.Options {
	return prepare.Options{
		RemoveRareClasses: p.RemoveRareClasses,
		Balance:           p.Balance,
		Trim:              p.Trim,
		Scale:             p.Scale,
		CropScale:         p.CropScale,
		TrimFraction:      p.TrimFraction,
		Seed:              p.Seed,
		MinClassCount:     p.MinClassCount,
		Neighbors:         p.Neighbors,
	}
}
