// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/akleaf/vendor-pipeline/internal/validate"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig     `yaml:"store" mapstructure:"store"`
	Geocoder GeocoderConfig  `yaml:"geocoder" mapstructure:"geocoder"`
	Bounds   validate.Bounds `yaml:"bounds" mapstructure:"bounds"`
	Pipeline PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Log      LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the document store backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	Path   string `yaml:"path" mapstructure:"path"`
}

// GeocoderConfig configures the geocoding provider. The rapidapi provider is
// the fallback tier: selecting it forces single-request batches with at least
// a one-second delay regardless of the tuning below.
type GeocoderConfig struct {
	Provider     string  `yaml:"provider" mapstructure:"provider"`
	APIKey       string  `yaml:"api_key" mapstructure:"api_key"`
	RapidAPIKey  string  `yaml:"rapidapi_key" mapstructure:"rapidapi_key"`
	RapidAPIHost string  `yaml:"rapidapi_host" mapstructure:"rapidapi_host"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Concurrency  int     `yaml:"concurrency" mapstructure:"concurrency"`
	DelayMs      int     `yaml:"delay_ms" mapstructure:"delay_ms"`
}

// PipelineConfig configures the processing workflow: stage toggles, artifact
// locations, and output collection names.
type PipelineConfig struct {
	Input       string `yaml:"input" mapstructure:"input"`
	Output      string `yaml:"output" mapstructure:"output"`
	FailuresDir string `yaml:"failures_dir" mapstructure:"failures_dir"`
	ArchiveDir  string `yaml:"archive_dir" mapstructure:"archive_dir"`

	PriorityOnly        bool `yaml:"priority_only" mapstructure:"priority_only"`
	ArchiveNonPriority  bool `yaml:"archive_non_priority" mapstructure:"archive_non_priority"`
	CleanAddresses      bool `yaml:"clean_addresses" mapstructure:"clean_addresses"`
	ValidateCoordinates bool `yaml:"validate_coordinates" mapstructure:"validate_coordinates"`
	ArchiveStages       bool `yaml:"archive_stages" mapstructure:"archive_stages"`

	SkipSync           bool `yaml:"skip_sync" mapstructure:"skip_sync"`
	SyncMerge          bool `yaml:"sync_merge" mapstructure:"sync_merge"`
	DeleteAfterArchive bool `yaml:"delete_after_archive" mapstructure:"delete_after_archive"`
	DeleteAfterSync    bool `yaml:"delete_after_sync" mapstructure:"delete_after_sync"`

	Collections CollectionsConfig `yaml:"collections" mapstructure:"collections"`
}

// CollectionsConfig names the output collections in the document store.
type CollectionsConfig struct {
	Active       string `yaml:"active" mapstructure:"active"`
	PriorityOnly string `yaml:"priority_only" mapstructure:"priority_only"`
	Other        string `yaml:"other" mapstructure:"other"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VENDORS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "./data/vendors.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("geocoder.provider", "google")
	v.SetDefault("geocoder.rate_limit", 10.0)
	v.SetDefault("geocoder.concurrency", 2)
	v.SetDefault("geocoder.delay_ms", 200)
	v.SetDefault("bounds.min_lat", validate.AlaskaBounds.MinLat)
	v.SetDefault("bounds.max_lat", validate.AlaskaBounds.MaxLat)
	v.SetDefault("bounds.min_lng", validate.AlaskaBounds.MinLng)
	v.SetDefault("bounds.max_lng", validate.AlaskaBounds.MaxLng)
	v.SetDefault("bounds.wraps_antimeridian", validate.AlaskaBounds.WrapsAntimeridian)
	v.SetDefault("pipeline.input", "./data/vendors.json")
	v.SetDefault("pipeline.output", "./data/output/finalized-vendors.json")
	v.SetDefault("pipeline.failures_dir", "./data/failures")
	v.SetDefault("pipeline.archive_dir", "./data/archive")
	v.SetDefault("pipeline.priority_only", true)
	v.SetDefault("pipeline.archive_non_priority", true)
	v.SetDefault("pipeline.clean_addresses", true)
	v.SetDefault("pipeline.validate_coordinates", true)
	v.SetDefault("pipeline.sync_merge", true)
	v.SetDefault("pipeline.collections.active", "vendors")
	v.SetDefault("pipeline.collections.priority_only", "priority_vendors")
	v.SetDefault("pipeline.collections.other", "other_vendors")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
