// Package config provides configuration types and defaults for pflow.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/zjrosen/pflow/internal/algorithms"
	"github.com/zjrosen/pflow/internal/flags"
	"github.com/zjrosen/pflow/internal/geometry"
	"github.com/zjrosen/pflow/internal/log"
	"github.com/zjrosen/pflow/internal/paths"
	"github.com/zjrosen/pflow/internal/pipeline"
	"github.com/zjrosen/pflow/internal/tracing"
)

// Config holds all configuration options for pflow.
type Config struct {
	// Debug enables the file log sink at LogPath.
	Debug    bool   `mapstructure:"debug"`
	LogPath  string `mapstructure:"log_path"`
	LogLevel string `mapstructure:"log_level"` // debug, info, warn or error

	Pipeline pipeline.Config `mapstructure:"pipeline"`
	Geometry geometry.Config `mapstructure:"geometry"`
	Tracing  tracing.Config  `mapstructure:"tracing"`
	Metrics  MetricsConfig   `mapstructure:"metrics"`
	Watch    WatchConfig     `mapstructure:"watch"`

	// Flags toggles optional behaviour, see package flags.
	Flags map[string]bool `mapstructure:"flags"`
}

// MetricsConfig controls the Prometheus text dump written after a run.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	OutPath string `mapstructure:"out_path"`
}

// WatchConfig holds options for `pflow watch`.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// DefaultLogPath is where the debug log goes when none is configured.
const DefaultLogPath = "debug.log"

// DefaultConfigPath is where a default config is written when none exists.
var DefaultConfigPath = filepath.Join(".pflow", "config.yaml")

// DefaultPipeline returns the standard reconstruction chain: primary
// clustering, track-cluster association, reclustering of clusters that
// disagree with their track, then merging of nearby fragments.
func DefaultPipeline() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Algorithms = []pipeline.AlgorithmConfig{
		{
			Type: algorithms.TypePrimaryClustering,
			Name: "primary",
			Daughters: []pipeline.AlgorithmConfig{
				{Type: algorithms.TypeClustering, Name: "proximity", Settings: map[string]any{"max_hit_separation": 50}},
			},
		},
		{Type: algorithms.TypeTrackClusterAssociation, Name: "association"},
		{
			Type: algorithms.TypeReclustering,
			Name: "reclustering",
			Daughters: []pipeline.AlgorithmConfig{
				{Type: algorithms.TypeClustering, Name: "fine", Settings: map[string]any{"max_hit_separation": 25}},
				{Type: algorithms.TypeClustering, Name: "coarse", Settings: map[string]any{"max_hit_separation": 80}},
			},
		},
		{Type: algorithms.TypeClusterMerging, Name: "merging"},
	}
	return cfg
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		LogPath:  DefaultLogPath,
		LogLevel: "debug",
		Pipeline: DefaultPipeline(),
		Geometry: geometry.DefaultConfig(),
		Tracing:  tracing.DefaultConfig(),
		Watch:    WatchConfig{Debounce: 300 * time.Millisecond},
	}
}

// SetDefaults registers the scalar defaults with v so that environment
// variables and flags bound to those keys are honoured by Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("debug", d.Debug)
	v.SetDefault("log_path", d.LogPath)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("pipeline.input_calo_hit_list", d.Pipeline.InputCaloHitList)
	v.SetDefault("pipeline.input_track_list", d.Pipeline.InputTrackList)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.out_path", d.Metrics.OutPath)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
}

// Load decodes v over Defaults, expands the configured file paths and
// validates the result. A configured algorithm list replaces the default
// chain rather than merging into it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Defaults()
	if v.IsSet("pipeline.algorithms") {
		cfg.Pipeline.Algorithms = nil
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.LogPath = paths.Expand(cfg.LogPath)
	cfg.Tracing.FilePath = paths.Expand(cfg.Tracing.FilePath)
	cfg.Metrics.OutPath = paths.Expand(cfg.Metrics.OutPath)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if unknown := flags.New(cfg.Flags).Unknown(); len(unknown) > 0 {
		log.Warn(log.CatConfig, "unknown feature flags", "flags", unknown)
	}
	log.Debug(log.CatConfig, "config loaded", "file", v.ConfigFileUsed(), "algorithms", len(cfg.Pipeline.Algorithms))
	return cfg, nil
}

// Validate checks every section, reporting all problems at once.
func (c Config) Validate() error {
	var errs []error
	if err := c.Pipeline.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pipeline: %w", err))
	}
	if err := c.Geometry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("geometry: %w", err))
	}
	if err := ValidateTracing(c.Tracing); err != nil {
		errs = append(errs, err)
	}
	if c.Metrics.Enabled && c.Metrics.OutPath == "" {
		errs = append(errs, errors.New("metrics.out_path is required when metrics are enabled"))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative, got %s", c.Watch.Debounce))
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(t tracing.Config) error {
	if t.SampleRate < 0.0 || t.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", t.SampleRate)
	}

	switch t.Exporter {
	case "", "none", "file", "stdout", "otlp":
	default:
		return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", t.Exporter)
	}

	// Only validate path requirements when tracing is enabled
	if t.Enabled {
		if t.Exporter == "file" && t.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if t.Exporter == "otlp" && t.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}

// DefaultConfigTemplate returns the default config file with comments.
func DefaultConfigTemplate() string {
	return `# pflow configuration

# Write a debug log (also enabled by PFLOW_DEBUG=1)
debug: false
log_path: debug.log
log_level: debug  # debug, info, warn or error

pipeline:
  # Lists the event's hits and tracks are loaded into
  input_calo_hit_list: CaloHits
  input_track_list: Tracks

  # Algorithms run in order for every event. Each entry takes:
  #   type: registered algorithm type (see "pflow algorithms")
  #   name: instance name, prefixes temporary list names (optional)
  #   settings: algorithm specific options (optional)
  #   daughters: algorithms created in this one's scope (optional)
  algorithms:
    - type: PrimaryClustering
      name: primary
      daughters:
        - type: Clustering
          name: proximity
          settings:
            max_hit_separation: 50
    - type: TrackClusterAssociation
      name: association
    - type: Reclustering
      name: reclustering
      daughters:
        - type: Clustering
          name: fine
          settings:
            max_hit_separation: 25
        - type: Clustering
          name: coarse
          settings:
            max_hit_separation: 80
    - type: ClusterMerging
      name: merging

# Detector dimensions in mm, used to assign pseudo layers
geometry:
  ecal_inner_radius: 1850
  ecal_endcap_z: 2450
  ecal_layer_thickness: 5
  hcal_inner_radius: 2060
  hcal_endcap_z: 2650
  hcal_layer_thickness: 25
  # disable_cache: true

# Spans per event and per algorithm run
tracing:
  enabled: false
  exporter: file           # none, file, stdout, otlp
  # file_path: traces.jsonl
  otlp_endpoint: localhost:4317
  sample_rate: 1.0

# Prometheus text dump written after "pflow run"
metrics:
  enabled: false
  # out_path: metrics.prom

watch:
  debounce: 300ms

# Optional behaviour
# flags:
#   change-log: true     # log every list change at debug level
#   cluster-table: true  # per-cluster table in the run summary
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
