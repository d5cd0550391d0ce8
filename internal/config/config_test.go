package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pflow/internal/algorithms"
	"github.com/zjrosen/pflow/internal/pipeline"
)

func load(t *testing.T, yaml string) (Config, error) {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	if yaml != "" {
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	}
	return Load(v)
}

func types(algs []pipeline.AlgorithmConfig) []string {
	var out []string
	for _, a := range algs {
		out = append(out, a.Type)
		for _, d := range a.Daughters {
			out = append(out, a.Type+"/"+d.Type)
		}
	}
	return out
}

func TestDefaults_Valid(t *testing.T) {
	require.NoError(t, Defaults().Validate())
	require.NoError(t, algorithms.NewRegistry().Validate(DefaultPipeline()))
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := load(t, "")
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}

func TestLoad_TemplateMatchesDefaults(t *testing.T) {
	cfg, err := load(t, DefaultConfigTemplate())
	require.NoError(t, err)

	d := Defaults()
	require.Equal(t, d.Geometry, cfg.Geometry)
	require.Equal(t, d.Tracing, cfg.Tracing)
	require.Equal(t, d.Metrics, cfg.Metrics)
	require.Equal(t, d.Watch, cfg.Watch)
	require.Equal(t, d.LogPath, cfg.LogPath)
	require.Equal(t, d.Pipeline.InputCaloHitList, cfg.Pipeline.InputCaloHitList)
	require.Equal(t, types(d.Pipeline.Algorithms), types(cfg.Pipeline.Algorithms))

	fine := cfg.Pipeline.Algorithms[2].Daughters[0]
	require.Equal(t, "fine", fine.Name)
	var s algorithms.ClusteringSettings
	require.NoError(t, pipeline.DecodeSettings(fine.Settings, &s))
	require.InDelta(t, 25.0, s.MaxHitSeparation, 1e-9)
}

func TestLoad_AlgorithmsReplaceDefaultChain(t *testing.T) {
	cfg, err := load(t, `
pipeline:
  algorithms:
    - type: Clustering
      settings:
        max_hit_separation: 10
`)
	require.NoError(t, err)
	require.Len(t, cfg.Pipeline.Algorithms, 1)
	require.Equal(t, "Clustering", cfg.Pipeline.Algorithms[0].Type)
	require.Empty(t, cfg.Pipeline.Algorithms[0].Daughters)
	require.Equal(t, pipeline.DefaultInputCaloHitList, cfg.Pipeline.InputCaloHitList)
}

func TestLoad_PartialSectionsKeepDefaults(t *testing.T) {
	cfg, err := load(t, `
geometry:
  ecal_inner_radius: 1900
  hcal_inner_radius: 2100
watch:
  debounce: 2s
`)
	require.NoError(t, err)
	require.InDelta(t, 1900.0, cfg.Geometry.ECalInnerRadius, 1e-9)
	require.InDelta(t, Defaults().Geometry.HCalLayerThickness, cfg.Geometry.HCalLayerThickness, 1e-9)
	require.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	require.Len(t, cfg.Pipeline.Algorithms, len(Defaults().Pipeline.Algorithms))
}

func TestLoad_ExpandsPathsAndFlags(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg, err := load(t, `
log_path: ~/pflow/debug.log
metrics:
  enabled: true
  out_path: ~/pflow/metrics.prom
flags:
  cluster-table: true
`)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "pflow", "debug.log"), cfg.LogPath)
	require.Equal(t, filepath.Join(home, "pflow", "metrics.prom"), cfg.Metrics.OutPath)
	require.Equal(t, map[string]bool{"cluster-table": true}, cfg.Flags)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PFLOW_DEBUG", "true")
	t.Setenv("PFLOW_LOG_LEVEL", "warn")

	v := viper.New()
	v.SetEnvPrefix("PFLOW")
	v.AutomaticEnv()
	SetDefaults(v)
	cfg, err := Load(v)
	require.NoError(t, err)
	require.True(t, cfg.Debug)
	require.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := load(t, `
pipeline:
  algorithms:
    - name: missing-type
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "algorithms[0]: type is required")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"sample rate", func(c *Config) { c.Tracing.SampleRate = 1.5 }, "sample_rate"},
		{"exporter", func(c *Config) { c.Tracing.Exporter = "jaeger" }, "tracing.exporter"},
		{"file path", func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Exporter = "file" }, "file_path is required"},
		{"otlp endpoint", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "otlp"
			c.Tracing.OTLPEndpoint = ""
		}, "otlp_endpoint is required"},
		{"metrics path", func(c *Config) { c.Metrics.Enabled = true }, "metrics.out_path"},
		{"debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, "watch.debounce"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"geometry", func(c *Config) { c.Geometry.ECalLayerThickness = 0 }, "geometry: layer thickness"},
		{"input list", func(c *Config) { c.Pipeline.InputTrackList = "" }, "pipeline: input list names"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Tracing.SampleRate = -1
	cfg.LogLevel = "loud"
	err := cfg.Validate()
	require.ErrorContains(t, err, "sample_rate")
	require.ErrorContains(t, err, "log_level")
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfigTemplate(), string(data))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	_, err = Load(v)
	require.NoError(t, err)
}
