package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/pflow/internal/config"
	"github.com/zjrosen/pflow/internal/log"
	"github.com/zjrosen/pflow/internal/paths"
)

var (
	version   = "dev"
	cfgFile   string
	cfg       config.Config
	configErr error
	logClose  func()
)

var rootCmd = &cobra.Command{
	Use:   "pflow",
	Short: "Particle flow reconstruction driven by scoped object lists",
	Long: `pflow runs a chain of reconstruction algorithms over calorimeter hits and
tracks. Each algorithm works on named lists of hits, tracks and clusters owned
by per-type list managers; temporary lists live only for the duration of the
algorithm that made them.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logClose != nil {
			logClose()
			logClose = nil
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .pflow/config.yaml, then ~/.config/pflow/config.yaml)")
	rootCmd.PersistentFlags().StringSlice("flag", nil, "enable a feature flag, e.g. --flag cluster-table")
	rootCmd.PersistentFlags().Bool("debug", false, "write a debug log (also PFLOW_DEBUG=1)")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	viper.SetEnvPrefix("PFLOW")
	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .pflow/config.yaml (current directory)
		// 2. ~/.config/pflow/config.yaml (user config)
		if _, err := os.Stat(config.DefaultConfigPath); err == nil {
			viper.SetConfigFile(config.DefaultConfigPath)
		} else {
			viper.AddConfigPath(paths.UserConfigDir())
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			configErr = fmt.Errorf("reading config: %w", err)
			return
		}
		// No config file found anywhere - create default at .pflow/config.yaml
		if writeErr := config.WriteDefaultConfig(config.DefaultConfigPath); writeErr == nil {
			viper.SetConfigFile(config.DefaultConfigPath)
			_ = viper.ReadInConfig()
		}
		// If write fails, just continue with defaults (no config file)
	}

	cfg, configErr = config.Load(viper.GetViper())
	if configErr == nil {
		enabled, _ := rootCmd.PersistentFlags().GetStringSlice("flag")
		cfg.Flags = withFlags(cfg.Flags, enabled)
	}
}

// withFlags returns configured with every name in enabled switched on.
func withFlags(configured map[string]bool, enabled []string) map[string]bool {
	out := make(map[string]bool, len(configured)+len(enabled))
	for k, v := range configured {
		out[k] = v
	}
	for _, name := range enabled {
		out[name] = true
	}
	return out
}

// setup surfaces config errors and starts the debug log.
func setup(*cobra.Command, []string) error {
	if configErr != nil {
		return configErr
	}
	if !cfg.Debug {
		return nil
	}
	cleanup, err := log.Init(cfg.LogPath)
	if err != nil {
		return err
	}
	log.SetMinLevel(log.ParseLevel(cfg.LogLevel))
	logClose = cleanup
	log.Info(log.CatConfig, "pflow starting", "version", version, "config", viper.ConfigFileUsed())
	return nil
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
