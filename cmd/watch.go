package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/pflow/internal/config"
	"github.com/zjrosen/pflow/internal/log"
	"github.com/zjrosen/pflow/internal/watcher"
)

var watchEventsPath string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run reconstruction whenever the config or event file changes",
	Long: `Run the pipeline over an event file, then again every time the event file
or the config file is saved. Config errors are reported and the previous
config is kept.

Examples:
  pflow watch --events events.yaml`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchEventsPath, "events", "e", "", "event file to reconstruct (required)")
	_ = watchCmd.MarkFlagRequired("events")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	paths := []string{watchEventsPath}
	if used := viper.ConfigFileUsed(); used != "" {
		paths = append(paths, used)
	}
	w, err := watcher.New(watcher.Config{Paths: paths, DebounceDur: cfg.Watch.Debounce})
	if err != nil {
		return err
	}
	onChange, err := w.Start()
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	current := cfg
	rerun := func() {
		opts := runOptions{eventsPath: watchEventsPath}
		if err := runEvents(ctx, current, opts, out); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		}
	}
	rerun()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-onChange:
			if viper.ConfigFileUsed() != "" {
				if err := viper.ReadInConfig(); err != nil {
					log.ErrorErr(log.CatConfig, "reload failed", err)
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "config: %v\n", err)
				} else if next, err := config.Load(viper.GetViper()); err != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "config: %v\n", err)
				} else {
					current = next
				}
			}
			_, _ = fmt.Fprintf(out, "\n--- %s ---\n", time.Now().Format(time.TimeOnly))
			rerun()
		}
	}
}
