package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/zjrosen/pflow/internal/algorithms"
	"github.com/zjrosen/pflow/internal/cachemanager"
	"github.com/zjrosen/pflow/internal/config"
	"github.com/zjrosen/pflow/internal/event"
	"github.com/zjrosen/pflow/internal/flags"
	"github.com/zjrosen/pflow/internal/geometry"
	"github.com/zjrosen/pflow/internal/listmgr"
	"github.com/zjrosen/pflow/internal/log"
	"github.com/zjrosen/pflow/internal/metrics"
	"github.com/zjrosen/pflow/internal/pipeline"
	"github.com/zjrosen/pflow/internal/presentation"
	"github.com/zjrosen/pflow/internal/pubsub"
	"github.com/zjrosen/pflow/internal/tracing"
)

var (
	runEventsPath string
	runMetricsOut string
	runJSON       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconstruct every event of an event file",
	Long: `Run the configured algorithm chain over every event of a YAML event file
and print a summary of the resulting lists and clusters.

An event whose algorithms fail is reported with its error; a fatal error
aborts that event and leaves the managers reset for the next one.

Examples:
  pflow run --events events.yaml
  pflow run -c pipeline.yaml -e events.yaml --json | jq '.[].clusters'
  pflow run -e events.yaml --metrics-out metrics.prom`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runOptions{
			eventsPath: runEventsPath,
			metricsOut: runMetricsOut,
			json:       runJSON,
		}
		return runEvents(cmd.Context(), cfg, opts, cmd.OutOrStdout())
	},
}

func init() {
	runCmd.Flags().StringVarP(&runEventsPath, "events", "e", "", "event file to reconstruct (required)")
	runCmd.Flags().StringVar(&runMetricsOut, "metrics-out", "", "write Prometheus metrics to this file")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print results as JSON")
	_ = runCmd.MarkFlagRequired("events")
	rootCmd.AddCommand(runCmd)
}

type runOptions struct {
	eventsPath string
	metricsOut string
	json       bool
}

// errEventsFailed is returned when at least one event did not reconstruct.
var errEventsFailed = errors.New("events failed")

// runEvents reconstructs every event of opts.eventsPath with a fresh
// pipeline instance and writes the results to out.
func runEvents(ctx context.Context, c config.Config, opts runOptions, out io.Writer) error {
	events, err := event.ReadFile(opts.eventsPath)
	if err != nil {
		return err
	}

	provider, err := tracing.NewProvider(c.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		if shutdownErr := provider.Shutdown(context.Background()); shutdownErr != nil {
			log.ErrorErr(log.CatTracing, "tracer shutdown failed", shutdownErr)
		}
	}()

	registry := prometheus.NewRegistry()
	recorder, err := metrics.New(registry)
	if err != nil {
		return err
	}

	cache := cachemanager.NewInMemoryCacheManager[geometry.LayerKey, uint32](
		"pseudo-layers", c.Geometry.CacheTTL, cachemanager.DefaultCleanupInterval)
	calc, err := geometry.NewCalculator(c.Geometry, cache)
	if err != nil {
		return fmt.Errorf("geometry: %w", err)
	}

	features := flags.New(c.Flags)
	instOpts := []pipeline.Option{
		pipeline.WithTracer(provider.Tracer()),
		pipeline.WithMetrics(recorder),
		pipeline.WithGeometry(calc),
	}
	var eventChanges *pubsub.Recorder[listmgr.Change]
	if features.Enabled(flags.FlagChangeLog) {
		changes := pubsub.NewBrokerWithBuffer[listmgr.Change](changeBuffer)
		defer changes.Close()
		go logChanges(changes.Subscribe(ctx))
		eventChanges = pubsub.NewRecorder[listmgr.Change]()
		instOpts = append(instOpts, pipeline.WithChangePublisher(pubsub.Fanout[listmgr.Change]{changes, eventChanges}))
		defer func() {
			if n := changes.Dropped(); n > 0 {
				log.Warn(log.CatLists, "list changes dropped", "count", n)
			}
		}()
	}

	algs := algorithms.NewRegistry()
	if err := algs.Validate(c.Pipeline); err != nil {
		return err
	}
	inst, err := pipeline.NewInstance(c.Pipeline, algs, instOpts...)
	if err != nil {
		return err
	}
	if eventChanges != nil {
		eventChanges.Reset()
	}
	log.Info(log.CatPipeline, "run starting", "run", inst.RunID(), "events", len(events), "algorithms", len(inst.Algorithms()))

	results := make([]presentation.ResultDTO, 0, len(events))
	failed := 0
	for _, ev := range events {
		if ctx.Err() != nil {
			break
		}
		res, err := inst.ProcessEvent(ctx, ev)
		if err != nil {
			failed++
			log.ErrorErr(log.CatPipeline, "event failed", err, "event", ev.Index)
		}
		dto := presentation.FromResult(ev.Index, res, err)
		if eventChanges != nil {
			dto.Changes = len(eventChanges.Events())
			eventChanges.Reset()
		}
		results = append(results, dto)
	}

	if !opts.json && !features.Enabled(flags.FlagClusterTable) {
		for i := range results {
			results[i].Details = nil
		}
	}

	f := presentation.NewFormatter(out)
	if opts.json {
		err = f.FormatResults(results)
	} else {
		err = f.FormatSummary(results)
	}
	if err != nil {
		return err
	}

	metricsOut := opts.metricsOut
	if metricsOut == "" && c.Metrics.Enabled {
		metricsOut = c.Metrics.OutPath
	}
	if metricsOut != "" {
		if err := writeMetrics(metricsOut, registry); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d %w", failed, len(events), errEventsFailed)
	}
	return nil
}

const changeBuffer = 1024

func logChanges(sub <-chan pubsub.Event[listmgr.Change]) {
	for ev := range sub {
		c := ev.Payload
		log.Debug(log.CatLists, string(c.Kind), "seq", ev.Seq, "manager", c.Manager, "list", c.List, "scope", c.Scope, "objects", c.Objects)
	}
}

func writeMetrics(path string, g prometheus.Gatherer) (err error) {
	f, err := os.Create(path) //nolint:gosec // G304: path comes from the command line or config
	if err != nil {
		return fmt.Errorf("creating metrics file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	if err := metrics.WriteText(f, g); err != nil {
		return err
	}
	log.Debug(log.CatMetrics, "metrics written", "path", path)
	return nil
}
