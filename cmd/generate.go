package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/pflow/internal/event"
	"github.com/zjrosen/pflow/internal/log"
)

var (
	genOpts   = event.DefaultGenerateOptions()
	genOutput string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate synthetic events",
	Long: `Generate a YAML event file of synthetic particle showers. The same seed
always produces the same events.

Examples:
  # Ten events to stdout
  pflow generate

  # A reproducible file of 100 events
  pflow generate --events 100 --seed 42 -o events.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		events := event.Generate(genOpts)
		log.Debug(log.CatEvent, "generated events", "events", len(events), "seed", genOpts.Seed)
		if genOutput == "" || genOutput == "-" {
			return event.Write(cmd.OutOrStdout(), events)
		}
		return event.WriteFile(genOutput, events)
	},
}

func init() {
	generateCmd.Flags().IntVarP(&genOpts.Events, "events", "n", genOpts.Events, "number of events")
	generateCmd.Flags().Uint64Var(&genOpts.Seed, "seed", genOpts.Seed, "random seed")
	generateCmd.Flags().IntVar(&genOpts.ParticlesPerEv, "particles", genOpts.ParticlesPerEv, "particles per event")
	generateCmd.Flags().Float64Var(&genOpts.ChargedFrac, "charged-fraction", genOpts.ChargedFrac, "fraction of particles with a track")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(generateCmd)
}
