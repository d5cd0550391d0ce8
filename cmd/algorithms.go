package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/pflow/internal/algorithms"
	"github.com/zjrosen/pflow/internal/presentation"
)

var algorithmsCmd = &cobra.Command{
	Use:   "algorithms",
	Short: "List the registered algorithm types",
	Long: `List the algorithm types that can be named in the pipeline configuration,
one per line.

Examples:
  pflow algorithms`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return presentation.NewFormatter(cmd.OutOrStdout()).FormatAlgorithms(algorithms.NewRegistry().Types())
	},
}

func init() {
	rootCmd.AddCommand(algorithmsCmd)
}
