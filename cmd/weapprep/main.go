// Command weapprep prepares hydrological, meteorological, land use and urban
// demand datasets for a WEAP model from a YAML job file.
//
// Usage:
//
//	weapprep validate jobs/karnali.yaml
//	weapprep run jobs/karnali.yaml
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "weapprep",
		Short:        "Prepare WEAP input datasets for Nepal catchments and municipalities",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var noKafka bool

	cmd := &cobra.Command{
		Use:   "run [job-file]",
		Short: "Build every dataset the job describes and write it to the output directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd.Context(), args[0], noKafka)
		},
	}

	cmd.Flags().BoolVar(&noKafka, "no-kafka", false, "skip publishing to Kafka even when KAFKA_ENABLED is set")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [job-file]",
		Short: "Check a job file without reading any input data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateJob(cmd.OutOrStdout(), args[0])
		},
	}
}
