// Package cmd provides the command-line interface of cachepart.
package cmd

import (
	"os"
	"path/filepath"

	"github.com/sarchlab/cachepart/internal/config"
	"github.com/sarchlab/cachepart/internal/logging"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

const logLevelEnv = "CACHEPART_LOG_LEVEL"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use: "cachepart",
		Short: "cachepart checks cache partitioning configurations and " +
			"replays traces through partitioned caches.",
		Long: `cachepart checks cache partitioning configurations and ` +
			`replays traces through partitioned caches. Partitions can be ` +
			`confined to ways or limited to a fraction of the capacity.`,
		SilenceUsage:      true,
		PersistentPreRunE: setUpEnvironment,
	}

	rootCmd.PersistentFlags().String("log-level", "",
		"log level (debug, info, warn, error), defaults to $"+logLevelEnv)

	rootCmd.AddCommand(
		newValidateCmd(),
		newReplayCmd(),
		newExportRDTCmd(),
	)

	return rootCmd
}

func setUpEnvironment(cmd *cobra.Command, _ []string) error {
	envFiles := []string{".env"}
	if execPath, err := os.Executable(); err == nil {
		envFiles = append(envFiles, filepath.Join(filepath.Dir(execPath), ".env"))
	}

	config.LoadEnv(envFiles...)

	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = os.Getenv(logLevelEnv)
	}

	if level == "" {
		return nil
	}

	return logging.SetLogLevel(level)
}

// Execute runs the command line and exits with a non-zero status on error.
func Execute() {
	err := newRootCmd().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
