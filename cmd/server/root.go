package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rohits-web03/edudrive/internal/config"
)

func NewRootCommand() *cobra.Command {
	var c container

	rootCmd := &cobra.Command{
		Use:   "edudrive",
		Short: "EduDrive storage server",
		Long: `EduDrive serves per-user drives with storage quotas, daily bandwidth
limits and copy requests between users.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return c.init(config.Envs)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close()
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(NewServeCommand(&c))
	rootCmd.AddCommand(NewReconcileCommand(&c))
	rootCmd.AddCommand(NewPurgeCommand(&c))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
