package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cpcf/kiln/logging"
)

var version = "v0.1.0"

var rootFlags struct {
	verbose    int
	configFile string
}

var rootCmd = &cobra.Command{
	Use:           "kiln",
	Short:         "kiln bakes projects from templates",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetupLogger(rootFlags.verbose, cmd.ErrOrStderr())
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().CountVarP(&rootFlags.verbose, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.configFile, "config-file", "", "User configuration file (default $XDG_CONFIG_HOME/kiln/config.yaml)")
	rootCmd.AddCommand(bakeCmd)
	rootCmd.AddCommand(varsCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(checkCmd)
}
