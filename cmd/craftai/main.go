package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	verbose bool
	logger  *slog.Logger
}

func main() {
	if err := cliParser().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func cliParser() *cobra.Command {
	config := &rootCmdConfig{}
	rootCmd := &cobra.Command{
		Use:   "craftai",
		Short: "craftai takes decisions with decision trees",
		Long:  `A tool to take decisions locally with the decision trees computed by the decision service, and to inspect them`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.logger = newLogger(cmd.ErrOrStderr(), config.verbose)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&(config.verbose), "verbose", "v", false, "log what is being done on stderr")
	rootCmd.AddCommand(
		versionCmd(),
		decideCmd(config),
		treeCmd(config),
		pathsCmd(config),
		neighboursCmd(config),
		reduceCmd(config),
		storeCmd(config),
	)
	return rootCmd
}
