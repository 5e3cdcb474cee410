package main

import (
	"github.com/spf13/cobra"

	"hivectl.ai/internal/logging"
)

type rootFlags struct {
	logLevel string
	logFile  string
	pretty   bool
	quiet    bool
}

func (f *rootFlags) logger() (*logging.Logger, error) {
	return logging.New(logging.Config{
		Level:   f.logLevel,
		File:    f.logFile,
		Console: !f.quiet,
		Pretty:  f.pretty,
	})
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "hivectl",
		Short:         "Tick controller for a colony of scripted agents.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFile, "log-file", "", "also append logs to this file")
	pf.BoolVar(&flags.pretty, "pretty", false, "human readable console logs")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "no console logs")

	cmd.AddCommand(newRunCmd(flags), newInspectCmd())
	return cmd
}
