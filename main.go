package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lemansstrat/pkg/config"
	"lemansstrat/pkg/logging"
)

type rootOptions struct {
	configDir string
	logLevel  string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "lemansstrat",
		Short: "Stint planner for endurance races",
		Long: `Projects the remaining stints of an endurance race from the race
configuration, the driver roster and live telemetry, and keeps the plan of
every car up to date while the race runs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(opts.configDir); err != nil {
				return err
			}
			level := opts.logLevel
			if level == "" {
				level = config.GetString("logLevel")
			}
			logging.Setup(level, nil)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", ".", "directory holding "+config.ConfigFileName)
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level, overrides logLevel from the config")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newPlanCommand(opts))

	return cmd
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
