package main

import (
	"github.com/spf13/cobra"

	"scenetrack/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var development bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the analysis daemon in the foreground",
		Long: `Daemon serves the push endpoint and job API, drains the job queue,
and optionally watches storage.root_dir for new videos. It stops on
SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			level := ""
			if ctx.logLevelFlag != nil {
				level = *ctx.logLevelFlag
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: level, Development: development})
		},
	}

	cmd.Flags().BoolVar(&development, "dev", false, "Enable development logging")
	return cmd
}
