package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"scenetrack/internal/logging"
	"scenetrack/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines   int
		follow  bool
		videoID string
		jobID   int64
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			var filters []string
			if videoID != "" {
				filters = append(filters, videoID)
			}
			if jobID > 0 {
				pattern := "%s=%d"
				if cfg.Logging.Format == "json" {
					pattern = "%q:%d"
				}
				filters = append(filters, fmt.Sprintf(pattern, logging.FieldJobID, jobID))
			}

			out := cmd.OutOrStdout()
			result, err := logs.Tail(path, logs.TailOptions{Limit: lines, Contains: filters})
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, result.Offset, filters, logs.DefaultPollInterval, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&videoID, "video", "", "Only lines mentioning this video id")
	cmd.Flags().Int64Var(&jobID, "job", 0, "Only lines for this job id")
	return cmd
}
