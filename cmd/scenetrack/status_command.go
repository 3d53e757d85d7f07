package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"scenetrack/internal/api"
	"scenetrack/internal/daemonrun"
	"scenetrack/internal/preflight"
	"scenetrack/internal/queue"
)

const daemonProbeTimeout = 3 * time.Second

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			printSection(out, "Daemon", colorize)
			probeCtx, cancel := context.WithTimeout(cmd.Context(), daemonProbeTimeout)
			defer cancel()
			client := api.NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
			status, err := client.Status(probeCtx)
			switch {
			case err == nil:
				fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
				fmt.Fprintln(out, renderStatusLine("API", statusInfo, cfg.Paths.APIBind, colorize))
				if status.Watching != "" {
					fmt.Fprintln(out, renderStatusLine("Watching", statusInfo, status.Watching, colorize))
				}
				health := status.Workflow.Health
				kind := statusOK
				if !health.Ready {
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Pipeline", kind, firstNonEmpty(health.Detail, "ready"), colorize))
				if status.Workflow.LastError != "" {
					fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, status.Workflow.LastError, colorize))
				}
			case errors.Is(err, api.ErrDaemonUnavailable):
				message := "not running"
				if pid, pidErr := daemonrun.ReadPID(cfg); pidErr == nil {
					message = fmt.Sprintf("not reachable (stale pid %d)", pid)
				}
				fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, message, colorize))
			default:
				fmt.Fprintln(out, renderStatusLine("Daemon", statusError, err.Error(), colorize))
			}

			if !skipChecks {
				printSection(out, "Dependencies", colorize)
				for _, result := range preflight.RunAll(cmd.Context(), cfg) {
					kind, detail := preflightKind(result)
					fmt.Fprintln(out, renderStatusLine(result.Name, kind, detail, colorize))
				}
			}

			printSection(out, "Queue", colorize)
			return ctx.withStore(func(store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range queue.AllStatuses() {
					fmt.Fprintln(out, renderStatusLine(string(s), queueKind(s, stats[s]), fmt.Sprint(stats[s]), colorize))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip dependency checks")
	return cmd
}

func printSection(out io.Writer, title string, colorize bool) {
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}

func queueKind(status queue.Status, count int) statusKind {
	if count == 0 {
		return statusInfo
	}
	switch status {
	case queue.StatusFailed:
		return statusError
	case queue.StatusReview:
		return statusWarn
	case queue.StatusCompleted:
		return statusOK
	default:
		return statusInfo
	}
}
