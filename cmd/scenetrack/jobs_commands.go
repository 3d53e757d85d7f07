package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"scenetrack/internal/api"
	"scenetrack/internal/queue"
	"scenetrack/internal/workflow"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"queue"},
		Short:   "Inspect and manage queued analysis jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsAddCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				jobs, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.FromJobs(jobs))
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs")
					return nil
				}
				fmt.Fprint(out, renderTable(jobHeaders, jobRows(jobs), jobAligns))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print jobs as JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				job, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %d not found", id)
				}
				rows := [][]string{
					{"ID", fmt.Sprint(job.ID)},
					{"Video", job.VideoID},
					{"Name", job.VideoName},
					{"Source", job.SourceURL},
					{"Status", string(job.Status)},
					{"Request", job.RequestID},
					{"Scenes", fmt.Sprint(job.SceneCount)},
					{"Skipped", fmt.Sprint(job.SkippedCount)},
					{"Label track", job.TrackURL},
					{"Emoji track", job.EmojiTrackURL},
					{"Message", job.ResultMessage},
					{"Error", job.ErrorMessage},
					{"Created", job.CreatedAt.Local().Format(time.DateTime)},
					{"Updated", job.UpdatedAt.Local().Format(time.DateTime)},
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}
}

func newJobsAddCommand(ctx *commandContext) *cobra.Command {
	var videoID string

	cmd := &cobra.Command{
		Use:   "add <gs://bucket/object>",
		Short: "Queue a stored video for the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			video, err := videoFromURL(cfg, args[0], videoID)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				job, created, err := workflow.Enqueue(cmd.Context(), store, video, uuid.NewString())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !created {
					fmt.Fprintf(out, "Video %s already queued as job %d (%s)\n", job.VideoID, job.ID, job.Status)
					return nil
				}
				fmt.Fprintf(out, "Queued job %d for video %s\n", job.ID, job.VideoID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&videoID, "id", "", "Video id (defaults to the MD5 of the stored object)")
	return cmd
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Move failed and review jobs back to pending",
		Long:  "Retry resets the given jobs, or every failed and review job when no id is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseJobID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return ctx.withStore(func(store *queue.Store) error {
				updated, err := store.RetryFailed(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d job(s)\n", updated)
				return nil
			})
		},
	}
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var completedOnly bool
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete jobs from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !completedOnly && !all {
				return errors.New("pass --completed or --all")
			}
			return ctx.withStore(func(store *queue.Store) error {
				var (
					removed int64
					err     error
				)
				if completedOnly {
					removed, err = store.ClearCompleted(cmd.Context())
				} else {
					removed, err = store.Clear(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&completedOnly, "completed", false, "Only remove completed jobs")
	cmd.Flags().BoolVar(&all, "all", false, "Remove every job")
	return cmd
}

func parseStatuses(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", strings.TrimSpace(value))
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func parseJobID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", value)
	}
	return id, nil
}
