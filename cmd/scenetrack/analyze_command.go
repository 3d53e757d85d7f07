package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scenetrack/internal/analysis"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var videoID string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "analyze <gs://bucket/object>",
		Short: "Annotate a stored video and publish its tracks in the foreground",
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
			logger, err := ctx.commandLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			result, runErr := analysis.New(cfg, logger).Run(cmd.Context(), video)
			if jsonOutput {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
				return runErr
			}
			if runErr != nil {
				return runErr
			}

			rows := [][]string{
				{"Video", result.VideoID},
				{"Scenes", fmt.Sprint(result.Scenes)},
				{"Skipped", fmt.Sprint(result.Skipped)},
				{"Label track", result.TrackURL},
			}
			if result.EmojiTrackURL != "" {
				rows = append(rows, []string{"Emoji track", result.EmojiTrackURL})
			}
			if result.EmptyReason != "" {
				rows = append(rows, []string{"Note", result.EmptyReason})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().StringVar(&videoID, "id", "", "Video id (defaults to the MD5 of the stored object)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	return cmd
}
