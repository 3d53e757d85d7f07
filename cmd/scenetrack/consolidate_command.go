package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scenetrack/internal/analysis"
	"scenetrack/internal/services/emojidex"
	"scenetrack/internal/track"
)

func newConsolidateCommand(ctx *commandContext) *cobra.Command {
	var (
		threshold  float64
		categories bool
		emoji      bool
		format     string
		strict     bool
	)

	cmd := &cobra.Command{
		Use:   "consolidate <results.json>",
		Short: "Consolidate stored annotation results into a caption track",
		Long: `Consolidate reads an annotation response saved as JSON (either the
operation envelope or the bare response) and prints the consolidated scenes.
Nothing is published and the annotation service is not contacted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			outFormat, err := track.ParseFormat(format)
			if err != nil {
				return err
			}
			if emoji && outFormat == track.FormatJSON {
				return errors.New("--emoji renders a caption track; use --format text or vtt")
			}
			opts := analysis.Options{
				Threshold: cfg.Consolidation.ConfidenceThreshold,
				Strict:    strict || cfg.Consolidation.Strict,
			}
			if cmd.Flags().Changed("threshold") {
				opts.Threshold = threshold
			}
			includeCategories := cfg.Tracks.IncludeCategories
			if cmd.Flags().Changed("categories") {
				includeCategories = categories
			}

			logger, err := ctx.commandLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			result, err := analysis.ConsolidateFile(args[0], opts)
			if err != nil {
				return err
			}
			for _, skipped := range result.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped annotation %d (%s): %v\n", skipped.Index, skipped.Label, skipped.Err)
			}
			if result.Empty() {
				fmt.Fprintf(cmd.ErrOrStderr(), "no scenes: %s\n", result.Reason())
			}

			out := cmd.OutOrStdout()
			switch {
			case emoji:
				resolver := emojidex.NewClient(emojidex.Config{BaseURL: cfg.Tracks.EmojiBaseURL, Timeout: cfg.EmojiTimeout()})
				cache := track.NewEmojiCache(resolver, cfg.Tracks.EmojiFallback, logger)
				rendered, err := track.EmojiTrack(cmd.Context(), result.Scenes, cache)
				if err != nil {
					return err
				}
				if outFormat == track.FormatText {
					rendered = strings.TrimPrefix(rendered, "WEBVTT\n\n")
				}
				fmt.Fprint(out, rendered)
			case outFormat == track.FormatJSON:
				data, err := track.RenderJSON(result.Scenes)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			case outFormat == track.FormatVTT:
				fmt.Fprint(out, track.RenderVTT(result.Scenes, includeCategories))
			default:
				fmt.Fprint(out, track.Render(result.Scenes, includeCategories))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum segment confidence (defaults to consolidation.confidence_threshold)")
	cmd.Flags().BoolVar(&categories, "categories", false, "Append category descriptions to labels")
	cmd.Flags().BoolVar(&emoji, "emoji", false, "Render the emoji track instead of labels")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, vtt, or json")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on the first invalid annotation")
	return cmd
}
