package analysis

import (
	"fmt"

	"scenetrack/internal/annotation"
	"scenetrack/internal/scene"
	"scenetrack/internal/services"
)

// Options controls how annotation results are folded into scenes.
type Options struct {
	Threshold float64
	Strict    bool
}

// Consolidate folds the shot labels and explicit frames of resp into scenes.
// Open-ended segments are closed at the end of the last detected shot.
func Consolidate(resp annotation.AnnotateVideoResponse, opts Options) (scene.Result, error) {
	consolidatorOpts := []scene.Option{scene.WithStrict(opts.Strict)}
	if end, ok := resp.TimelineEnd(); ok {
		consolidatorOpts = append(consolidatorOpts, scene.WithTimelineEnd(scene.TimePoint(end)))
	}
	consolidator := scene.NewConsolidator(scene.NewFactory(opts.Threshold), consolidatorOpts...)
	result, err := consolidator.Consolidate(resp.ShotLabels(), resp.ExplicitFrames())
	if err != nil {
		return scene.Result{}, services.Wrap(services.ErrValidation, "consolidation", "consolidate", "Annotation results could not be consolidated", err)
	}
	return result, nil
}

// ConsolidateFile decodes a stored annotation response and consolidates it.
func ConsolidateFile(path string, opts Options) (scene.Result, error) {
	resp, err := annotation.DecodeFile(path)
	if err != nil {
		return scene.Result{}, services.Wrap(services.ErrValidation, "consolidation", "decode", fmt.Sprintf("Could not read annotation results from %s", path), err)
	}
	return Consolidate(resp, opts)
}
