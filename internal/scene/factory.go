package scene

import (
	"strings"

	"scenetrack/internal/annotation"
)

// DefaultConfidenceThreshold applies when no threshold is configured.
const DefaultConfidenceThreshold = 0.5

// CreateScene builds an empty scene from segment offsets. A missing start is
// the beginning of the video; a missing end leaves the scene open.
func CreateScene(start, end *annotation.Offset) *Scene {
	if end == nil {
		return newOpen(TimeOf(start))
	}
	return New(TimeOf(start), TimeOf(end))
}

// CreateSceneWithEntity builds a scene holding a single entity.
func CreateSceneWithEntity(start, end *annotation.Offset, confidence float32, entity annotation.Entity, categories []annotation.Entity) *Scene {
	s := CreateScene(start, end)
	s.AddEntity(NewSceneEntity(confidence, entity, categories))
	return s
}

// Factory turns label annotations into candidate scenes.
type Factory struct {
	// Threshold is the minimum confidence for segments of annotations that
	// carry more than one segment. Single-segment annotations bypass it.
	Threshold float64
}

// NewFactory returns a factory with the given threshold.
func NewFactory(threshold float64) Factory {
	return Factory{Threshold: threshold}
}

// ScenesFromAnnotation returns one scene per kept segment, sorted. A nil
// annotation or one without segments yields no scenes. A missing entity is an
// *InvalidAnnotationError with no scenes; empty or reversed segments are
// reported the same way alongside the scenes of the valid segments.
func (f Factory) ScenesFromAnnotation(a *annotation.LabelAnnotation) ([]*Scene, error) {
	scenes, _, err := f.scenesFromAnnotation(a)
	return scenes, err
}

func (f Factory) scenesFromAnnotation(a *annotation.LabelAnnotation) (scenes []*Scene, belowThreshold int, err error) {
	if a == nil || len(a.Segments) == 0 {
		return nil, 0, nil
	}
	if a.Entity == nil || strings.TrimSpace(a.Entity.Description) == "" {
		return nil, 0, &InvalidAnnotationError{Index: -1, Reason: "missing entity"}
	}

	// Confidences decode as float32; compare at that precision so a segment
	// at exactly the configured threshold is kept.
	threshold := float32(f.Threshold)
	single := len(a.Segments) == 1
	var rejected []int
	for i, seg := range a.Segments {
		if !single && seg.Confidence < threshold {
			belowThreshold++
			continue
		}
		var start, end *annotation.Offset
		if seg.Segment != nil {
			start, end = seg.Segment.StartTimeOffset, seg.Segment.EndTimeOffset
		}
		s := CreateSceneWithEntity(start, end, seg.Confidence, *a.Entity, a.CategoryEntities)
		if s.HasEnd() && !s.end.After(s.start) {
			rejected = append(rejected, i)
			continue
		}
		scenes = append(scenes, s)
	}
	Sort(scenes)
	if len(rejected) > 0 {
		return scenes, belowThreshold, &InvalidAnnotationError{
			Index:    -1,
			Label:    a.Entity.Description,
			Reason:   "segment end does not follow its start",
			Segments: rejected,
		}
	}
	return scenes, belowThreshold, nil
}
