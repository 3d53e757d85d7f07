package scene

import (
	"fmt"
	"strings"
)

// InvalidAnnotationError reports an annotation that cannot produce scenes:
// a missing entity, or segments with an empty or reversed interval.
type InvalidAnnotationError struct {
	// Index is the annotation's position in the input, or -1 when unknown.
	Index  int
	Label  string
	Reason string
	// Segments lists the rejected segment positions; empty when the whole
	// annotation was rejected.
	Segments []int
}

func (e *InvalidAnnotationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid annotation")
	if e.Index >= 0 {
		fmt.Fprintf(&b, " #%d", e.Index)
	}
	if e.Label != "" {
		fmt.Fprintf(&b, " %q", e.Label)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if len(e.Segments) > 0 {
		fmt.Fprintf(&b, " (segments %v)", e.Segments)
	}
	return b.String()
}

// UnresolvedIntervalError reports a scene that still has no end boundary when
// consolidation completes.
type UnresolvedIntervalError struct {
	Index int
	Label string
	Start TimePoint
}

func (e *UnresolvedIntervalError) Error() string {
	return fmt.Sprintf("unresolved interval: annotation #%d %q starting at %s has no end", e.Index, e.Label, e.Start)
}

// EmptyResultError describes a consolidation that produced no scenes from a
// non-empty input. It is informational; Consolidate never returns it.
type EmptyResultError struct {
	Annotations    int
	BelowThreshold int
	Skipped        int
	Threshold      float64
}

func (e *EmptyResultError) Error() string {
	switch {
	case e.Skipped == e.Annotations:
		return fmt.Sprintf("no scenes: all %d annotations were invalid", e.Annotations)
	case e.BelowThreshold > 0:
		return fmt.Sprintf("no scenes: %d segments of %d annotations fell below confidence threshold %.2f",
			e.BelowThreshold, e.Annotations, e.Threshold)
	default:
		return fmt.Sprintf("no scenes: %d annotations carried no segments", e.Annotations)
	}
}
