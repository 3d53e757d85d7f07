package scene

import (
	"errors"
	"sort"

	"scenetrack/internal/annotation"
)

// Relation classifies how a candidate scene lies relative to an existing one.
type Relation int

const (
	RelationDisjoint Relation = iota
	// RelationExact: identical boundaries.
	RelationExact
	// RelationInside: candidate strictly inside existing.
	RelationInside
	// RelationStraddleStart: candidate begins before existing and ends inside it.
	RelationStraddleStart
	// RelationStraddleEnd: candidate begins inside existing and ends after it.
	RelationStraddleEnd
	// RelationCovers: candidate covers existing and at least one boundary differs.
	RelationCovers
	// RelationSharedBoundary: one boundary is shared and the candidate lies
	// within existing.
	RelationSharedBoundary
)

func (r Relation) String() string {
	switch r {
	case RelationExact:
		return "exact"
	case RelationInside:
		return "inside"
	case RelationStraddleStart:
		return "straddle_start"
	case RelationStraddleEnd:
		return "straddle_end"
	case RelationCovers:
		return "covers"
	case RelationSharedBoundary:
		return "shared_boundary"
	default:
		return "disjoint"
	}
}

// Classify returns the relation of candidate to existing.
func Classify(existing, candidate *Scene) Relation {
	switch {
	case !candidate.Overlaps(existing):
		return RelationDisjoint
	case candidate.MatchesTime(existing):
		return RelationExact
	case candidate.start > existing.start && candidate.end < existing.end:
		return RelationInside
	case candidate.start < existing.start && candidate.end > existing.start && candidate.end < existing.end:
		return RelationStraddleStart
	case candidate.start > existing.start && candidate.start < existing.end && candidate.end > existing.end:
		return RelationStraddleEnd
	case candidate.start <= existing.start && candidate.end >= existing.end:
		return RelationCovers
	default:
		return RelationSharedBoundary
	}
}

// Stats counts what happened during one consolidation.
type Stats struct {
	Annotations    int
	Candidates     int
	BelowThreshold int
	Relations      map[Relation]int
	Frames         int
	Raised         int
}

// Skipped records an annotation, or some of its segments, left out in
// best-effort mode.
type Skipped struct {
	Index int
	Label string
	Err   error
}

// Result is the outcome of a consolidation.
type Result struct {
	Scenes  []*Scene
	Skipped []Skipped
	Stats   Stats
	empty   *EmptyResultError
}

// Empty reports a non-empty input that produced no scenes.
func (r Result) Empty() bool { return r.empty != nil }

// Reason explains an empty result; it is "" otherwise.
func (r Result) Reason() string {
	if r.empty == nil {
		return ""
	}
	return r.empty.Error()
}

// EmptyErr returns the soft empty-result report, or nil.
func (r Result) EmptyErr() *EmptyResultError { return r.empty }

// Option customizes a Consolidator.
type Option func(*Consolidator)

// WithStrict aborts on the first invalid annotation instead of skipping it.
func WithStrict(strict bool) Option {
	return func(c *Consolidator) { c.strict = strict }
}

// WithTimelineEnd closes open-ended segments at end, typically the end of the
// last detected shot.
func WithTimelineEnd(end TimePoint) Option {
	return func(c *Consolidator) {
		c.timelineEnd = end
		c.hasTimelineEnd = true
	}
}

// Consolidator folds label annotations and explicit-content frames into an
// ordered set of non-overlapping scenes. It is not safe for concurrent use of
// a single Consolidate call, but holds no state between calls.
type Consolidator struct {
	factory        Factory
	strict         bool
	timelineEnd    TimePoint
	hasTimelineEnd bool
}

// NewConsolidator returns a consolidator building candidates with factory.
func NewConsolidator(factory Factory, opts ...Option) *Consolidator {
	c := &Consolidator{factory: factory}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Consolidate processes annotations in order. Each annotation's candidate
// scenes are folded into a working set that never contains overlapping
// scenes: an overlapped existing scene is split at the candidate's
// boundaries, the shared piece is amended with the candidate's entities, and
// the parts of the candidate not covered by any existing scene are added as
// new scenes. Frames then raise the likelihood of every scene whose closed
// interval contains them.
//
// Invalid annotations are skipped and listed in Result.Skipped unless strict
// mode is on. An open-ended segment that cannot be closed is fatal.
func (c *Consolidator) Consolidate(annotations []annotation.LabelAnnotation, frames []annotation.ExplicitFrame) (Result, error) {
	result := Result{Stats: Stats{Annotations: len(annotations), Relations: make(map[Relation]int)}}
	ws := &workingSet{}

	for i := range annotations {
		a := &annotations[i]
		candidates, below, err := c.factory.scenesFromAnnotation(a)
		result.Stats.BelowThreshold += below
		if err != nil {
			var invalid *InvalidAnnotationError
			if errors.As(err, &invalid) {
				invalid.Index = i
				if invalid.Label == "" {
					invalid.Label = a.Label()
				}
			}
			if c.strict {
				return Result{}, err
			}
			result.Skipped = append(result.Skipped, Skipped{Index: i, Label: a.Label(), Err: err})
		}
		for _, candidate := range candidates {
			if !candidate.HasEnd() {
				if !c.hasTimelineEnd || !c.timelineEnd.After(candidate.start) {
					return Result{}, &UnresolvedIntervalError{Index: i, Label: a.Label(), Start: candidate.start}
				}
				candidate.end, candidate.open = c.timelineEnd, false
			}
			result.Stats.Candidates++
			ws.fold(candidate, result.Stats.Relations)
		}
	}

	result.Stats.Frames = len(frames)
	for _, frame := range frames {
		at := TimeOf(frame.TimeOffset)
		for _, s := range ws.scenes {
			if s.Contains(at) && s.RaiseLikelihood(frame.PornographyLikelihood) {
				result.Stats.Raised++
			}
		}
	}

	result.Scenes = ws.scenes
	if len(result.Scenes) == 0 && len(annotations) > 0 {
		result.empty = &EmptyResultError{
			Annotations:    len(annotations),
			BelowThreshold: result.Stats.BelowThreshold,
			Skipped:        countWholeSkips(result.Skipped),
			Threshold:      c.factory.Threshold,
		}
	}
	return result, nil
}

func countWholeSkips(skipped []Skipped) int {
	n := 0
	for _, s := range skipped {
		var invalid *InvalidAnnotationError
		if errors.As(s.Err, &invalid) && len(invalid.Segments) == 0 {
			n++
		}
	}
	return n
}

// workingSet keeps scenes sorted by start with no two overlapping. Every
// scene in it is owned by the set alone.
type workingSet struct {
	scenes []*Scene
}

// overlapping returns the index range [lo, hi) of scenes sharing time with c.
// Scenes are disjoint and sorted, so their ends are sorted too.
func (ws *workingSet) overlapping(c *Scene) (int, int) {
	lo := sort.Search(len(ws.scenes), func(i int) bool { return ws.scenes[i].end > c.start })
	hi := lo
	for hi < len(ws.scenes) && ws.scenes[hi].start < c.end {
		hi++
	}
	return lo, hi
}

// fold inserts candidate c, splitting and amending what it overlaps.
func (ws *workingSet) fold(c *Scene, relations map[Relation]int) {
	lo, hi := ws.overlapping(c)
	if lo == hi {
		relations[RelationDisjoint]++
		ws.replace(lo, hi, []*Scene{c})
		return
	}

	pieces := make([]*Scene, 0, 2*(hi-lo)+2)
	cursor := c.start
	for _, existing := range ws.scenes[lo:hi] {
		relations[Classify(existing, c)]++
		if cursor < existing.start {
			pieces = append(pieces, c.slice(cursor, existing.start))
		}
		if existing.start < c.start {
			pieces = append(pieces, existing.slice(existing.start, c.start))
		}
		shared := existing.slice(maxTime(existing.start, c.start), minTime(existing.end, c.end))
		shared.AmendWith(c)
		pieces = append(pieces, shared)
		if existing.end > c.end {
			pieces = append(pieces, existing.slice(c.end, existing.end))
		}
		cursor = minTime(existing.end, c.end)
	}
	if cursor < c.end {
		pieces = append(pieces, c.slice(cursor, c.end))
	}
	ws.replace(lo, hi, pieces)
}

// replace swaps scenes[lo:hi] for pieces, which must already be sorted.
func (ws *workingSet) replace(lo, hi int, pieces []*Scene) {
	tail := append([]*Scene(nil), ws.scenes[hi:]...)
	ws.scenes = append(append(ws.scenes[:lo], pieces...), tail...)
}
