package scene

import (
	"fmt"
	"sort"
	"strings"

	"scenetrack/internal/annotation"
)

// Scene is a time interval [start, end) with the entities observed in it and
// the highest explicit-content likelihood of any frame inside [start, end].
//
// Scenes are only mutated while the consolidator owns them; callers receive
// them read-only.
type Scene struct {
	start      TimePoint
	end        TimePoint
	open       bool
	entities   map[string]SceneEntity
	likelihood annotation.Likelihood
}

// New returns a scene over [start, end) without entities.
func New(start, end TimePoint) *Scene {
	return &Scene{start: start, end: end, entities: make(map[string]SceneEntity)}
}

// newOpen returns a scene that starts at start and has no end yet.
func newOpen(start TimePoint) *Scene {
	return &Scene{start: start, open: true, entities: make(map[string]SceneEntity)}
}

func (s *Scene) Start() TimePoint { return s.start }

// End returns the end boundary; it is meaningless when HasEnd is false.
func (s *Scene) End() TimePoint { return s.end }

// HasEnd reports whether the end boundary is set.
func (s *Scene) HasEnd() bool { return !s.open }

func (s *Scene) Likelihood() annotation.Likelihood { return s.likelihood }

// Len returns the number of entities.
func (s *Scene) Len() int { return len(s.entities) }

// Entities returns the entities ordered by label, then by descending confidence.
func (s *Scene) Entities() []SceneEntity {
	out := make([]SceneEntity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return lessEntity(out[i], out[j]) })
	return out
}

// HasEntity reports whether an equal entity is present.
func (s *Scene) HasEntity(e SceneEntity) bool {
	_, ok := s.entities[e.Key()]
	return ok
}

// Labels returns the distinct entity labels in order.
func (s *Scene) Labels() []string {
	var labels []string
	seen := make(map[string]struct{}, len(s.entities))
	for _, e := range s.Entities() {
		if _, ok := seen[e.Label()]; ok {
			continue
		}
		seen[e.Label()] = struct{}{}
		labels = append(labels, e.Label())
	}
	return labels
}

// AddEntity inserts e unless an equal entity is already present.
func (s *Scene) AddEntity(e SceneEntity) {
	if _, ok := s.entities[e.Key()]; !ok {
		s.entities[e.Key()] = e
	}
}

// endOrMax treats a missing end as unbounded.
func (s *Scene) endOrMax() TimePoint {
	if s.open {
		return TimePoint(1<<63 - 1)
	}
	return s.end
}

// Compare orders scenes by start, then end. Open-ended scenes sort last among
// equal starts.
func (s *Scene) Compare(o *Scene) int {
	if c := s.start.Compare(o.start); c != 0 {
		return c
	}
	return s.endOrMax().Compare(o.endOrMax())
}

// MatchesTime reports identical boundaries.
func (s *Scene) MatchesTime(o *Scene) bool {
	return s.start == o.start && s.open == o.open && (s.open || s.end == o.end)
}

// StartsWithin reports whether s starts at o's start or strictly inside o.
func (s *Scene) StartsWithin(o *Scene) bool {
	return s.start == o.start || (s.start > o.start && s.start < o.endOrMax())
}

// EndsWithin reports whether s ends at o's end or strictly inside o.
func (s *Scene) EndsWithin(o *Scene) bool {
	end := s.endOrMax()
	return end == o.endOrMax() || (end > o.start && end < o.endOrMax())
}

// Overlaps reports whether either scene starts or ends within the other.
// Scenes that only touch (one ends where the other starts) do not overlap.
func (s *Scene) Overlaps(o *Scene) bool {
	return s.StartsWithin(o) || s.EndsWithin(o) || o.StartsWithin(s) || o.EndsWithin(s)
}

// Contains reports whether t lies within the closed interval [start, end].
func (s *Scene) Contains(t TimePoint) bool {
	return t == s.start || (t > s.start && t < s.endOrMax()) || (!s.open && t == s.end)
}

// AmendWith merges o's entities into s and raises s's likelihood to o's.
func (s *Scene) AmendWith(o *Scene) {
	for k, e := range o.entities {
		if _, ok := s.entities[k]; !ok {
			s.entities[k] = e
		}
	}
	s.RaiseLikelihood(o.likelihood)
}

// RaiseLikelihood sets the likelihood to l when l ranks higher. It reports
// whether the likelihood changed.
func (s *Scene) RaiseLikelihood(l annotation.Likelihood) bool {
	raised := s.likelihood.Max(l)
	if raised == s.likelihood {
		return false
	}
	s.likelihood = raised
	return true
}

// Clone returns an independent copy.
func (s *Scene) Clone() *Scene {
	c := &Scene{
		start:      s.start,
		end:        s.end,
		open:       s.open,
		likelihood: s.likelihood,
		entities:   make(map[string]SceneEntity, len(s.entities)),
	}
	for k, e := range s.entities {
		c.entities[k] = e
	}
	return c
}

// slice returns a copy of s bounded to [start, end).
func (s *Scene) slice(start, end TimePoint) *Scene {
	c := s.Clone()
	c.start, c.end, c.open = start, end, false
	return c
}

// Equal compares boundaries, entities and likelihood by value.
func (s *Scene) Equal(o *Scene) bool {
	if !s.MatchesTime(o) || s.likelihood != o.likelihood || len(s.entities) != len(o.entities) {
		return false
	}
	for k := range s.entities {
		if _, ok := o.entities[k]; !ok {
			return false
		}
	}
	return true
}

func (s *Scene) String() string {
	end := "…"
	if !s.open {
		end = s.end.String()
	}
	labels := make([]string, 0, len(s.entities))
	for _, e := range s.Entities() {
		labels = append(labels, e.Description(false))
	}
	return fmt.Sprintf("[%s, %s) {%s} %s", s.start, end, strings.Join(labels, ", "), s.likelihood)
}

// Sort orders scenes canonically in place.
func Sort(scenes []*Scene) {
	sort.SliceStable(scenes, func(i, j int) bool { return scenes[i].Compare(scenes[j]) < 0 })
}
