package scene

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"scenetrack/internal/annotation"
)

// confidenceKeyScale sets the resolution at which confidences are considered
// equal when deduplicating entities.
const confidenceKeyScale = 1e4

// SceneEntity is one detected label inside a scene: the entity, the detection
// confidence, and the entity's categories. Values are immutable.
type SceneEntity struct {
	confidence float32
	entity     annotation.Entity
	categories []annotation.Entity
	key        string
}

// NewSceneEntity builds a SceneEntity. Categories are deduplicated by
// description and keep their input order.
func NewSceneEntity(confidence float32, entity annotation.Entity, categories []annotation.Entity) SceneEntity {
	var cats []annotation.Entity
	seen := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		if _, ok := seen[c.Description]; ok {
			continue
		}
		seen[c.Description] = struct{}{}
		cats = append(cats, c)
	}
	e := SceneEntity{confidence: confidence, entity: entity, categories: cats}
	e.key = e.buildKey()
	return e
}

func (e SceneEntity) Confidence() float32 { return e.confidence }

func (e SceneEntity) Entity() annotation.Entity { return e.entity }

// Label is the entity description.
func (e SceneEntity) Label() string { return e.entity.Description }

// Categories returns a copy of the category entities.
func (e SceneEntity) Categories() []annotation.Entity {
	return append([]annotation.Entity(nil), e.categories...)
}

// Key identifies the value: label, confidence (at 1e-4 resolution) and the
// sorted category labels.
func (e SceneEntity) Key() string { return e.key }

// Equal compares by value.
func (e SceneEntity) Equal(o SceneEntity) bool { return e.key == o.key }

// Description renders "label" or "label (cat1/cat2)".
func (e SceneEntity) Description(includeCategories bool) string {
	if !includeCategories || len(e.categories) == 0 {
		return e.entity.Description
	}
	names := make([]string, len(e.categories))
	for i, c := range e.categories {
		names[i] = c.Description
	}
	return e.entity.Description + " (" + strings.Join(names, "/") + ")"
}

func (e SceneEntity) buildKey() string {
	names := make([]string, len(e.categories))
	for i, c := range e.categories {
		names[i] = c.Description
	}
	sort.Strings(names)
	rounded := math.Round(float64(e.confidence)*confidenceKeyScale) / confidenceKeyScale
	var b strings.Builder
	b.WriteString(strconv.Quote(e.entity.Description))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(rounded, 'f', 4, 64))
	b.WriteByte('|')
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(name))
	}
	return b.String()
}

// lessEntity orders entities by label, then by descending confidence.
func lessEntity(a, b SceneEntity) bool {
	if a.entity.Description != b.entity.Description {
		return a.entity.Description < b.entity.Description
	}
	if a.confidence != b.confidence {
		return a.confidence > b.confidence
	}
	return a.key < b.key
}
