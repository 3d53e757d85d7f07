package annotation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Offset is a protobuf-style duration measured from the start of the video.
// JSON accepts both {"seconds": 12, "nanos": 5e8} and the canonical "12.5s".
type Offset struct {
	Seconds int64
	Nanos   int32
}

// OffsetOf converts a duration into an Offset.
func OffsetOf(d time.Duration) *Offset {
	return &Offset{
		Seconds: int64(d / time.Second),
		Nanos:   int32(d % time.Second),
	}
}

// Duration returns the offset as a time.Duration.
func (o Offset) Duration() time.Duration {
	return time.Duration(o.Seconds)*time.Second + time.Duration(o.Nanos)
}

func (o Offset) String() string {
	return formatDurationSeconds(o.Duration())
}

// MarshalJSON renders the canonical protobuf JSON form.
func (o Offset) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON accepts the string and object encodings.
func (o *Offset) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		d, err := parseDurationSeconds(raw)
		if err != nil {
			return err
		}
		*o = *OffsetOf(d)
		return nil
	}
	var obj struct {
		Seconds json.Number `json:"seconds"`
		Nanos   json.Number `json:"nanos"`
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&obj); err != nil {
		return fmt.Errorf("decode offset: %w", err)
	}
	var parsed Offset
	if obj.Seconds != "" {
		seconds, err := strconv.ParseInt(string(obj.Seconds), 10, 64)
		if err != nil {
			return fmt.Errorf("decode offset seconds %q: %w", obj.Seconds, err)
		}
		parsed.Seconds = seconds
	}
	if obj.Nanos != "" {
		nanos, err := strconv.ParseInt(string(obj.Nanos), 10, 32)
		if err != nil {
			return fmt.Errorf("decode offset nanos %q: %w", obj.Nanos, err)
		}
		parsed.Nanos = int32(nanos)
	}
	*o = parsed
	return nil
}

func parseDurationSeconds(raw string) (time.Duration, error) {
	value := strings.TrimSpace(raw)
	if !strings.HasSuffix(value, "s") {
		return 0, fmt.Errorf("decode offset %q: missing seconds suffix", raw)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSuffix(value, "s"), 64)
	if err != nil {
		return 0, fmt.Errorf("decode offset %q: %w", raw, err)
	}
	return time.Duration(math.Round(seconds * float64(time.Second))), nil
}

func formatDurationSeconds(d time.Duration) string {
	seconds := int64(d / time.Second)
	nanos := int64(d % time.Second)
	if nanos == 0 {
		return strconv.FormatInt(seconds, 10) + "s"
	}
	frac := strings.TrimRight(fmt.Sprintf("%09d", nanos), "0")
	return fmt.Sprintf("%d.%ss", seconds, frac)
}

// Entity is a detected label, for example "dog" or its category "animal".
type Entity struct {
	EntityID     string `json:"entityId,omitempty"`
	Description  string `json:"description"`
	LanguageCode string `json:"languageCode,omitempty"`
}

// Segment bounds a detection in time. Either offset may be absent.
type Segment struct {
	StartTimeOffset *Offset `json:"startTimeOffset,omitempty"`
	EndTimeOffset   *Offset `json:"endTimeOffset,omitempty"`
}

// LabelSegment is one time segment of a label detection with its confidence.
type LabelSegment struct {
	Segment    *Segment `json:"segment,omitempty"`
	Confidence float32  `json:"confidence"`
}

// LabelAnnotation is one detector observation over one or more segments.
type LabelAnnotation struct {
	Entity           *Entity        `json:"entity,omitempty"`
	CategoryEntities []Entity       `json:"categoryEntities,omitempty"`
	Segments         []LabelSegment `json:"segments,omitempty"`
}

// Label returns the entity description or an empty string.
func (a *LabelAnnotation) Label() string {
	if a == nil || a.Entity == nil {
		return ""
	}
	return a.Entity.Description
}

// ExplicitFrame scores a single point in time for explicit content.
type ExplicitFrame struct {
	TimeOffset            *Offset    `json:"timeOffset,omitempty"`
	PornographyLikelihood Likelihood `json:"pornographyLikelihood"`
}

// ExplicitAnnotation groups the explicit-content frames of one video.
type ExplicitAnnotation struct {
	Frames []ExplicitFrame `json:"frames,omitempty"`
}

// Status is an error reported by the annotation service.
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// VideoAnnotationResults holds the annotations produced for one input video.
type VideoAnnotationResults struct {
	InputURI                string              `json:"inputUri,omitempty"`
	SegmentLabelAnnotations []LabelAnnotation   `json:"segmentLabelAnnotations,omitempty"`
	ShotLabelAnnotations    []LabelAnnotation   `json:"shotLabelAnnotations,omitempty"`
	ShotAnnotations         []Segment           `json:"shotAnnotations,omitempty"`
	ExplicitAnnotation      *ExplicitAnnotation `json:"explicitAnnotation,omitempty"`
	Error                   *Status             `json:"error,omitempty"`
}

// AnnotateVideoResponse is the payload of a finished annotation operation.
type AnnotateVideoResponse struct {
	AnnotationResults []VideoAnnotationResults `json:"annotationResults"`
}

// Empty reports whether the service detected nothing at all.
func (r AnnotateVideoResponse) Empty() bool {
	return len(r.AnnotationResults) == 0
}

// ShotLabels returns the shot label annotations of every result in order.
func (r AnnotateVideoResponse) ShotLabels() []LabelAnnotation {
	var out []LabelAnnotation
	for _, result := range r.AnnotationResults {
		out = append(out, result.ShotLabelAnnotations...)
	}
	return out
}

// ExplicitFrames returns the explicit-content frames of every result in order.
func (r AnnotateVideoResponse) ExplicitFrames() []ExplicitFrame {
	var out []ExplicitFrame
	for _, result := range r.AnnotationResults {
		if result.ExplicitAnnotation != nil {
			out = append(out, result.ExplicitAnnotation.Frames...)
		}
	}
	return out
}

// TimelineEnd returns the latest shot end offset, which bounds the video.
func (r AnnotateVideoResponse) TimelineEnd() (time.Duration, bool) {
	var end time.Duration
	found := false
	for _, result := range r.AnnotationResults {
		for _, shot := range result.ShotAnnotations {
			if shot.EndTimeOffset == nil {
				continue
			}
			if d := shot.EndTimeOffset.Duration(); !found || d > end {
				end = d
				found = true
			}
		}
	}
	return end, found
}

// Errors returns the per-result errors reported by the service.
func (r AnnotateVideoResponse) Errors() []Status {
	var out []Status
	for _, result := range r.AnnotationResults {
		if result.Error != nil && result.Error.Code != 0 {
			out = append(out, *result.Error)
		}
	}
	return out
}
