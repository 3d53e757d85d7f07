package scene

import (
	"fmt"
	"time"

	"scenetrack/internal/annotation"
)

// TimePoint is an offset from the beginning of the video with nanosecond
// precision. The zero value is 00:00:00.000.
type TimePoint time.Duration

// Midnight is the beginning of the video.
const Midnight TimePoint = 0

// TimeOf converts an annotation offset. A nil offset is the beginning.
func TimeOf(o *annotation.Offset) TimePoint {
	if o == nil {
		return Midnight
	}
	return TimePoint(o.Duration())
}

func (t TimePoint) Duration() time.Duration { return time.Duration(t) }

func (t TimePoint) Before(o TimePoint) bool { return t < o }

func (t TimePoint) After(o TimePoint) bool { return t > o }

func (t TimePoint) Equal(o TimePoint) bool { return t == o }

// Compare returns -1, 0 or +1.
func (t TimePoint) Compare(o TimePoint) int {
	switch {
	case t < o:
		return -1
	case t > o:
		return 1
	default:
		return 0
	}
}

// String renders HH:MM:SS.mmm as used by WebVTT cues.
func (t TimePoint) String() string {
	d := time.Duration(t)
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%s%02d:%02d:%02d.%03d", sign, h, m, s, d/time.Millisecond)
}

func maxTime(a, b TimePoint) TimePoint {
	if a > b {
		return a
	}
	return b
}

func minTime(a, b TimePoint) TimePoint {
	if a < b {
		return a
	}
	return b
}
