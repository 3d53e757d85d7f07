package track

import (
	"encoding/json"
	"fmt"
	"strings"

	"scenetrack/internal/scene"
)

// Format selects the rendering of a text track.
type Format string

const (
	FormatText Format = "text"
	FormatVTT  Format = "vtt"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case FormatText, FormatVTT, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown track format %q (want text, vtt or json)", value)
	}
}

// vttHeader opens every stored track resource.
const vttHeader = "WEBVTT\n\n"

// entitySeparator joins entity descriptions within a cue.
const entitySeparator = " - "

// cue renders one "<start> --> <end>\n<payload>\n\n" block.
func cue(s *scene.Scene, payload string) string {
	return fmt.Sprintf("%s --> %s\n%s\n\n", s.Start(), s.End(), payload)
}

// FormatLine renders a scene as a cue listing every entity description.
func FormatLine(s *scene.Scene, includeCategories bool) string {
	entities := s.Entities()
	parts := make([]string, len(entities))
	for i, e := range entities {
		parts[i] = e.Description(includeCategories)
	}
	return cue(s, strings.Join(parts, entitySeparator))
}

// Render joins the cue of every scene with a newline.
func Render(scenes []*scene.Scene, includeCategories bool) string {
	lines := make([]string, len(scenes))
	for i, s := range scenes {
		lines[i] = FormatLine(s, includeCategories)
	}
	return strings.Join(lines, "\n")
}

// RenderVTT is Render with the WebVTT header.
func RenderVTT(scenes []*scene.Scene, includeCategories bool) string {
	return vttHeader + Render(scenes, includeCategories)
}

type jsonEntity struct {
	Label      string   `json:"label"`
	Confidence float32  `json:"confidence"`
	Categories []string `json:"categories,omitempty"`
}

type jsonScene struct {
	Start      string       `json:"start"`
	End        string       `json:"end"`
	StartMS    int64        `json:"start_ms"`
	EndMS      int64        `json:"end_ms"`
	Likelihood string       `json:"likelihood"`
	Entities   []jsonEntity `json:"entities"`
}

// RenderJSON encodes scenes as an indented JSON array.
func RenderJSON(scenes []*scene.Scene) ([]byte, error) {
	out := make([]jsonScene, 0, len(scenes))
	for _, s := range scenes {
		js := jsonScene{
			Start:      s.Start().String(),
			End:        s.End().String(),
			StartMS:    s.Start().Duration().Milliseconds(),
			EndMS:      s.End().Duration().Milliseconds(),
			Likelihood: s.Likelihood().String(),
		}
		for _, e := range s.Entities() {
			je := jsonEntity{Label: e.Label(), Confidence: e.Confidence()}
			for _, c := range e.Categories() {
				je.Categories = append(je.Categories, c.Description)
			}
			js.Entities = append(js.Entities, je)
		}
		out = append(out, js)
	}
	return json.MarshalIndent(out, "", "  ")
}
