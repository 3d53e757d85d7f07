package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNoResults reports an annotation response without any results.
var ErrNoResults = errors.New("no annotation results")

// document is the union of the shapes Decode accepts: a bare response, a
// finished operation wrapping one, or a single results object.
type document struct {
	AnnotationResults    []VideoAnnotationResults `json:"annotationResults"`
	Response             *AnnotateVideoResponse   `json:"response"`
	ShotLabelAnnotations []LabelAnnotation        `json:"shotLabelAnnotations"`
	ExplicitAnnotation   *ExplicitAnnotation      `json:"explicitAnnotation"`
	ShotAnnotations      []Segment                `json:"shotAnnotations"`
	Error                *Status                  `json:"error"`
}

// Decode parses annotation results as saved from the annotation service.
func Decode(r io.Reader) (AnnotateVideoResponse, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return AnnotateVideoResponse{}, fmt.Errorf("decode annotations: %w", err)
	}
	switch {
	case doc.Error != nil && doc.Error.Code != 0:
		return AnnotateVideoResponse{}, fmt.Errorf("decode annotations: operation failed: %d %s", doc.Error.Code, doc.Error.Message)
	case doc.Response != nil:
		return *doc.Response, nil
	case len(doc.AnnotationResults) > 0:
		return AnnotateVideoResponse{AnnotationResults: doc.AnnotationResults}, nil
	case len(doc.ShotLabelAnnotations) > 0 || doc.ExplicitAnnotation != nil:
		return AnnotateVideoResponse{AnnotationResults: []VideoAnnotationResults{{
			ShotLabelAnnotations: doc.ShotLabelAnnotations,
			ExplicitAnnotation:   doc.ExplicitAnnotation,
			ShotAnnotations:      doc.ShotAnnotations,
		}}}, nil
	default:
		return AnnotateVideoResponse{}, nil
	}
}

// DecodeFile opens and decodes an annotation results file.
func DecodeFile(path string) (AnnotateVideoResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return AnnotateVideoResponse{}, fmt.Errorf("open annotations: %w", err)
	}
	defer file.Close()
	return Decode(file)
}
