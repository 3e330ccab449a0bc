package annotations

import (
	"fmt"
	"time"
)

// Source enum: who produced a detection.
type Source string

const (
	SourceAuto   Source = "auto"
	SourceManual Source = "manual"
)

// Status enum for the annotation lifecycle.
type Status string

const (
	StatusPending          Status = "pending"
	StatusAutoAnnotated    Status = "auto_annotated"
	StatusManuallyReviewed Status = "manually_reviewed"
)

// BBox is an axis-aligned rectangle in pixel coordinates, x1<x2 and y1<y2.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func (b BBox) Width() float64  { return b.X2 - b.X1 }
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Validate checks the rectangle is well formed.
func (b BBox) Validate() error {
	if b.X1 < 0 || b.Y1 < 0 {
		return fmt.Errorf("bbox origin must be non-negative, got (%g,%g)", b.X1, b.Y1)
	}
	if b.X2 <= b.X1 || b.Y2 <= b.Y1 {
		return fmt.Errorf("bbox must have positive extent, got (%g,%g,%g,%g)", b.X1, b.Y1, b.X2, b.Y2)
	}
	return nil
}

// Detection is one recognized object instance inside an image.
type Detection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
	Source     Source  `json:"source"`
}

func (d Detection) Validate() error {
	if d.Class == "" {
		return fmt.Errorf("detection class must not be empty")
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("detection confidence must be in [0,1], got %g", d.Confidence)
	}
	return d.BBox.Validate()
}

// Aggregate root: AnnotationRecord, the unit of persistence, keyed by image
// identifier (file name, unique within a dataset run).
type AnnotationRecord struct {
	Image             string      `json:"image"`
	Timestamp         time.Time   `json:"timestamp"`
	Industry          string      `json:"industry,omitempty"`
	Detections        []Detection `json:"detections"`
	ManualCorrections []Detection `json:"manual_corrections"`
	Status            Status      `json:"status"`
}
