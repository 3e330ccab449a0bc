package annotations

import (
	"context"
	"time"
)

// Repository port (interface for persistence).
//
// Implementations must serialize writes per image key and make a successful
// write durably visible to subsequent Get calls before returning. Reads must
// never observe a partially written record.
type Repository interface {
	// CreateOrReplaceAuto overwrites the auto detections and industry for an
	// image, creating the record if needed. Existing manual corrections are
	// left untouched; when present they keep the record manually_reviewed.
	CreateOrReplaceAuto(ctx context.Context, image, industry string, detections []Detection, now time.Time) (*AnnotationRecord, error)

	// Get returns the record for an image, or ErrNotFound.
	Get(ctx context.Context, image string) (*AnnotationRecord, error)

	// UpdateCorrections replaces the manual corrections wholesale and marks
	// the record manually_reviewed. Fails with ErrNotFound when the image has
	// never been annotated.
	UpdateCorrections(ctx context.Context, image string, corrections []Detection, now time.Time) (*AnnotationRecord, error)

	// List returns all records, ordered by image identifier.
	List(ctx context.Context) ([]*AnnotationRecord, error)
}
