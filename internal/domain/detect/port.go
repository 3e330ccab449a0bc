package detect

import (
	"context"
	"errors"

	"github.com/fieldsight/aerolabel/internal/domain/annotations"
)

// RawDetection is the inference engine's native output, before any industry
// filtering. Class is in the model's raw vocabulary.
type RawDetection struct {
	Class      string           `json:"class"`
	Confidence float64          `json:"confidence"`
	BBox       annotations.BBox `json:"bbox"`
}

// Engine port (interface for the external object-detection collaborator).
// Implementations must be deterministic given identical weights and inputs
// and wrap failures in ErrInference.
type Engine interface {
	Detect(ctx context.Context, image []byte, threshold float64) ([]RawDetection, error)
}

// ErrInference indicates the external engine failed (model not loaded,
// corrupt image, unsupported format). Propagated per image, never masked.
var ErrInference = errors.New("inference failed")
