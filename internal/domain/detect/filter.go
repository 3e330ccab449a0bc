package detect

import (
	"fmt"

	"github.com/fieldsight/aerolabel/internal/domain/annotations"
	"github.com/fieldsight/aerolabel/internal/domain/industries"
)

// Filter maps raw engine output onto the industry vocabulary. A detection
// survives when its confidence is at or above the threshold (boundary
// inclusive) and its raw class resolves for the industry; its class is
// rewritten to the target name and its source set to auto. Engine ordering is
// preserved and the inputs are never mutated.
func Filter(raw []RawDetection, industry string, threshold float64, classes *industries.ClassMap) ([]annotations.Detection, error) {
	if !classes.Has(industry) {
		return nil, fmt.Errorf("%w: %q", industries.ErrUnknownIndustry, industry)
	}
	out := make([]annotations.Detection, 0, len(raw))
	for _, d := range raw {
		if d.Confidence < threshold {
			continue
		}
		target, ok, err := classes.Resolve(industry, d.Class)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, annotations.Detection{
			Class:      target,
			Confidence: d.Confidence,
			BBox:       d.BBox,
			Source:     annotations.SourceAuto,
		})
	}
	return out, nil
}
