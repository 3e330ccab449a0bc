package annotations

// Merge returns the authoritative detection set for a record: manual
// corrections, when present, fully supersede the auto detections. Callers of
// UpdateCorrections always submit the complete corrected set, never a delta,
// so no per-box reconciliation happens here.
func Merge(r *AnnotationRecord) []Detection {
	src := r.Detections
	if len(r.ManualCorrections) > 0 {
		src = r.ManualCorrections
	}
	out := make([]Detection, len(src))
	copy(out, src)
	return out
}
