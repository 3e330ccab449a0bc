package exports

import (
	"fmt"

	"github.com/fieldsight/aerolabel/internal/domain/annotations"
)

// BuildYOLO converts the authoritative detections of a batch of records into
// YOLO label lines, keyed by image identifier. Each line is
// "classID x_center y_center width height" with the geometry normalized by
// the image dimensions to [0,1]. Class ids use the same first-seen ordering
// as BuildCOCO's category ids for the same input.
func BuildYOLO(items []Item) (map[string][]string, error) {
	out := make(map[string][]string, len(items))
	cats := newCategoryTable()
	for _, it := range items {
		if it.Width <= 0 || it.Height <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingDimensions, it.Record.Image)
		}
		w := float64(it.Width)
		h := float64(it.Height)
		lines := []string{}
		for _, d := range annotations.Merge(it.Record) {
			lines = append(lines, fmt.Sprintf("%d %.6f %.6f %.6f %.6f",
				cats.id(d.Class),
				(d.BBox.X1+d.BBox.X2)/(2*w),
				(d.BBox.Y1+d.BBox.Y2)/(2*h),
				d.BBox.Width()/w,
				d.BBox.Height()/h,
			))
		}
		out[it.Record.Image] = lines
	}
	return out, nil
}

// ClassNames returns the first-seen class ordering for a batch, id -> name.
// Useful for emitting the classes/obj.names companion file alongside YOLO
// labels.
func ClassNames(items []Item) []string {
	cats := newCategoryTable()
	for _, it := range items {
		for _, d := range annotations.Merge(it.Record) {
			cats.id(d.Class)
		}
	}
	return cats.names
}
