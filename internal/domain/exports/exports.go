package exports

import (
	"errors"

	"github.com/fieldsight/aerolabel/internal/domain/annotations"
)

// Format enum for dataset exports.
type Format string

const (
	FormatCOCO Format = "coco"
	FormatYOLO Format = "yolo"
)

// ErrMissingDimensions indicates an image's pixel width/height were not
// supplied; neither COCO metadata nor YOLO normalization is possible without
// them.
var ErrMissingDimensions = errors.New("image dimensions missing")

// ErrUnsupportedFormat indicates a format outside {coco, yolo}.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Item pairs a record with its pixel dimensions. The core holds no
// image-decoding responsibility, so dimensions come from the caller.
type Item struct {
	Record *annotations.AnnotationRecord
	Width  int
	Height int
}

// categoryTable assigns class ids in first-seen order, shared by the COCO and
// YOLO builders within one export call.
type categoryTable struct {
	ids   map[string]int
	names []string
}

func newCategoryTable() *categoryTable {
	return &categoryTable{ids: make(map[string]int)}
}

func (t *categoryTable) id(name string) int {
	if id, ok := t.ids[name]; ok {
		return id
	}
	id := len(t.names)
	t.ids[name] = id
	t.names = append(t.names, name)
	return id
}
