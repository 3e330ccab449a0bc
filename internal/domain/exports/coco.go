package exports

import (
	"fmt"

	"github.com/fieldsight/aerolabel/internal/domain/annotations"
)

// COCOImage is one entry of the COCO "images" array.
type COCOImage struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// COCOAnnotation is one entry of the COCO "annotations" array. BBox is
// [x, y, width, height] in pixels.
type COCOAnnotation struct {
	ID         int        `json:"id"`
	ImageID    int        `json:"image_id"`
	CategoryID int        `json:"category_id"`
	BBox       [4]float64 `json:"bbox"`
	Area       float64    `json:"area"`
	IsCrowd    int        `json:"iscrowd"`
}

// COCOCategory is one entry of the COCO "categories" array.
type COCOCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// COCODataset is the aggregate COCO export artifact.
type COCODataset struct {
	Images      []COCOImage      `json:"images"`
	Annotations []COCOAnnotation `json:"annotations"`
	Categories  []COCOCategory   `json:"categories"`
}

// BuildCOCO converts the authoritative detections of a batch of records into
// a COCO dataset. Image and annotation ids are sequential from 1, category
// ids first-seen from 0. Deterministic for a fixed input.
func BuildCOCO(items []Item) (*COCODataset, error) {
	ds := &COCODataset{
		Images:      make([]COCOImage, 0, len(items)),
		Annotations: []COCOAnnotation{},
		Categories:  []COCOCategory{},
	}
	cats := newCategoryTable()
	annID := 1
	for i, it := range items {
		if it.Width <= 0 || it.Height <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingDimensions, it.Record.Image)
		}
		imgID := i + 1
		ds.Images = append(ds.Images, COCOImage{
			ID:       imgID,
			FileName: it.Record.Image,
			Width:    it.Width,
			Height:   it.Height,
		})
		for _, d := range annotations.Merge(it.Record) {
			w, h := d.BBox.Width(), d.BBox.Height()
			ds.Annotations = append(ds.Annotations, COCOAnnotation{
				ID:         annID,
				ImageID:    imgID,
				CategoryID: cats.id(d.Class),
				BBox:       [4]float64{d.BBox.X1, d.BBox.Y1, w, h},
				Area:       w * h,
				IsCrowd:    0,
			})
			annID++
		}
	}
	for id, name := range cats.names {
		ds.Categories = append(ds.Categories, COCOCategory{ID: id, Name: name})
	}
	return ds, nil
}
