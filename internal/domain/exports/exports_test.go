package exports

import (
	"strconv"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/fieldsight/aerolabel/internal/domain/annotations"
)

func record(image string, dets ...annotations.Detection) *annotations.AnnotationRecord {
	return &annotations.AnnotationRecord{
		Image:      image,
		Industry:   "agriculture",
		Detections: dets,
		Status:     annotations.StatusAutoAnnotated,
	}
}

func det(class string, x1, y1, x2, y2 float64) annotations.Detection {
	return annotations.Detection{
		Class:      class,
		Confidence: 0.87,
		BBox:       annotations.BBox{X1: x1, Y1: y1, X2: x2, Y2: y2},
		Source:     annotations.SourceAuto,
	}
}

func TestBuildCOCO_Scenario(t *testing.T) {
	items := []Item{{
		Record: record("field.jpg", det("vine", 100, 150, 300, 330)),
		Width:  800,
		Height: 600,
	}}

	ds, err := BuildCOCO(items)
	require.NoError(t, err)

	require.Equal(t, []COCOImage{{ID: 1, FileName: "field.jpg", Width: 800, Height: 600}}, ds.Images)
	require.Len(t, ds.Annotations, 1)
	require.Equal(t, [4]float64{100, 150, 200, 180}, ds.Annotations[0].BBox)
	require.Equal(t, float64(36000), ds.Annotations[0].Area)
	require.Equal(t, 0, ds.Annotations[0].IsCrowd)
	require.Equal(t, []COCOCategory{{ID: 0, Name: "vine"}}, ds.Categories)
}

func TestBuildCOCO_SequentialIDsAndFirstSeenCategories(t *testing.T) {
	items := []Item{
		{Record: record("a.jpg", det("vine", 0, 0, 10, 10), det("tree", 5, 5, 20, 20)), Width: 100, Height: 100},
		{Record: record("b.jpg", det("tree", 0, 0, 10, 10), det("animal", 1, 1, 2, 2)), Width: 100, Height: 100},
	}

	ds, err := BuildCOCO(items)
	require.NoError(t, err)

	require.Equal(t, 1, ds.Images[0].ID)
	require.Equal(t, 2, ds.Images[1].ID)
	ids := []int{}
	for _, a := range ds.Annotations {
		ids = append(ids, a.ID)
	}
	require.Equal(t, []int{1, 2, 3, 4}, ids)
	require.Equal(t, []COCOCategory{
		{ID: 0, Name: "vine"},
		{ID: 1, Name: "tree"},
		{ID: 2, Name: "animal"},
	}, ds.Categories)
}

func TestBuildCOCO_ManualCorrectionsWin(t *testing.T) {
	rec := record("a.jpg", det("vine", 0, 0, 10, 10))
	rec.ManualCorrections = []annotations.Detection{det("tree", 2, 2, 4, 4)}
	rec.Status = annotations.StatusManuallyReviewed

	ds, err := BuildCOCO([]Item{{Record: rec, Width: 100, Height: 100}})
	require.NoError(t, err)
	require.Len(t, ds.Annotations, 1)
	require.Equal(t, []COCOCategory{{ID: 0, Name: "tree"}}, ds.Categories)
}

func TestBuildCOCO_MissingDimensions(t *testing.T) {
	_, err := BuildCOCO([]Item{{Record: record("a.jpg"), Width: 0, Height: 600}})
	require.ErrorIs(t, err, ErrMissingDimensions)
}

func TestBuildYOLO_RoundTrip(t *testing.T) {
	const w, h = 800, 600
	box := annotations.BBox{X1: 100, Y1: 150, X2: 300, Y2: 330}
	items := []Item{{Record: record("field.jpg", det("vine", box.X1, box.Y1, box.X2, box.Y2)), Width: w, Height: h}}

	lines, err := BuildYOLO(items)
	require.NoError(t, err)
	require.Len(t, lines["field.jpg"], 1)

	fields := strings.Fields(lines["field.jpg"][0])
	require.Len(t, fields, 5)
	require.Equal(t, "0", fields[0])

	xc := parse(t, fields[1]) * w
	yc := parse(t, fields[2]) * h
	bw := parse(t, fields[3]) * w
	bh := parse(t, fields[4]) * h

	// invert the normalization back to pixel corners
	require.InDelta(t, box.X1, xc-bw/2, 0.01)
	require.InDelta(t, box.Y1, yc-bh/2, 0.01)
	require.InDelta(t, box.X2, xc+bw/2, 0.01)
	require.InDelta(t, box.Y2, yc+bh/2, 0.01)
}

func TestBuildYOLO_SharesCategoryOrderWithCOCO(t *testing.T) {
	items := []Item{
		{Record: record("a.jpg", det("vine", 0, 0, 10, 10), det("tree", 5, 5, 20, 20)), Width: 100, Height: 100},
		{Record: record("b.jpg", det("animal", 0, 0, 10, 10)), Width: 100, Height: 100},
	}

	ds, err := BuildCOCO(items)
	require.NoError(t, err)
	lines, err := BuildYOLO(items)
	require.NoError(t, err)

	require.Equal(t, "0", strings.Fields(lines["a.jpg"][0])[0])
	require.Equal(t, "1", strings.Fields(lines["a.jpg"][1])[0])
	require.Equal(t, "2", strings.Fields(lines["b.jpg"][0])[0])
	require.Equal(t, []string{"vine", "tree", "animal"}, ClassNames(items))
	require.Len(t, ds.Categories, 3)
}

func TestBuildYOLO_MissingDimensions(t *testing.T) {
	_, err := BuildYOLO([]Item{{Record: record("a.jpg"), Width: 800, Height: 0}})
	require.ErrorIs(t, err, ErrMissingDimensions)
}

func TestExport_Idempotent(t *testing.T) {
	items := []Item{
		{Record: record("a.jpg", det("vine", 0, 0, 10, 10)), Width: 100, Height: 100},
		{Record: record("b.jpg", det("tree", 1, 1, 9, 9)), Width: 200, Height: 200},
	}

	first, err := BuildCOCO(items)
	require.NoError(t, err)
	second, err := BuildCOCO(items)
	require.NoError(t, err)

	b1, err := json.Marshal(first)
	require.NoError(t, err)
	b2, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, b1, b2)
}

func parse(t *testing.T, s string) float64 {
	t.Helper()
	v, err := strconv.ParseFloat(s, 64)
	require.NoError(t, err)
	return v
}
