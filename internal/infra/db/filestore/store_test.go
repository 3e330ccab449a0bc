package filestore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/fieldsight/aerolabel/internal/domain/annotations"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func autoDet(class string, conf float64) domain.Detection {
	return domain.Detection{Class: class, Confidence: conf, BBox: domain.BBox{X1: 0, Y1: 0, X2: 10, Y2: 10}, Source: domain.SourceAuto}
}

func manualDet(class string) domain.Detection {
	return domain.Detection{Class: class, Confidence: 1, BBox: domain.BBox{X1: 1, Y1: 1, X2: 5, Y2: 5}, Source: domain.SourceManual}
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	require.NoError(t, err)

	// 1. first auto pass creates the record
	rec, err := store.CreateOrReplaceAuto(ctx, "dji_0001.jpg", "agriculture", []domain.Detection{autoDet("vine", 0.87)}, t0)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAutoAnnotated, rec.Status)
	require.Equal(t, "agriculture", rec.Industry)
	require.Len(t, rec.Detections, 1)

	// 2. durably visible to a subsequent Get
	got, err := store.Get(ctx, "dji_0001.jpg")
	require.NoError(t, err)
	require.Equal(t, rec, got)

	// 3. corrections replace wholesale and flip status
	upd, err := store.UpdateCorrections(ctx, "dji_0001.jpg", []domain.Detection{manualDet("tree")}, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, domain.StatusManuallyReviewed, upd.Status)
	require.Equal(t, []domain.Detection{manualDet("tree")}, upd.ManualCorrections)
	require.Equal(t, t0.Add(time.Hour), upd.Timestamp)

	// 4. a repeated auto pass keeps the manual work and the reviewed status
	again, err := store.CreateOrReplaceAuto(ctx, "dji_0001.jpg", "rescue", []domain.Detection{autoDet("person", 0.6)}, t0.Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, domain.StatusManuallyReviewed, again.Status)
	require.Equal(t, "rescue", again.Industry)
	require.Equal(t, []domain.Detection{manualDet("tree")}, again.ManualCorrections)
	require.Equal(t, []domain.Detection{autoDet("person", 0.6)}, again.Detections)
}

func TestStore_GetNotFound(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "missing.jpg")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_CorrectionsBeforeAutoFails(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.UpdateCorrections(context.Background(), "missing.jpg", []domain.Detection{manualDet("tree")}, t0)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_DurableAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := New(dir)
	require.NoError(t, err)
	_, err = store.CreateOrReplaceAuto(ctx, "a.jpg", "general", []domain.Detection{autoDet("car", 0.9)}, t0)
	require.NoError(t, err)

	reopened, err := New(dir)
	require.NoError(t, err)
	rec, err := reopened.Get(ctx, "a.jpg")
	require.NoError(t, err)
	require.Equal(t, "car", rec.Detections[0].Class)
}

func TestStore_ListOrderedByImage(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	require.NoError(t, err)

	for _, img := range []string{"c.jpg", "a.jpg", "b.jpg"} {
		_, err := store.CreateOrReplaceAuto(ctx, img, "general", nil, t0)
		require.NoError(t, err)
	}

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "a.jpg", records[0].Image)
	require.Equal(t, "b.jpg", records[1].Image)
	require.Equal(t, "c.jpg", records[2].Image)
}

func TestStore_EscapesImageIdentifiers(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	require.NoError(t, err)

	const image = "flight 7/dji_0001 (copy).jpg"
	_, err = store.CreateOrReplaceAuto(ctx, image, "general", []domain.Detection{autoDet("car", 0.9)}, t0)
	require.NoError(t, err)

	rec, err := store.Get(ctx, image)
	require.NoError(t, err)
	require.Equal(t, image, rec.Image)
}

func TestStore_ConcurrentSameImageWrites(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.CreateOrReplaceAuto(ctx, "a.jpg", "general", []domain.Detection{autoDet("car", 0.9)}, t0)
	require.NoError(t, err)
	_, err = store.UpdateCorrections(ctx, "a.jpg", []domain.Detection{manualDet("tree")}, t0)
	require.NoError(t, err)

	// hammer the same key from both write paths; the per-key lock must keep
	// every intermediate state fully formed and the manual work intact
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.CreateOrReplaceAuto(ctx, "a.jpg", "general", []domain.Detection{autoDet("car", 0.5)}, t0)
			require.NoError(t, err)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := store.Get(ctx, "a.jpg")
			require.NoError(t, err)
			require.Equal(t, domain.StatusManuallyReviewed, rec.Status)
		}()
	}
	wg.Wait()

	rec, err := store.Get(ctx, "a.jpg")
	require.NoError(t, err)
	require.Equal(t, []domain.Detection{manualDet("tree")}, rec.ManualCorrections)
	require.Equal(t, domain.StatusManuallyReviewed, rec.Status)
}

func TestStore_ManyImages(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			img := fmt.Sprintf("img-%03d.jpg", i)
			_, err := store.CreateOrReplaceAuto(ctx, img, "general", []domain.Detection{autoDet("car", 0.9)}, t0)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 16)
}
