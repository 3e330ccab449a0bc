package exports

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	annot "github.com/fieldsight/aerolabel/internal/domain/annotations"
	domain "github.com/fieldsight/aerolabel/internal/domain/exports"
)

// ArtifactStore port (interface for export artifact storage).
type ArtifactStore interface {
	UploadBytes(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Service implements the dataset-export use-case. Read-only with respect to
// annotation records; each record is captured at whatever committed state the
// repository returns.
type Service struct {
	Repo      annot.Repository
	Artifacts ArtifactStore // optional; nil disables uploads
	Log       *zap.Logger
}

// Dimensions are the pixel width/height the caller supplies per image.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Command to export a dataset.
type ExportCommand struct {
	// ImageIDs selects records to export; empty means all.
	ImageIDs   []string
	Format     domain.Format
	Dimensions map[string]Dimensions
	// Upload pushes the artifact to the ArtifactStore when one is wired.
	Upload bool
}

type ExportResult struct {
	Format      domain.Format       `json:"format"`
	COCO        *domain.COCODataset `json:"coco,omitempty"`
	YOLO        map[string][]string `json:"yolo,omitempty"`
	Classes     []string            `json:"classes,omitempty"`
	ImageCount  int                 `json:"image_count"`
	ArtifactURL string              `json:"artifact_url,omitempty"`
}

// Export rebuilds the artifact from the current records on every call; it is
// idempotent for a fixed record set.
func (s *Service) Export(ctx context.Context, cmd ExportCommand) (ExportResult, error) {
	records, err := s.collect(ctx, cmd.ImageIDs)
	if err != nil {
		return ExportResult{}, err
	}

	items := make([]domain.Item, 0, len(records))
	for _, rec := range records {
		dims, ok := cmd.Dimensions[rec.Image]
		if !ok {
			return ExportResult{}, fmt.Errorf("%w: %s", domain.ErrMissingDimensions, rec.Image)
		}
		items = append(items, domain.Item{Record: rec, Width: dims.Width, Height: dims.Height})
	}

	res := ExportResult{Format: cmd.Format, ImageCount: len(items)}
	switch cmd.Format {
	case domain.FormatCOCO:
		ds, err := domain.BuildCOCO(items)
		if err != nil {
			return ExportResult{}, err
		}
		res.COCO = ds
	case domain.FormatYOLO:
		lines, err := domain.BuildYOLO(items)
		if err != nil {
			return ExportResult{}, err
		}
		res.YOLO = lines
		res.Classes = domain.ClassNames(items)
	default:
		return ExportResult{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, cmd.Format)
	}

	if cmd.Upload && s.Artifacts != nil {
		url, err := s.upload(ctx, res)
		if err != nil {
			return ExportResult{}, err
		}
		res.ArtifactURL = url
	}

	s.log().Info("dataset exported",
		zap.String("format", string(cmd.Format)),
		zap.Int("images", res.ImageCount),
		zap.String("artifact_url", res.ArtifactURL))
	return res, nil
}

func (s *Service) collect(ctx context.Context, imageIDs []string) ([]*annot.AnnotationRecord, error) {
	if len(imageIDs) == 0 {
		return s.Repo.List(ctx)
	}
	records := make([]*annot.AnnotationRecord, 0, len(imageIDs))
	for _, id := range imageIDs {
		rec, err := s.Repo.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("image %q: %w", id, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Service) upload(ctx context.Context, res ExportResult) (string, error) {
	var payload any = res.COCO
	if res.Format == domain.FormatYOLO {
		payload = map[string]any{"classes": res.Classes, "labels": res.YOLO}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("exports/%s-%s.json", res.Format, uuid.New().String())
	return s.Artifacts.UploadBytes(ctx, key, data, "application/json")
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
