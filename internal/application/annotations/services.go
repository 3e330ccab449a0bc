package annotations

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fieldsight/aerolabel/internal/application"
	domain "github.com/fieldsight/aerolabel/internal/domain/annotations"
	"github.com/fieldsight/aerolabel/internal/domain/detect"
	"github.com/fieldsight/aerolabel/internal/domain/industries"
)

const defaultWorkers = 4

// Service implements the annotation use-cases.
// Service is designed to be used concurrently and is thread-safe.
type Service struct {
	Repo    domain.Repository
	Engine  detect.Engine
	Classes *industries.ClassMap
	Clock   application.Clock
	Log     *zap.Logger
	// Workers bounds the number of in-flight inference calls per batch.
	Workers int
}

//
// ==== USE CASES ====
//

// ImageInput is one already-decoded image in a batch; multipart parsing
// belongs to the transport layer.
type ImageInput struct {
	Name string
	Data []byte
}

// Command to annotate a batch of images.
type BatchAnnotateCommand struct {
	Images     []ImageInput
	Industry   string
	Confidence float64
}

// ImageResult reports the outcome for a single image within a batch. Error is
// set when that image's inference or persistence failed; sibling images are
// unaffected.
type ImageResult struct {
	Image      string             `json:"image"`
	Status     domain.Status      `json:"status,omitempty"`
	Detections []domain.Detection `json:"detections,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type BatchResult struct {
	BatchID string        `json:"batch_id"`
	Results []ImageResult `json:"results"`
}

// BatchAnnotate runs detect → filter → persist for every image on a bounded
// worker pool. Results preserve the caller's input order. An unknown industry
// fails the whole batch before any inference is dispatched; a single image's
// failure is reported on its own entry only. Cancelling ctx stops images not
// yet dispatched; in-flight ones finish, and store writes stay atomic either
// way.
func (s *Service) BatchAnnotate(ctx context.Context, cmd BatchAnnotateCommand) (BatchResult, error) {
	if !s.Classes.Has(cmd.Industry) {
		return BatchResult{}, fmt.Errorf("%w: %q", industries.ErrUnknownIndustry, cmd.Industry)
	}

	batchID := uuid.New().String()
	results := make([]ImageResult, len(cmd.Images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for i, img := range cmd.Images {
		i, img := i, img
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = ImageResult{Image: img.Name, Error: err.Error()}
				return nil
			}
			results[i] = s.annotateOne(gctx, img, cmd.Industry, cmd.Confidence)
			return nil
		})
	}
	// per-image errors are reported inline, never as a group error
	_ = g.Wait()

	s.log().Info("batch annotated",
		zap.String("batch_id", batchID),
		zap.String("industry", cmd.Industry),
		zap.Float64("confidence", cmd.Confidence),
		zap.Int("images", len(cmd.Images)))

	return BatchResult{BatchID: batchID, Results: results}, nil
}

func (s *Service) annotateOne(ctx context.Context, img ImageInput, industry string, confidence float64) ImageResult {
	raw, err := s.Engine.Detect(ctx, img.Data, confidence)
	if err != nil {
		s.log().Warn("inference failed", zap.String("image", img.Name), zap.Error(err))
		return ImageResult{Image: img.Name, Error: err.Error()}
	}
	dets, err := detect.Filter(raw, industry, confidence, s.Classes)
	if err != nil {
		return ImageResult{Image: img.Name, Error: err.Error()}
	}
	rec, err := s.Repo.CreateOrReplaceAuto(ctx, img.Name, industry, dets, s.Clock.Now())
	if err != nil {
		s.log().Error("persist failed", zap.String("image", img.Name), zap.Error(err))
		return ImageResult{Image: img.Name, Error: err.Error()}
	}
	return ImageResult{Image: img.Name, Status: rec.Status, Detections: domain.Merge(rec)}
}

// Get returns the annotation record for one image.
func (s *Service) Get(ctx context.Context, image string) (*domain.AnnotationRecord, error) {
	return s.Repo.Get(ctx, image)
}

// UpdateCorrections replaces the manual corrections for an image wholesale.
// The caller supplies the full corrected set, not a delta; an incremental
// submission would silently lose boxes, so the contract is replace-only.
func (s *Service) UpdateCorrections(ctx context.Context, image string, corrections []domain.Detection) (*domain.AnnotationRecord, error) {
	fixed := make([]domain.Detection, len(corrections))
	copy(fixed, corrections)
	for i := range fixed {
		fixed[i].Source = domain.SourceManual
		if err := fixed[i].Validate(); err != nil {
			return nil, fmt.Errorf("correction %d: %w", i, err)
		}
	}
	rec, err := s.Repo.UpdateCorrections(ctx, image, fixed, s.Clock.Now())
	if err != nil {
		return nil, err
	}
	s.log().Info("corrections updated",
		zap.String("image", image),
		zap.Int("corrections", len(fixed)))
	return rec, nil
}

func (s *Service) workers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return defaultWorkers
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
