package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	domain "github.com/fieldsight/aerolabel/internal/domain/annotations"
)

type AnnotationRepository struct {
	db *sql.DB
}

func NewAnnotationRepository(db *sql.DB) *AnnotationRepository {
	return &AnnotationRepository{db: db}
}

// CreateOrReplaceAuto upserts the auto side of a record inside a row-locking
// transaction so a concurrent correction write cannot be lost.
func (r *AnnotationRepository) CreateOrReplaceAuto(ctx context.Context, image, industry string, detections []domain.Detection, now time.Time) (*domain.AnnotationRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var corrJSON string
	err = tx.QueryRowContext(ctx,
		`SELECT manual_corrections FROM annotations WHERE image=? FOR UPDATE;`, image,
	).Scan(&corrJSON)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	rec := &domain.AnnotationRecord{
		Image:             image,
		Timestamp:         now,
		Industry:          industry,
		Detections:        detections,
		ManualCorrections: []domain.Detection{},
		Status:            domain.StatusAutoAnnotated,
	}
	if corrJSON != "" {
		corrections, derr := decodeDetections(corrJSON)
		if derr != nil {
			return nil, fmt.Errorf("record %s: %w", image, derr)
		}
		if len(corrections) > 0 {
			rec.ManualCorrections = corrections
			rec.Status = domain.StatusManuallyReviewed
		}
	}

	detsJSON, err := encodeDetections(rec.Detections)
	if err != nil {
		return nil, err
	}
	newCorrJSON, err := encodeDetections(rec.ManualCorrections)
	if err != nil {
		return nil, err
	}

	const q = `
INSERT INTO annotations (image, ts, industry, detections, manual_corrections, status)
VALUES (?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 ts=VALUES(ts),
 industry=VALUES(industry),
 detections=VALUES(detections),
 status=VALUES(status);`
	if _, err := tx.ExecContext(ctx, q,
		rec.Image, rec.Timestamp, rec.Industry, detsJSON, newCorrJSON, rec.Status,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get by image identifier.
func (r *AnnotationRepository) Get(ctx context.Context, image string) (*domain.AnnotationRecord, error) {
	const q = `
SELECT image, ts, industry, detections, manual_corrections, status
FROM annotations
WHERE image=? LIMIT 1;`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, image))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, image)
	}
	return rec, err
}

// UpdateCorrections replaces the manual corrections wholesale under a row
// lock; fails with ErrNotFound when the image was never annotated.
func (r *AnnotationRepository) UpdateCorrections(ctx context.Context, image string, corrections []domain.Detection, now time.Time) (*domain.AnnotationRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	const sel = `
SELECT image, ts, industry, detections, manual_corrections, status
FROM annotations
WHERE image=? FOR UPDATE;`
	rec, err := scanRecord(tx.QueryRowContext(ctx, sel, image))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, image)
	}
	if err != nil {
		return nil, err
	}

	rec.ManualCorrections = corrections
	rec.Status = domain.StatusManuallyReviewed
	rec.Timestamp = now

	corrJSON, err := encodeDetections(corrections)
	if err != nil {
		return nil, err
	}
	const upd = `
UPDATE annotations
SET ts = ?,
    manual_corrections = ?,
    status = ?
WHERE image = ?;`
	if _, err := tx.ExecContext(ctx, upd, rec.Timestamp, corrJSON, rec.Status, image); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

// List all records ordered by image identifier.
func (r *AnnotationRepository) List(ctx context.Context) ([]*domain.AnnotationRecord, error) {
	const q = `
SELECT image, ts, industry, detections, manual_corrections, status
FROM annotations
ORDER BY image;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AnnotationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.AnnotationRecord, error) {
	var rec domain.AnnotationRecord
	var detsJSON, corrJSON string
	if err := row.Scan(&rec.Image, &rec.Timestamp, &rec.Industry, &detsJSON, &corrJSON, &rec.Status); err != nil {
		return nil, err
	}
	var err error
	if rec.Detections, err = decodeDetections(detsJSON); err != nil {
		return nil, fmt.Errorf("record %s: %w", rec.Image, err)
	}
	if rec.ManualCorrections, err = decodeDetections(corrJSON); err != nil {
		return nil, fmt.Errorf("record %s: %w", rec.Image, err)
	}
	return &rec, nil
}

func encodeDetections(dets []domain.Detection) (string, error) {
	if dets == nil {
		dets = []domain.Detection{}
	}
	b, err := json.Marshal(dets)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeDetections(s string) ([]domain.Detection, error) {
	if s == "" {
		return []domain.Detection{}, nil
	}
	var dets []domain.Detection
	if err := json.Unmarshal([]byte(s), &dets); err != nil {
		return nil, fmt.Errorf("decoding detections: %w", err)
	}
	return dets, nil
}
