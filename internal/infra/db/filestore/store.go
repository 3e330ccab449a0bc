package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	domain "github.com/fieldsight/aerolabel/internal/domain/annotations"
)

const recordExt = ".json"

// Store persists one JSON document per image under root. Writes for the same
// image go through a per-key mutex and land via temp-file rename, so a Get
// never observes a partially written record and concurrent auto/correction
// writes cannot lose updates.
type Store struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates (if needed) the root directory and returns a Store.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating annotation dir: %w", err)
	}
	return &Store{root: root, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *Store) keyLock(image string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[image]
	if !ok {
		l = &sync.Mutex{}
		s.locks[image] = l
	}
	return l
}

func (s *Store) path(image string) string {
	// PathEscape keeps arbitrary image identifiers to a single file name
	return filepath.Join(s.root, url.PathEscape(image)+recordExt)
}

// CreateOrReplaceAuto implements domain.Repository.
func (s *Store) CreateOrReplaceAuto(ctx context.Context, image, industry string, detections []domain.Detection, now time.Time) (*domain.AnnotationRecord, error) {
	l := s.keyLock(image)
	l.Lock()
	defer l.Unlock()

	existing, err := s.read(image)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
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
	// a repeated auto pass never regresses manual work
	if existing != nil && len(existing.ManualCorrections) > 0 {
		rec.ManualCorrections = existing.ManualCorrections
		rec.Status = domain.StatusManuallyReviewed
	}
	if err := s.write(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get implements domain.Repository.
func (s *Store) Get(ctx context.Context, image string) (*domain.AnnotationRecord, error) {
	return s.read(image)
}

// UpdateCorrections implements domain.Repository.
func (s *Store) UpdateCorrections(ctx context.Context, image string, corrections []domain.Detection, now time.Time) (*domain.AnnotationRecord, error) {
	l := s.keyLock(image)
	l.Lock()
	defer l.Unlock()

	rec, err := s.read(image)
	if err != nil {
		return nil, err
	}
	rec.ManualCorrections = corrections
	rec.Status = domain.StatusManuallyReviewed
	rec.Timestamp = now
	if err := s.write(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// List implements domain.Repository; records come back ordered by image id.
func (s *Store) List(ctx context.Context) ([]*domain.AnnotationRecord, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var out []*domain.AnnotationRecord
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), recordExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, e.Name()))
		if err != nil {
			return nil, err
		}
		var rec domain.AnnotationRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", e.Name(), err)
		}
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Image < out[j].Image })
	return out, nil
}

func (s *Store) read(image string) (*domain.AnnotationRecord, error) {
	data, err := os.ReadFile(s.path(image))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, image)
		}
		return nil, err
	}
	var rec domain.AnnotationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding record for %s: %w", image, err)
	}
	return &rec, nil
}

func (s *Store) write(rec *domain.AnnotationRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	// fsync before rename so the write is durable once this returns
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path(rec.Image))
}
