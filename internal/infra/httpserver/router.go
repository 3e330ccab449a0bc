package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	appann "github.com/fieldsight/aerolabel/internal/application/annotations"
	appexp "github.com/fieldsight/aerolabel/internal/application/exports"
	annot "github.com/fieldsight/aerolabel/internal/domain/annotations"
	"github.com/fieldsight/aerolabel/internal/domain/detect"
	domexp "github.com/fieldsight/aerolabel/internal/domain/exports"
	"github.com/fieldsight/aerolabel/internal/domain/industries"
	"github.com/fieldsight/aerolabel/internal/middleware"
)

// Router is a thin transport adapter; all annotation semantics live in the
// application services.
type Router struct {
	annSvc *appann.Service
	expSvc *appexp.Service
}

func NewRouter(annSvc *appann.Service, expSvc *appexp.Service, log *zap.Logger, health http.HandlerFunc) http.Handler {
	r := &Router{annSvc: annSvc, expSvc: expSvc}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	mux.Use(middleware.Logging(log))

	if health == nil {
		health = func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("ok"))
		}
	}
	mux.Get("/health", health)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/annotations/batch", r.wrap(r.handleBatchAnnotate))
		rt.Get("/annotations/{image}", r.wrap(r.handleGet))
		rt.Put("/annotations/{image}/corrections", r.wrap(r.handleCorrections))
		rt.Post("/exports", r.wrap(r.handleExport))
		rt.Get("/industries", r.wrap(r.handleIndustries))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			switch {
			case errors.Is(err, annot.ErrNotFound):
				http.Error(w, err.Error(), http.StatusNotFound)
			case errors.Is(err, industries.ErrUnknownIndustry),
				errors.Is(err, domexp.ErrUnsupportedFormat):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, domexp.ErrMissingDimensions):
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			case errors.Is(err, detect.ErrInference):
				http.Error(w, err.Error(), http.StatusBadGateway)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

// POST /v1/annotations/batch
// Body: {"industry": "...", "confidence": 0.25, "images": [{"name": "...", "data": "<base64>"}]}
func (r *Router) handleBatchAnnotate(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Industry   string  `json:"industry"`
		Confidence float64 `json:"confidence"`
		Images     []struct {
			Name string `json:"name"`
			Data []byte `json:"data"`
		} `json:"images"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	if len(body.Images) == 0 {
		return fmt.Errorf("at least one image is required")
	}

	cmd := appann.BatchAnnotateCommand{
		Industry:   body.Industry,
		Confidence: body.Confidence,
	}
	for _, img := range body.Images {
		cmd.Images = append(cmd.Images, appann.ImageInput{Name: img.Name, Data: img.Data})
	}

	res, err := r.annSvc.BatchAnnotate(req.Context(), cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, res)
}

// GET /v1/annotations/{image}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	image, err := imageParam(req)
	if err != nil {
		return err
	}
	rec, err := r.annSvc.Get(req.Context(), image)
	if err != nil {
		return err
	}
	return writeJSON(w, rec)
}

// PUT /v1/annotations/{image}/corrections
// Body: {"corrections": [...]}, the full corrected set, not a delta.
func (r *Router) handleCorrections(w http.ResponseWriter, req *http.Request) error {
	image, err := imageParam(req)
	if err != nil {
		return err
	}
	var body struct {
		Corrections []annot.Detection `json:"corrections"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	rec, err := r.annSvc.UpdateCorrections(req.Context(), image, body.Corrections)
	if err != nil {
		return err
	}
	return writeJSON(w, rec)
}

// POST /v1/exports
// Body: {"format": "coco", "images": ["a.jpg"], "dimensions": {"a.jpg": {"width": 800, "height": 600}}, "upload": true}
// Omitting "images" exports every record.
func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Format     string                       `json:"format"`
		Images     []string                     `json:"images"`
		Dimensions map[string]appexp.Dimensions `json:"dimensions"`
		Upload     bool                         `json:"upload"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	res, err := r.expSvc.Export(req.Context(), appexp.ExportCommand{
		ImageIDs:   body.Images,
		Format:     domexp.Format(body.Format),
		Dimensions: body.Dimensions,
		Upload:     body.Upload,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, res)
}

// GET /v1/industries
func (r *Router) handleIndustries(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, map[string][]string{"industries": r.annSvc.Classes.Industries()})
}

func imageParam(req *http.Request) (string, error) {
	image, err := url.PathUnescape(chi.URLParam(req, "image"))
	if err != nil || image == "" {
		return "", fmt.Errorf("invalid image identifier")
	}
	return image, nil
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}
