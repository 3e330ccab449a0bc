package httpengine

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fieldsight/aerolabel/internal/domain/detect"
)

func TestDetect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/detect", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "0.25", r.FormValue("confidence"))

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "jpeg-bytes", string(data))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"detections":[
			{"class":"grapevine","confidence":0.87,"bbox":{"x1":100,"y1":150,"x2":300,"y2":330}}
		]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	dets, err := c.Detect(context.Background(), []byte("jpeg-bytes"), 0.25)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	require.Equal(t, "grapevine", dets[0].Class)
	require.Equal(t, 0.87, dets[0].Confidence)
	require.Equal(t, float64(300), dets[0].BBox.X2)
}

func TestDetect_EngineFailureWrapsErrInference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	_, err := c.Detect(context.Background(), []byte("x"), 0.25)
	require.ErrorIs(t, err, detect.ErrInference)
}

func TestDetect_BadPayloadWrapsErrInference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	_, err := c.Detect(context.Background(), []byte("x"), 0.25)
	require.ErrorIs(t, err, detect.ErrInference)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	require.NoError(t, c.Health(context.Background()))
}
