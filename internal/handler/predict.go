package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/flavorsnap/ml-api/internal/metrics"
	"github.com/flavorsnap/ml-api/pkg/logger"
)

const formField = "image"

// multipartOverhead leaves room for boundaries and part headers on top of the
// image itself.
const multipartOverhead = 1 << 20

type PredictHandler struct {
	logger       *logger.Logger
	collector    *metrics.Collector
	label        string
	maxBytes     int64
	allowedTypes []string
	now          func() time.Time
}

type Options struct {
	Label        string
	MaxBytes     int64
	AllowedTypes []string
}

func NewPredictHandler(log *logger.Logger, collector *metrics.Collector, opts Options) *PredictHandler {
	return &PredictHandler{
		logger:       log,
		collector:    collector,
		label:        opts.Label,
		maxBytes:     opts.MaxBytes,
		allowedTypes: opts.AllowedTypes,
		now:          time.Now,
	}
}

func (h *PredictHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	log := logger.FromContext(r.Context(), h.logger)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	upload, files, err := h.readUpload(r)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if errors.Is(err, http.ErrMissingFile) {
		log.Warning("No image uploaded in request", logger.Fields{"request_files": files})
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No image uploaded"})
		return
	}
	if err != nil {
		h.fail(w, log, err)
		return
	}

	start := h.now()
	log.Info("Processing image prediction", logger.Fields{
		"filename":     upload.Filename,
		"content_type": upload.ContentType,
	})

	if err := upload.Validate(h.maxBytes, h.allowedTypes); err != nil {
		h.fail(w, log, err)
		return
	}

	shape, err := upload.Shape()
	if err != nil {
		h.fail(w, log, fmt.Errorf("cannot identify image file %q: %w", upload.Filename, err))
		return
	}

	loaded := logger.Fields{"image_bytes": len(upload.Data)}
	if shape.Known {
		loaded["image_size"] = []int{shape.Width, shape.Height}
		loaded["image_mode"] = shape.Mode
	}
	log.Debug("Image loaded successfully", loaded)

	label := h.label
	elapsed := h.now().Sub(start)
	log.Info("Prediction completed successfully", logger.Fields{
		"predicted_label":    label,
		"processing_time_ms": float64(elapsed) / float64(time.Millisecond),
	})

	if h.collector != nil {
		h.collector.Emit(metrics.MetricEvent{
			Type:     metrics.EventPredictionMade,
			Method:   r.Method,
			Endpoint: r.URL.Path,
			Duration: elapsed,
			Label:    label,
		})
	}

	writeJSON(w, http.StatusOK, map[string]string{"label": label})
}

// readUpload returns the "image" part. When it is missing, the error wraps
// http.ErrMissingFile and files lists the field names that were sent.
func (h *PredictHandler) readUpload(r *http.Request) (Upload, []string, error) {
	if err := r.ParseMultipartForm(h.maxBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return Upload{}, nil, err
	}

	files := []string{}
	if r.MultipartForm != nil {
		for name := range r.MultipartForm.File {
			files = append(files, name)
		}
		sort.Strings(files)
	}

	file, header, err := r.FormFile(formField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return Upload{}, files, http.ErrMissingFile
		}
		return Upload{}, files, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return Upload{}, files, err
	}

	return newUpload(header.Filename, data), files, nil
}

func (h *PredictHandler) fail(w http.ResponseWriter, log *logger.Logger, err error) {
	log.LogErrorWithTraceback("Failed to process image prediction", err, nil)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
