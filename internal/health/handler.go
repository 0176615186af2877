package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/flavorsnap/ml-api/pkg/logger"
)

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

type Response struct {
	Status    string       `json:"status"`
	Service   string       `json:"service"`
	Timestamp float64      `json:"timestamp"`
	System    *SystemStats `json:"system,omitempty"`
}

type Handler struct {
	service string
	sampler *Sampler
	logger  *logger.Logger
	now     func() time.Time
}

func NewHandler(service string, sampler *Sampler, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		sampler: sampler,
		logger:  log,
		now:     time.Now,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	logger.FromContext(r.Context(), h.logger).Info("Health check requested", nil)

	now := h.now()
	resp := Response{
		Status:    StatusHealthy,
		Service:   h.service,
		Timestamp: float64(now.UnixNano()) / float64(time.Second),
	}

	if h.sampler != nil {
		if stats, ok := h.sampler.Latest(); ok {
			resp.System = &stats
			if stats.Degraded() {
				resp.Status = StatusDegraded
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
