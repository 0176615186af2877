package middleware

import (
	"bytes"
	"net/http"
)

// responseRecorder remembers the status code and, up to limit bytes, the body
// written through it.
type responseRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	limit       int
	body        bytes.Buffer
	truncated   bool
}

func newResponseRecorder(w http.ResponseWriter, limit int) *responseRecorder {
	return &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK, limit: limit}
}

func (r *responseRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}

	if room := r.limit - r.body.Len(); room > 0 {
		if len(p) > room {
			r.body.Write(p[:room])
			r.truncated = true
		} else {
			r.body.Write(p)
		}
	} else if r.limit > 0 && len(p) > 0 {
		r.truncated = true
	}

	return r.ResponseWriter.Write(p)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		if !r.wroteHeader {
			r.WriteHeader(http.StatusOK)
		}
		f.Flush()
	}
}

func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
