package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/flavorsnap/ml-api/pkg/logger"
)

const (
	maxLoggedRequestBody  = 64 << 10
	maxLoggedResponseBody = 64 << 10
	redacted              = "[REDACTED]"
)

var sensitiveHeaders = map[string]struct{}{
	"Authorization":       {},
	"Cookie":              {},
	"Set-Cookie":          {},
	"Proxy-Authorization": {},
	"X-Api-Key":           {},
}

// RequestLogger records every request with LogAPIRequest before the handler
// runs and every response with LogAPIResponse after it returns. The logger
// handed to the handler through the request context carries request_id.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLog := log
			if id := RequestIDFromContext(r.Context()); id != "" {
				reqLog = log.With(logger.Fields{"request_id": id})
			}

			method, endpoint := r.Method, r.URL.Path
			reqLog.LogAPIRequest(method, endpoint, flattenHeaders(r.Header), readJSONBody(r), nil)

			rec := newResponseRecorder(w, maxLoggedResponseBody)
			next.ServeHTTP(rec, r.WithContext(logger.NewContext(r.Context(), reqLog)))

			durationMs := float64(time.Since(start)) / float64(time.Millisecond)
			reqLog.LogAPIResponse(method, endpoint, rec.statusCode, responseJSONBody(rec), &durationMs, nil)
		})
	}
}

func flattenHeaders(h http.Header) map[string]any {
	out := make(map[string]any, len(h))
	for name, values := range h {
		if _, ok := sensitiveHeaders[http.CanonicalHeaderKey(name)]; ok {
			out[name] = redacted
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// readJSONBody parses a JSON request body into a map and restores r.Body so
// the handler can still read it. Anything else yields an empty map.
func readJSONBody(r *http.Request) map[string]any {
	body := map[string]any{}
	if r.Body == nil || !isJSON(r.Header.Get("Content-Type")) {
		return body
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxLoggedRequestBody+1))
	rest := r.Body
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(data), rest), rest}

	if err != nil || len(data) > maxLoggedRequestBody {
		return body
	}

	if err := json.Unmarshal(data, &body); err != nil {
		return map[string]any{}
	}
	return body
}

func responseJSONBody(rec *responseRecorder) map[string]any {
	body := map[string]any{}
	if rec.truncated || !isJSON(rec.Header().Get("Content-Type")) {
		return body
	}

	if err := json.Unmarshal(rec.body.Bytes(), &body); err != nil {
		return map[string]any{}
	}
	return body
}
