package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/flavorsnap/ml-api/pkg/logger"
)

// PanicError carries a value recovered from a panicking handler.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Recover turns a handler panic into an error_with_traceback event and a 500
// response. http.ErrAbortHandler is re-raised so net/http can abort the
// connection as intended.
func Recover(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newResponseRecorder(w, 0)

			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				logger.FromContext(r.Context(), log).LogErrorWithTraceback(
					"Unhandled error serving request",
					&PanicError{Value: v},
					logger.Fields{
						"request_method":   r.Method,
						"request_endpoint": r.URL.Path,
					},
				)

				if rec.wroteHeader {
					return
				}
				rec.Header().Set("Content-Type", "application/json")
				rec.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(rec).Encode(map[string]string{"error": "Internal server error"})
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
