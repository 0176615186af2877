package logger

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

const (
	EventAPIRequest         = "api_request"
	EventAPIResponse        = "api_response"
	EventErrorWithTraceback = "error_with_traceback"
)

// LogAPIRequest records an incoming API request at INFO.
func (l *Logger) LogAPIRequest(method, endpoint string, headers, body map[string]any, extra Fields) {
	fields := merge(extra, Fields{
		"request_method":   method,
		"request_endpoint": endpoint,
		"request_headers":  headers,
		"request_body":     body,
		"event_type":       EventAPIRequest,
	})

	l.log(3, LevelInfo, fmt.Sprintf("API Request: %s %s", method, endpoint), fields, "")
}

// LogAPIResponse records an outgoing API response at INFO. durationMs may be
// nil when the duration was not measured.
func (l *Logger) LogAPIResponse(method, endpoint string, statusCode int, body map[string]any, durationMs *float64, extra Fields) {
	fields := merge(extra, Fields{
		"request_method":       method,
		"request_endpoint":     endpoint,
		"response_status_code": statusCode,
		"response_body":        body,
		"response_duration_ms": durationMs,
		"event_type":           EventAPIResponse,
	})

	l.log(3, LevelInfo, fmt.Sprintf("API Response: %s %s - %d", method, endpoint, statusCode), fields, "")
}

// LogErrorWithTraceback records err at ERROR with its type, message, wrap
// chain and the stack of the calling goroutine.
func (l *Logger) LogErrorWithTraceback(msg string, err error, extra Fields) {
	errType := fmt.Sprintf("%T", err)
	if isNil(err) {
		err = errors.New("<nil>")
		if errType == "<nil>" {
			errType = fmt.Sprintf("%T", err)
		}
	}

	text := errorText(err)
	fields := merge(extra, Fields{
		"exception_type":    errType,
		"exception_message": text,
		"event_type":        EventErrorWithTraceback,
	})

	l.log(3, LevelError, fmt.Sprintf("%s: %s", msg, text), fields, formatException(err, 3))
}

func errorText(err error) (text string) {
	defer func() {
		if recover() != nil {
			text = fmt.Sprintf("<unprintable %T>", err)
		}
	}()
	return err.Error()
}

const maxStackDepth = 64

// unwrap is errors.Unwrap that treats a panicking Unwrap method as the end
// of the chain.
func unwrap(err error) (next error) {
	defer func() {
		if recover() != nil {
			next = nil
		}
	}()
	return errors.Unwrap(err)
}

// formatException renders err's unwrap chain followed by the call stack.
// skip is handed to runtime.Callers.
func formatException(err error, skip int) string {
	var b strings.Builder

	for depth := 0; err != nil; depth++ {
		if depth > 0 {
			b.WriteString("caused by: ")
		}
		fmt.Fprintf(&b, "%T: %s\n", err, err)
		if isNil(err) {
			break
		}
		err = unwrap(err)
	}

	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return b.String()
	}

	b.WriteString("stack:\n")
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "  %s\n    %s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}

	return b.String()
}
