package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Fields holds caller-supplied extra fields merged into a record.
type Fields map[string]any

// ReservedKeys are the record schema fields plus legacy attribute names that
// extra fields may never overwrite. Colliding extras are dropped silently.
var ReservedKeys = map[string]struct{}{
	"timestamp": {},
	"level":     {},
	"logger":    {},
	"message":   {},
	"module":    {},
	"function":  {},
	"line":      {},
	"exception": {},

	"name":            {},
	"msg":             {},
	"args":            {},
	"levelname":       {},
	"levelno":         {},
	"pathname":        {},
	"filename":        {},
	"exc_info":        {},
	"exc_text":        {},
	"stack_info":      {},
	"lineno":          {},
	"funcName":        {},
	"created":         {},
	"msecs":           {},
	"relativeCreated": {},
	"thread":          {},
	"threadName":      {},
	"processName":     {},
	"process":         {},
}

func isReserved(key string) bool {
	if key == "" {
		return true
	}
	_, ok := ReservedKeys[key]
	return ok
}

// merge returns base overlaid with over, without reserved keys. Neither input
// is modified.
func merge(base, over Fields) Fields {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}

	out := make(Fields, len(base)+len(over))
	for k, v := range base {
		if !isReserved(k) {
			out[k] = v
		}
	}
	for k, v := range over {
		if !isReserved(k) {
			out[k] = v
		}
	}

	return out
}

// Source is the call site that produced a record.
type Source struct {
	Module   string
	Function string
	Line     int
}

func sourceFromPC(pc uintptr) Source {
	if pc == 0 {
		return Source{}
	}

	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()

	return Source{
		Module:   strings.TrimSuffix(filepath.Base(frame.File), ".go"),
		Function: shortFunction(frame.Function),
		Line:     frame.Line,
	}
}

// shortFunction trims the import path and package name, so
// "example.com/app/internal/handler.(*Handler).Predict" becomes
// "(*Handler).Predict".
func shortFunction(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Record is one log event: fixed schema fields plus an open map of extras.
type Record struct {
	Time      time.Time
	Level     Level
	Logger    string
	Message   string
	Source    Source
	Exception string
	Extra     Fields
}

const timestampLayout = "2006-01-02T15:04:05.000Z"

func (r *Record) Timestamp() string {
	return r.Time.UTC().Format(timestampLayout)
}

// AppendJSON appends r to buf as a single-line JSON object terminated by a
// newline. Schema fields come first in a fixed order, then extras sorted by
// key.
func (r *Record) AppendJSON(buf *bytes.Buffer) {
	buf.WriteByte('{')
	writeKey(buf, "timestamp", true)
	writeValue(buf, r.Timestamp())
	writeKey(buf, "level", false)
	writeValue(buf, r.Level.String())
	writeKey(buf, "logger", false)
	writeValue(buf, r.Logger)
	writeKey(buf, "message", false)
	writeValue(buf, r.Message)
	writeKey(buf, "module", false)
	writeValue(buf, r.Source.Module)
	writeKey(buf, "function", false)
	writeValue(buf, r.Source.Function)
	writeKey(buf, "line", false)
	writeValue(buf, r.Source.Line)

	if r.Exception != "" {
		writeKey(buf, "exception", false)
		writeValue(buf, r.Exception)
	}

	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		if !isReserved(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		writeKey(buf, k, false)
		writeValue(buf, r.Extra[k])
	}

	buf.WriteString("}\n")
}

// AppendText appends the console form of r.
func (r *Record) AppendText(buf *bytes.Buffer) {
	fmt.Fprintf(buf, "%s - %s - %s - %s\n", r.Timestamp(), r.Logger, r.Level, r.Message)
}

func writeKey(buf *bytes.Buffer, key string, first bool) {
	if !first {
		buf.WriteByte(',')
	}
	writeValue(buf, key)
	buf.WriteByte(':')
}

// writeValue encodes v as JSON. Errors are written as their message. Scalar
// values encoding/json rejects fall back to their %v string, composite ones
// to a type placeholder. Nil pointers are written as null.
func writeValue(buf *bytes.Buffer, v any) {
	buf.Write(encodeValue(v))
}

func encodeValue(v any) (data []byte) {
	defer func() {
		if recover() != nil {
			data, _ = json.Marshal(fmt.Sprintf("<unencodable %T>", v))
		}
	}()

	if isNil(v) {
		return []byte("null")
	}
	if err, ok := v.(error); ok {
		v = err.Error()
	}

	data, err := json.Marshal(v)
	if err == nil {
		return data
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer, reflect.Interface:
		data, _ = json.Marshal(fmt.Sprintf("<unsupported %T>", v))
	default:
		data, _ = json.Marshal(fmt.Sprintf("%v", v))
	}
	return data
}

// isNil reports whether v is nil or a nil pointer, map, slice, func or
// channel held in an interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
