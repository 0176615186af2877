package logger

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/flavorsnap/ml-api/pkg/logger/rotate"
)

type format int

const (
	formatText format = iota
	formatJSON
)

const (
	SinkConsole     = "console"
	SinkGeneralFile = "general"
	SinkErrorFile   = "errors"
)

type sink struct {
	name   string
	min    Level
	format format

	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	closed bool
}

func newConsoleSink(w io.Writer, min Level) *sink {
	return &sink{name: SinkConsole, min: min, format: formatText, w: w}
}

func newFileSink(name string, w *rotate.Writer, min Level) *sink {
	return &sink{name: name, min: min, format: formatJSON, w: w, closer: w}
}

func (s *sink) enabled(level Level) bool {
	return level >= s.min
}

// write hands one encoded line to the underlying writer in a single call.
// Writes after close are discarded.
func (s *sink) write(line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	_, err := s.w.Write(line)
	if errors.Is(err, rotate.ErrClosed) {
		return nil
	}

	return err
}

func (s *sink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.closer == nil {
		return nil
	}

	return s.closer.Close()
}

// lines lazily encodes a record once per format.
type lines struct {
	record *Record
	text   []byte
	json   []byte
}

func (l *lines) get(f format) []byte {
	switch f {
	case formatJSON:
		if l.json == nil {
			var buf bytes.Buffer
			l.record.AppendJSON(&buf)
			l.json = buf.Bytes()
		}
		return l.json
	default:
		if l.text == nil {
			var buf bytes.Buffer
			l.record.AppendText(&buf)
			l.text = buf.Bytes()
		}
		return l.text
	}
}
