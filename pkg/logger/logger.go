package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"

	"github.com/flavorsnap/ml-api/pkg/logger/rotate"
)

const (
	DefaultName = "flavorsnap"
	DefaultDir  = "logs"
)

var (
	DefaultGeneralPolicy = rotate.Policy{MaxBytes: 10 * 1024 * 1024, MaxBackups: 5}
	DefaultErrorPolicy   = rotate.Policy{MaxBytes: 5 * 1024 * 1024, MaxBackups: 3}
)

// Options configures a Logger. Zero values select the defaults.
type Options struct {
	Name string
	Dir  string

	// ConsoleLevel is the console threshold. Zero means INFO.
	ConsoleLevel Level
	// Console receives the plain-text lines. Nil means os.Stdout.
	Console io.Writer

	General rotate.Policy
	Errors  rotate.Policy

	// Fs hosts the log files. Nil means the OS filesystem.
	Fs afero.Fs

	// OnSinkError is told about every failed sink write. Nil prints one line
	// to stderr.
	OnSinkError func(sink string, err error)
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Dir == "" {
		o.Dir = DefaultDir
	}
	if o.Console == nil {
		o.Console = os.Stdout
	}
	if o.General == (rotate.Policy{}) {
		o.General = DefaultGeneralPolicy
	}
	if o.Errors == (rotate.Policy{}) {
		o.Errors = DefaultErrorPolicy
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.OnSinkError == nil {
		o.OnSinkError = func(sink string, err error) {
			fmt.Fprintf(os.Stderr, "logger: %s sink: %v\n", sink, err)
		}
	}
	return o
}

// core is the sink set shared by a Logger and its children.
type core struct {
	name     string
	sinks    []*sink
	onErr    func(string, error)
	detached atomic.Bool
}

func (c *core) enabled(level Level) bool {
	if c.detached.Load() {
		return false
	}
	for _, s := range c.sinks {
		if s.enabled(level) {
			return true
		}
	}
	return false
}

func (c *core) write(r *Record) {
	if c.detached.Load() {
		return
	}

	encoded := lines{record: r}
	for _, s := range c.sinks {
		if !s.enabled(r.Level) {
			continue
		}
		if err := s.write(encoded.get(s.format)); err != nil {
			c.onErr(s.name, err)
		}
	}
}

func (c *core) detach() error {
	c.detached.Store(true)

	var errs []error
	for _, s := range c.sinks {
		if err := s.close(); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

var (
	registryMu sync.Mutex
	registry   = make(map[string]*core)
)

// Logger emits structured records to its console, general and error sinks.
// A Logger is safe for concurrent use.
type Logger struct {
	core   *core
	fields Fields
	paths  Paths
}

// Paths are the active files of the two persisted sinks.
type Paths struct {
	General string
	Errors  string
}

// New creates the log directory if needed and attaches the three sinks. Any
// Logger previously built with the same name is detached before the files are
// opened, so it stops writing and its handles are closed. If opening fails,
// no Logger remains registered under the name.
func New(opts Options) (*Logger, error) {
	opts = opts.withDefaults()

	if err := opts.Fs.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", opts.Dir, err)
	}

	paths := Paths{
		General: filepath.Join(opts.Dir, opts.Name+".json"),
		Errors:  filepath.Join(opts.Dir, opts.Name+"-errors.json"),
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if prev, ok := registry[opts.Name]; ok {
		delete(registry, opts.Name)
		if err := prev.detach(); err != nil {
			opts.OnSinkError("previous", err)
		}
	}

	general, err := rotate.New(opts.Fs, paths.General, opts.General)
	if err != nil {
		return nil, err
	}

	errorsFile, err := rotate.New(opts.Fs, paths.Errors, opts.Errors)
	if err != nil {
		_ = general.Close()
		return nil, err
	}

	c := &core{
		name: opts.Name,
		sinks: []*sink{
			newConsoleSink(opts.Console, opts.ConsoleLevel),
			newFileSink(SinkGeneralFile, general, LevelDebug),
			newFileSink(SinkErrorFile, errorsFile, LevelError),
		},
		onErr: opts.OnSinkError,
	}
	registry[opts.Name] = c

	return &Logger{core: c, paths: paths}, nil
}

func (l *Logger) Name() string {
	return l.core.name
}

func (l *Logger) Paths() Paths {
	return l.paths
}

// With returns a Logger sharing l's sinks that adds fields to every record.
// Fields passed at the call site take precedence.
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{
		core:   l.core,
		fields: merge(l.fields, fields),
		paths:  l.paths,
	}
}

func (l *Logger) Enabled(level Level) bool {
	return l.core.enabled(level)
}

// Close detaches the sinks and closes the log files. Records emitted after
// Close are discarded.
func (l *Logger) Close() error {
	registryMu.Lock()
	if registry[l.core.name] == l.core {
		delete(registry, l.core.name)
	}
	registryMu.Unlock()

	return l.core.detach()
}

func (l *Logger) Emit(level Level, msg string, fields Fields) {
	l.log(3, level, msg, fields, "")
}

func (l *Logger) Debug(msg string, fields Fields) {
	l.log(3, LevelDebug, msg, fields, "")
}

func (l *Logger) Info(msg string, fields Fields) {
	l.log(3, LevelInfo, msg, fields, "")
}

func (l *Logger) Warning(msg string, fields Fields) {
	l.log(3, LevelWarning, msg, fields, "")
}

func (l *Logger) Error(msg string, fields Fields) {
	l.log(3, LevelError, msg, fields, "")
}

func (l *Logger) Critical(msg string, fields Fields) {
	l.log(3, LevelCritical, msg, fields, "")
}

// log builds and writes a record. skip is passed to runtime.Callers to find
// the call site: 3 points at the caller of an exported method.
func (l *Logger) log(skip int, level Level, msg string, fields Fields, exception string) {
	if !l.core.enabled(level) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(skip, pcs[:])

	l.core.write(&Record{
		Time:      time.Now(),
		Level:     level,
		Logger:    l.core.name,
		Message:   msg,
		Source:    sourceFromPC(pcs[0]),
		Exception: exception,
		Extra:     merge(l.fields, fields),
	})
}
