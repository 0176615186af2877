package rotate

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/afero"
)

var ErrClosed = errors.New("rotate: writer is closed")

// Policy bounds the size of the active file and the number of archives kept.
// A MaxBytes of zero disables rotation.
type Policy struct {
	MaxBytes   int64
	MaxBackups int
}

type Writer struct {
	mu     sync.Mutex
	fs     afero.Fs
	path   string
	policy Policy
	file   afero.File
	size   int64
	closed bool
}

// New opens (or creates) path on fs in append mode.
func New(fs afero.Fs, path string, policy Policy) (*Writer, error) {
	if policy.MaxBytes < 0 || policy.MaxBackups < 0 {
		return nil, fmt.Errorf("rotate: invalid policy %+v", policy)
	}

	w := &Writer{
		fs:     fs,
		path:   path,
		policy: policy,
	}

	if err := w.open(); err != nil {
		return nil, err
	}

	return w, nil
}

func (w *Writer) Path() string {
	return w.path
}

// Backup returns the archive name for index n (1 is the newest).
func (w *Writer) Backup(n int) string {
	return fmt.Sprintf("%s.%d", w.path, n)
}

// Write appends p to the active file, rotating first when p would push the
// file past the size threshold.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosed
	}

	var rotateErr error
	if w.shouldRotate(int64(len(p))) {
		rotateErr = w.rotate()
	}

	if w.file == nil {
		if err := w.open(); err != nil {
			return 0, errors.Join(rotateErr, err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)

	return n, errors.Join(rotateErr, err)
}

func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.file == nil {
		return ErrClosed
	}

	return w.file.Sync()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.file == nil {
		return nil
	}

	return w.file.Close()
}

func (w *Writer) shouldRotate(n int64) bool {
	if w.policy.MaxBytes == 0 || w.size == 0 {
		return false
	}

	return w.size+n > w.policy.MaxBytes
}

func (w *Writer) open() error {
	f, err := w.fs.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("rotate: open %s: %w", w.path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("rotate: stat %s: %w", w.path, err)
	}

	w.file = f
	w.size = info.Size()

	return nil
}

// rotate must be called with w.mu held. On failure the active file is
// reopened when possible so the pending write is not lost.
func (w *Writer) rotate() error {
	err := w.file.Close()
	w.file = nil
	if err != nil {
		return w.reopen(fmt.Errorf("rotate: close %s: %w", w.path, err))
	}

	if w.policy.MaxBackups == 0 {
		return w.truncate()
	}

	if err := w.fs.Remove(w.Backup(w.policy.MaxBackups)); err != nil && !os.IsNotExist(err) {
		return w.reopen(fmt.Errorf("rotate: remove oldest backup: %w", err))
	}

	for i := w.policy.MaxBackups - 1; i >= 1; i-- {
		src := w.Backup(i)
		if _, err := w.fs.Stat(src); err != nil {
			continue
		}
		if err := w.fs.Rename(src, w.Backup(i+1)); err != nil {
			return w.reopen(fmt.Errorf("rotate: shift %s: %w", src, err))
		}
	}

	if err := w.fs.Rename(w.path, w.Backup(1)); err != nil {
		return w.reopen(fmt.Errorf("rotate: archive %s: %w", w.path, err))
	}

	return w.open()
}

func (w *Writer) truncate() error {
	f, err := w.fs.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return w.reopen(fmt.Errorf("rotate: truncate %s: %w", w.path, err))
	}

	w.file = f
	w.size = 0

	return nil
}

// reopen restores the active file after a failed rotation and returns cause.
func (w *Writer) reopen(cause error) error {
	if err := w.open(); err != nil {
		return errors.Join(cause, err)
	}

	return cause
}
