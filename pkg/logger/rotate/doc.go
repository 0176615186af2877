// Package rotate provides a size-triggered rotating file writer.
//
// A Writer appends to a single active file. When a write would push the file
// past its size threshold, the file is archived as name.1 (shifting older
// backups to name.2, name.3, ...) and a fresh file is opened before the write
// proceeds. At most MaxBackups archives are retained; the oldest is deleted
// first. Rotation is never time-triggered.
//
// Example usage:
//
//	w, err := rotate.New(afero.NewOsFs(), "logs/app.json", rotate.Policy{
//		MaxBytes:   10 * 1024 * 1024,
//		MaxBackups: 5,
//	})
//	if err != nil {
//		return err
//	}
//	defer w.Close()
//
//	w.Write([]byte(`{"message":"hello"}` + "\n"))
//
// All methods are safe for concurrent use. Each Write is appended as one
// unit, so lines written by concurrent callers never interleave.
package rotate
