// Package logger implements the service's structured event logger.
//
// A Logger routes every record to three sinks, each with its own minimum
// severity and format:
//   - console: INFO and above, "{timestamp} - {name} - {level} - {message}"
//   - {dir}/{name}.json: every level, one JSON object per line,
//     rotated at 10 MiB keeping 5 backups
//   - {dir}/{name}-errors.json: ERROR and CRITICAL only, one JSON object
//     per line, rotated at 5 MiB keeping 3 backups
//
// Each JSON line carries the fixed schema fields (timestamp, level, logger,
// message, module, function, line and, for error events, exception) followed
// by caller-supplied extra fields. Extra fields whose key collides with
// ReservedKeys are dropped; values that cannot be encoded as JSON are written
// as their fmt %v string.
//
// Example usage:
//
//	log, err := logger.New(logger.Options{Name: "flavorsnap", Dir: "logs"})
//	if err != nil {
//		return err
//	}
//	defer log.Close()
//
//	log.Info("Processing image prediction", logger.Fields{
//		"filename": "dish.jpg",
//	})
//	log.LogAPIRequest("POST", "/predict", headers, body, nil)
//	log.LogErrorWithTraceback("Failed to process image prediction", err, nil)
//
// Handler and Slog adapt the logger to log/slog so packages that log through
// *slog.Logger write to the same sinks.
//
// Emission never fails from the caller's point of view. A sink that cannot be
// written reports the failure through Options.OnSinkError and the remaining
// sinks still receive the record. Constructing a second Logger with the same
// name detaches the sinks of the first, so re-initialization never duplicates
// output.
package logger
