// Package handler serves the prediction endpoint. Uploads are validated and
// logged, and every prediction is reported to the metrics collector.
package handler
