// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server settings, log sinks and rotation, upload limits, CORS origins,
// metrics buffering, and the health sampling interval.
package config
