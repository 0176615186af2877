// Package health implements the service health endpoint and a periodic
// system sampler. The sampler records CPU, memory and log-directory disk
// usage so the endpoint can answer without blocking on measurements.
package health
