// Package app wires the neurphys service together: configuration, logging,
// OpenTelemetry, the WebSocket hub, the service layer and the HTTP server.
// The cmd/neurphysd binary is a thin wrapper around Application.Run.
package app
