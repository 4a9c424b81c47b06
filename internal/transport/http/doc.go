// Package http provides the HTTP transport layer: the chi router, the
// REST handlers for recordings, operations, reports and health, and the
// WebSocket upgrade endpoint. Handlers translate service-layer sentinel
// errors into RFC 7807 problem responses.
package http
