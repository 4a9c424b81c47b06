package services

import "errors"

// Sentinel errors returned by the service layer. The HTTP handlers map these
// onto the API error taxonomy.
var (
	ErrRecordingNotFound = errors.New("recording not found")
	ErrOperationNotFound = errors.New("operation not found")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUnreadableFile    = errors.New("file could not be parsed")
)
