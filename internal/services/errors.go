package services

import "errors"

// Metrics service errors
var (
	// Master table errors
	ErrMasterNotFound = errors.New("master table not found")
	ErrMasterCorrupt  = errors.New("master table is corrupt")

	// Upload errors
	ErrUploadNotFound   = errors.New("upload not found")
	ErrUploadNotUsable  = errors.New("upload cannot be merged")
	ErrNoUploadsFound   = errors.New("no uploads found")
	ErrProcessingFailed = errors.New("upload processing failed")

	// WebSocket errors
	ErrWebSocketUpgrade = errors.New("websocket upgrade failed")
	ErrWebSocketClosed  = errors.New("websocket connection closed")

	// General errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrOperationTimeout   = errors.New("operation timed out")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
