// Package http implements HTTP request handlers for the FleetPulse web
// service. It provides a thin layer between HTTP transport and business
// logic, following the clean architecture principle of keeping handlers
// focused solely on HTTP concerns.
//
// # Architecture Principles
//
// Handlers in this package follow these principles:
//
//	1. Thin handlers - minimal logic, delegate to services
//	2. HTTP-only concerns - request parsing, response formatting
//	3. Error transformation - convert service errors to HTTP responses
//	4. No business logic - all logic belongs in the service layer
//	5. Consistent patterns - standardized request/response handling
//
// # Request Flow
//
// A typical request flows through these layers:
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Storage
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Handlers
//
//	- UploadHandler: workbook uploads and merge commits
//	- MasterHandler: master table reads, exports, rebuild and clear
//	- HistoryHandler: upload/merge audit trail and snapshots
//	- HealthHandler: health, readiness, liveness and version
//	- StatsHandler: runtime statistics for the dashboard
//	- BrowserLogHandler: browser-side log forwarding
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details specification:
//
//	{
//	    "type": "validation_error",
//	    "title": "Invalid request data",
//	    "status": 400,
//	    "detail": "Upload id must be a positive integer",
//	    "instance": "/api/uploads/abc/merge"
//	}
//
// # Middleware Integration
//
// Handlers work with these middleware:
//
//	- RequestID: Adds unique request ID for tracing
//	- Logger: Structured logging with slog
//	- AdminGate: Protects destructive routes with a password
//	- Recovery: Handles panics gracefully
//	- CORS: Configures cross-origin requests
package http
