package config

import "time"

// Application constants - hardcoded values for the FleetPulse system
const (
	// Application Info
	AppName    = "FleetPulse"
	AppVersion = "1.2.0"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per minute
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	SheetsPushTimeout   = 45 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultLogsDir    = "logs"
	DefaultWebDir     = "web"
	DefaultUploadsDir = "data/uploads"
	DefaultHistoryDir = "data/history"

	// Data Files
	MasterCSVName    = "master_weeks.csv"
	DatabaseFileName = "fleetpulse.db"

	// Upload Settings
	DefaultMaxUploadBytes = 16 * 1024 * 1024
	UploadTimestampLayout = "20060102_150405"

	// Operation Timeouts
	DefaultProcessTimeout = 5 * time.Minute
	RebuildTimeout        = 30 * time.Minute

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	MaxLogFileSize   = 100 * 1024 * 1024 // 100MB
	MaxLogFileAge    = 30                // days

	// Weekly Export Patterns
	WeeklyExportPattern = ".*\\.xlsx?$"
)

// API Endpoints (internal)
const (
	APIBasePath     = "/api/v1"
	UploadEndpoint  = "/api/v1/uploads"
	MasterEndpoint  = "/api/v1/master"
	HistoryEndpoint = "/api/v1/history"
	HealthEndpoint  = "/health"
	MetricsEndpoint = "/metrics"

	// WebSocket Endpoints
	WebSocketEndpoint = "/ws"
)
