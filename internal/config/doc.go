// Package config provides centralized configuration management for FleetPulse.
// It handles loading configuration from multiple sources, validation, and
// provides a type-safe API for accessing configuration values throughout the
// application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration files (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern FLEETPULSE_* for namespacing:
//
//	FLEETPULSE_SERVER_PORT=8080
//	FLEETPULSE_LOGGING_LEVEL=info
//	FLEETPULSE_ADMIN_PASSWORD_HASH=$2a$10$...
//	FLEETPULSE_SHEETS_SPREADSHEET_ID=1BxiMVs...
//
// # Path Management
//
// The package provides centralized path management through the Paths type,
// which handles all file system paths relative to the executable location:
//
//	paths, err := config.GetPaths()
//	uploadPath := paths.GetUploadPath("export_20240311_090000.xlsx")
//	snapshot := paths.GetSnapshotPath(time.Now())
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
