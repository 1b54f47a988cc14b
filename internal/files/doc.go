// Package files provides file system operations for uploads, the master
// table and its history snapshots.
//
// This package contains three main components:
//
// Discovery: Provides file discovery operations such as finding saved
// upload workbooks and master snapshots. It also includes utilities for
// filtering files by date range and finding the latest file.
//
// Manager: Provides basic file management operations such as saving
// uploads, copying, moving, deleting files, and ensuring directories
// exist. All operations are relative to a base path to maintain
// portability.
//
// MasterStore: Persists the merged master table as a CSV file with atomic
// replacement and pre-merge snapshots into the history directory.
//
// Example usage:
//
//	// Create a discovery instance
//	discovery := files.NewDiscovery("/path/to/base")
//
//	// Find saved uploads
//	uploads, err := discovery.FindUploads("uploads")
//
//	// Load the persisted master
//	store := files.NewMasterStore(paths)
//	master, err := store.Load()
package files
