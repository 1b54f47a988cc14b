package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	ExecutableDir string
	WebDir        string
	StaticDir     string
	DataDir       string
	UploadsDir    string
	HistoryDir    string
	ResultsDir    string
	LogsDir       string

	// Well-known data files
	MasterCSV       string
	DatabaseFile    string
	CredentialsFile string
}

// GetPaths returns the application paths relative to the executable location
// All paths are ALWAYS relative to the executable directory, never the current working directory
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	exeDir := filepath.Dir(exe)

	// Directory structure:
	// dist/
	//   ├── credentials.json   (optional Sheets service account)
	//   ├── data/
	//   │   ├── uploads/       (saved weekly Excel exports)
	//   │   ├── history/       (master snapshots taken before each merge)
	//   │   ├── results/       (generated result workbooks)
	//   │   ├── master_weeks.csv
	//   │   └── fleetpulse.db
	//   ├── logs/
	//   └── web/

	dataDir := filepath.Join(exeDir, "data")

	paths := &Paths{
		ExecutableDir: exeDir,
		DataDir:       dataDir,
		WebDir:        filepath.Join(exeDir, "web"),
		StaticDir:     filepath.Join(exeDir, "web", "static"),
		UploadsDir:    filepath.Join(dataDir, "uploads"),
		HistoryDir:    filepath.Join(dataDir, "history"),
		ResultsDir:    filepath.Join(dataDir, "results"),
		LogsDir:       filepath.Join(exeDir, "logs"),

		MasterCSV:       filepath.Join(dataDir, "master_weeks.csv"),
		DatabaseFile:    filepath.Join(dataDir, "fleetpulse.db"),
		CredentialsFile: filepath.Join(exeDir, "credentials.json"),
	}

	return paths, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.UploadsDir,
		p.HistoryDir,
		p.ResultsDir,
		p.LogsDir,
		p.WebDir,
		p.StaticDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}

		if logger != nil {
			logger.Debug("Ensured directory exists",
				slog.String("directory", dir))
		}
	}

	return nil
}

// GetRelativePath returns a path relative to the executable directory
func (p *Paths) GetRelativePath(subpath string) string {
	return filepath.Join(p.ExecutableDir, subpath)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetWebFilePath returns the path to a web file
func (p *Paths) GetWebFilePath(filename string) string {
	return filepath.Join(p.WebDir, filename)
}

// GetStaticFilePath returns the path to a static file
func (p *Paths) GetStaticFilePath(filename string) string {
	return filepath.Join(p.StaticDir, filename)
}

// GetUploadPath returns the path for a saved upload file
func (p *Paths) GetUploadPath(filename string) string {
	return filepath.Join(p.UploadsDir, filename)
}

// GetSnapshotPath returns the path for a master snapshot taken at t
func (p *Paths) GetSnapshotPath(t time.Time) string {
	filename := fmt.Sprintf("master_weeks_%s.csv", t.Format("20060102_150405"))
	return filepath.Join(p.HistoryDir, filename)
}

// GetSnapshotFilePath returns the path for a named snapshot file
func (p *Paths) GetSnapshotFilePath(filename string) string {
	return filepath.Join(p.HistoryDir, filename)
}

// GetResultsPath returns the path for a generated result workbook
func (p *Paths) GetResultsPath(filename string) string {
	return filepath.Join(p.ResultsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetCredentialsPath returns the path for the Google Sheets credentials file
func (p *Paths) GetCredentialsPath() string {
	path := p.CredentialsFile
	logger := slog.Default()
	if logger != nil {
		logger.Debug("Credentials path resolved",
			slog.String("path", path),
			slog.Bool("exists", FileExists(path)))
	}
	return path
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution() {
	logger := slog.Default()
	if logger == nil {
		return
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("uploads", p.UploadsDir),
			slog.String("history", p.HistoryDir),
			slog.String("results", p.ResultsDir),
			slog.String("logs", p.LogsDir),
			slog.String("web", p.WebDir),
		),
		slog.Group("data_files",
			slog.String("master_csv", p.MasterCSV),
			slog.String("database", p.DatabaseFile),
			slog.String("credentials", p.CredentialsFile),
		))
}
