package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fleetpulse/internal/config"
	"fleetpulse/internal/dataprocessing"
	apierrors "fleetpulse/internal/errors"
	"fleetpulse/internal/exporter"
	"fleetpulse/internal/files"
	"fleetpulse/internal/history"
	"fleetpulse/internal/middleware"
	"fleetpulse/pkg/contracts/domain"
)

// rebuildParseWorkers caps concurrent workbook parses during a rebuild.
const rebuildParseWorkers = 4

// ProgressBroadcaster pushes processing progress to connected clients.
// The websocket hub satisfies it; a nil broadcaster disables pushes.
type ProgressBroadcaster interface {
	BroadcastProgress(stage string, percent int, message string)
	BroadcastStatus(status, message string)
	BroadcastError(code, message, stage string, recoverable bool)
	BroadcastMasterUpdated(activeWeeks, totalVolume int, adopted []int)
}

// MasterMirror pushes the merged master to an external surface after each
// merge. The Google Sheets mirror satisfies it.
type MasterMirror interface {
	Mirror(ctx context.Context, table domain.WeeklyTable) error
}

// UploadResult is the preview returned after an upload is processed but
// before the caller decides which overlap weeks to overwrite.
type UploadResult struct {
	UploadID     int64              `json:"upload_id"`
	SavedName    string             `json:"saved_name"`
	RowCount     int                `json:"row_count"`
	RecordCount  int                `json:"record_count"`
	Incoming     domain.WeeklyTable `json:"incoming"`
	ActiveWeeks  []int              `json:"active_weeks"`
	OverlapWeeks []int              `json:"overlap_weeks"`
}

// MergeOutcome describes a committed merge.
type MergeOutcome struct {
	Master         domain.WeeklyTable `json:"master"`
	AdoptedWeeks   []int              `json:"adopted_weeks"`
	PreservedWeeks []int              `json:"preserved_weeks,omitempty"`
	MissingWeeks   []int              `json:"missing_weeks,omitempty"`
	ActiveWeeks    int                `json:"active_weeks"`
	TotalVolume    int                `json:"total_volume"`
	SnapshotPath   string             `json:"snapshot_path,omitempty"`
}

// MetricsService orchestrates the upload pipeline: parse the workbook,
// normalize and aggregate service events into a weekly table, and merge the
// result into the persisted master under the caller's overwrite selection.
type MetricsService struct {
	cfg        *config.Config
	paths      *config.Paths
	manager    *files.Manager
	discovery  *files.Discovery
	master     *files.MasterStore
	log        *history.Store
	weekly     *exporter.WeeklyExporter
	workbook   *exporter.WorkbookExporter
	mirror     MasterMirror
	hub        ProgressBroadcaster
	normalizer *dataprocessing.Normalizer
	aggregator *dataprocessing.Aggregator
	logger     *slog.Logger

	// pending holds tables computed from uploads awaiting a merge decision.
	// After a restart the table is recomputed from the saved workbook.
	mu      sync.Mutex
	pending map[int64]domain.WeeklyTable
}

// NewMetricsService creates the service with injected dependencies. hub and
// mirror may be nil.
func NewMetricsService(cfg *config.Config, paths *config.Paths, log *history.Store, hub ProgressBroadcaster, mirror MasterMirror, logger *slog.Logger) *MetricsService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("service", "metrics"))

	return &MetricsService{
		cfg:        cfg,
		paths:      paths,
		manager:    files.NewManager(paths),
		discovery:  files.NewDiscovery(paths.DataDir),
		master:     files.NewMasterStore(paths),
		log:        log,
		weekly:     exporter.NewWeeklyExporter(paths),
		workbook:   exporter.NewWorkbookExporter(),
		mirror:     mirror,
		hub:        hub,
		normalizer: dataprocessing.NewNormalizer(logger),
		aggregator: dataprocessing.NewAggregator(logger),
		logger:     logger,
		pending:    make(map[int64]domain.WeeklyTable),
	}
}

// ProcessUpload saves the uploaded workbook, runs it through the pipeline
// and returns a preview of the incoming table plus its overlap with the
// current master. Nothing is merged yet.
func (s *MetricsService) ProcessUpload(ctx context.Context, originalName string, body io.Reader) (*UploadResult, error) {
	start := time.Now()
	receivedAt := start.UTC()

	s.broadcastProgress("saving", 10, "saving uploaded workbook")

	savedName, size, err := s.manager.SaveUpload(originalName, body, s.cfg.Upload.MaxSizeBytes, receivedAt)
	if err != nil {
		middleware.RecordUploadMetrics(ctx, 0, time.Since(start), false)
		return nil, apierrors.NewValidationError(fmt.Sprintf("could not save upload: %v", err))
	}

	computeStart := time.Now()
	table, rowCount, recordCount, err := s.computeTable(s.paths.GetUploadPath(savedName))
	middleware.RecordOperationStageMetrics(ctx, "upload", "compute", time.Since(computeStart), err == nil)
	if err != nil {
		s.recordFailedUpload(ctx, receivedAt, originalName, savedName, size, err)
		middleware.RecordUploadMetrics(ctx, 0, time.Since(start), false)
		s.broadcastError("WORKBOOK_INVALID", err.Error(), "parsing")
		return nil, err
	}

	s.broadcastProgress("aggregating", 70, "computing weekly rollup")

	uploadID, err := s.log.RecordUpload(ctx, history.UploadRecord{
		ReceivedAt:   receivedAt,
		OriginalName: originalName,
		SavedName:    savedName,
		SizeBytes:    size,
		RowCount:     rowCount,
		ActiveWeeks:  table.ActiveWeeks(),
		Status:       history.StatusProcessed,
	})
	if err != nil {
		middleware.RecordUploadMetrics(ctx, rowCount, time.Since(start), false)
		return nil, apierrors.NewStorageError("could not record upload", err)
	}

	s.mu.Lock()
	s.pending[uploadID] = table.Clone()
	s.mu.Unlock()

	master, err := s.master.Load()
	if err != nil {
		middleware.RecordUploadMetrics(ctx, rowCount, time.Since(start), false)
		return nil, apierrors.NewStorageError("could not load master table", err)
	}

	var overlap []int
	if master != nil {
		overlap = dataprocessing.OverlappingActiveWeeks(&master, table)
	}

	middleware.RecordUploadMetrics(ctx, rowCount, time.Since(start), true)
	s.broadcastProgress("ready", 100, "upload processed, awaiting merge decision")

	s.logger.InfoContext(ctx, "upload processed",
		slog.Int64("upload_id", uploadID),
		slog.String("saved_name", savedName),
		slog.Int("rows", rowCount),
		slog.Int("records", recordCount),
		slog.Int("overlap_weeks", len(overlap)))

	return &UploadResult{
		UploadID:     uploadID,
		SavedName:    savedName,
		RowCount:     rowCount,
		RecordCount:  recordCount,
		Incoming:     table,
		ActiveWeeks:  table.ActiveWeeks(),
		OverlapWeeks: overlap,
	}, nil
}

// CommitMerge merges a processed upload into the master. overwriteWeeks
// selects which overlap weeks take the incoming values; unselected overlap
// weeks keep the master rows.
func (s *MetricsService) CommitMerge(ctx context.Context, uploadID int64, overwriteWeeks []int) (*MergeOutcome, error) {
	incoming, err := s.pendingTable(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	master, err := s.master.Load()
	if err != nil {
		return nil, apierrors.NewStorageError("could not load master table", err)
	}

	snapshotPath := ""
	if master != nil {
		snapshotPath, err = s.master.Snapshot(time.Now().UTC())
		if err != nil {
			return nil, apierrors.NewStorageError("could not snapshot master table", err)
		}
	}

	overwrite := make(map[int]bool, len(overwriteWeeks))
	for _, week := range overwriteWeeks {
		if week < 1 || week > domain.WeeksPerYear {
			return nil, apierrors.NewValidationError(fmt.Sprintf("overwrite week %d out of range", week))
		}
		overwrite[week] = true
	}

	var masterPtr *domain.WeeklyTable
	if master != nil {
		masterPtr = &master
	}
	mergeStart := time.Now()
	result := dataprocessing.Merge(masterPtr, incoming, overwrite)
	middleware.RecordOperationStageMetrics(ctx, "merge", "merge", time.Since(mergeStart), true)

	if err := s.master.Save(result.Table); err != nil {
		return nil, apierrors.NewStorageError("could not save master table", err)
	}

	if _, err := s.log.RecordMerge(ctx, history.MergeRecord{
		MergedAt:       time.Now().UTC(),
		UploadID:       uploadID,
		AdoptedWeeks:   result.AdoptedWeeks,
		PreservedWeeks: result.PreservedWeeks,
		SnapshotPath:   snapshotPath,
	}); err != nil {
		return nil, apierrors.NewStorageError("could not record merge", err)
	}

	s.mu.Lock()
	delete(s.pending, uploadID)
	s.mu.Unlock()

	s.exportResults(ctx, result.Table)
	s.mirrorMaster(ctx, result.Table)

	activeWeeks := len(result.Table.ActiveWeeks())
	totalVolume := result.Table.TotalVolume()

	middleware.RecordMergeMetrics(ctx, len(result.AdoptedWeeks), len(result.PreservedWeeks))
	middleware.RecordMasterGauges(ctx, activeWeeks, totalVolume)

	if s.hub != nil {
		s.hub.BroadcastMasterUpdated(activeWeeks, totalVolume, result.AdoptedWeeks)
	}

	s.logger.InfoContext(ctx, "merge committed",
		slog.Int64("upload_id", uploadID),
		slog.Int("adopted", len(result.AdoptedWeeks)),
		slog.Int("preserved", len(result.PreservedWeeks)),
		slog.Int("missing", len(result.MissingWeeks)),
		slog.Int("total_volume", totalVolume))

	return &MergeOutcome{
		Master:         result.Table,
		AdoptedWeeks:   result.AdoptedWeeks,
		PreservedWeeks: result.PreservedWeeks,
		MissingWeeks:   result.MissingWeeks,
		ActiveWeeks:    activeWeeks,
		TotalVolume:    totalVolume,
		SnapshotPath:   snapshotPath,
	}, nil
}

// MasterStore exposes the master persistence layer for health checks.
func (s *MetricsService) MasterStore() *files.MasterStore {
	return s.master
}

// Discovery exposes the file discovery layer for handlers that list
// on-disk artifacts.
func (s *MetricsService) Discovery() *files.Discovery {
	return s.discovery
}

// GetMaster returns the persisted master table.
func (s *MetricsService) GetMaster(ctx context.Context) (domain.WeeklyTable, error) {
	master, err := s.master.Load()
	if err != nil {
		return nil, apierrors.NewStorageError("could not load master table", err)
	}
	if master == nil {
		return nil, apierrors.ErrMasterNotFound
	}
	return master, nil
}

// Summary returns the trailing-window summary of the master, or nil when
// the master has no active weeks.
func (s *MetricsService) Summary(ctx context.Context) (*dataprocessing.RecentSummary, error) {
	master, err := s.GetMaster(ctx)
	if err != nil {
		return nil, err
	}
	return dataprocessing.SummarizeRecent(master), nil
}

// ListUploads returns the most recent upload log entries.
func (s *MetricsService) ListUploads(ctx context.Context, limit int) ([]history.UploadRecord, error) {
	records, err := s.log.ListUploads(ctx, limit)
	if err != nil {
		return nil, apierrors.NewStorageError("could not list uploads", err)
	}
	return records, nil
}

// ListMerges returns the most recent merge log entries.
func (s *MetricsService) ListMerges(ctx context.Context, limit int) ([]history.MergeRecord, error) {
	records, err := s.log.ListMerges(ctx, limit)
	if err != nil {
		return nil, apierrors.NewStorageError("could not list merges", err)
	}
	return records, nil
}

// Rebuild recomputes the master from every saved upload, replayed oldest to
// newest with incoming data winning every overlap. Workbooks are parsed
// concurrently; merging stays sequential to keep replay order.
func (s *MetricsService) Rebuild(ctx context.Context) (*MergeOutcome, error) {
	uploads, err := s.discovery.FindUploads(s.paths.UploadsDir)
	if err != nil {
		return nil, apierrors.NewStorageError("could not scan uploads", err)
	}
	if len(uploads) == 0 {
		return nil, apierrors.NewNotFoundError("uploads")
	}

	stamps := make([]string, 0, len(uploads))
	for stamp := range uploads {
		stamps = append(stamps, stamp)
	}
	sort.Strings(stamps)

	s.broadcastProgress("rebuilding", 10, fmt.Sprintf("reprocessing %d uploads", len(stamps)))

	tables := make([]domain.WeeklyTable, len(stamps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildParseWorkers)
	for i, stamp := range stamps {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			table, _, _, err := s.computeTable(uploads[stamp].Path)
			if err != nil {
				return fmt.Errorf("upload %s: %w", uploads[stamp].Name, err)
			}
			tables[i] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.broadcastError("REBUILD_FAILED", err.Error(), "rebuilding")
		return nil, apierrors.ErrProcessExecution(err)
	}

	snapshotPath := ""
	if s.master.Exists() {
		snapshotPath, err = s.master.Snapshot(time.Now().UTC())
		if err != nil {
			return nil, apierrors.NewStorageError("could not snapshot master table", err)
		}
	}

	var master *domain.WeeklyTable
	var last dataprocessing.MergeResult
	for _, table := range tables {
		overwrite := make(map[int]bool)
		if master != nil {
			for _, week := range dataprocessing.OverlappingActiveWeeks(master, table) {
				overwrite[week] = true
			}
		}
		last = dataprocessing.Merge(master, table, overwrite)
		merged := last.Table
		master = &merged
	}

	if err := s.master.Save(*master); err != nil {
		return nil, apierrors.NewStorageError("could not save rebuilt master", err)
	}

	s.exportResults(ctx, *master)
	s.mirrorMaster(ctx, *master)

	activeWeeks := len(master.ActiveWeeks())
	totalVolume := master.TotalVolume()
	middleware.RecordMasterGauges(ctx, activeWeeks, totalVolume)

	if s.hub != nil {
		s.hub.BroadcastMasterUpdated(activeWeeks, totalVolume, master.ActiveWeeks())
	}
	s.broadcastProgress("ready", 100, "rebuild complete")

	s.logger.InfoContext(ctx, "master rebuilt",
		slog.Int("uploads", len(stamps)),
		slog.Int("active_weeks", activeWeeks),
		slog.Int("total_volume", totalVolume))

	return &MergeOutcome{
		Master:       *master,
		AdoptedWeeks: last.AdoptedWeeks,
		ActiveWeeks:  activeWeeks,
		TotalVolume:  totalVolume,
		SnapshotPath: snapshotPath,
	}, nil
}

// ClearMaster snapshots and removes the persisted master.
func (s *MetricsService) ClearMaster(ctx context.Context) (string, error) {
	snapshotPath, err := s.master.Snapshot(time.Now().UTC())
	if err != nil {
		return "", apierrors.NewStorageError("could not snapshot master table", err)
	}
	if err := s.master.Clear(); err != nil {
		return "", apierrors.NewStorageError("could not clear master table", err)
	}

	middleware.RecordMasterGauges(ctx, 0, 0)
	if s.hub != nil {
		s.hub.BroadcastStatus("cleared", "master table cleared")
	}

	s.logger.InfoContext(ctx, "master cleared", slog.String("snapshot_path", snapshotPath))
	return snapshotPath, nil
}

// computeTable runs one saved workbook through parse, normalize and
// aggregate.
func (s *MetricsService) computeTable(path string) (domain.WeeklyTable, int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, apierrors.NewStorageError("could not open saved upload", err)
	}
	defer file.Close()

	raw, err := dataprocessing.ParseWorkbook(file)
	if err != nil {
		return nil, 0, 0, apierrors.WorkbookInvalidError(err)
	}

	records := s.normalizer.Normalize(raw)
	table := s.aggregator.Aggregate(records)

	return table, len(raw.Rows), len(records), nil
}

// pendingTable returns the incoming table for uploadID, recomputing it from
// the saved workbook when the in-memory copy is gone.
func (s *MetricsService) pendingTable(ctx context.Context, uploadID int64) (domain.WeeklyTable, error) {
	s.mu.Lock()
	table, ok := s.pending[uploadID]
	s.mu.Unlock()
	if ok {
		return table, nil
	}

	rec, err := s.log.GetUpload(ctx, uploadID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierrors.ErrUploadNotFound
	}
	if err != nil {
		return nil, apierrors.NewStorageError("could not look up upload", err)
	}
	if rec.Status != history.StatusProcessed {
		return nil, apierrors.NewValidationError("upload failed processing and cannot be merged")
	}

	table, _, _, err = s.computeTable(s.paths.GetUploadPath(rec.SavedName))
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (s *MetricsService) recordFailedUpload(ctx context.Context, receivedAt time.Time, originalName, savedName string, size int64, cause error) {
	if _, err := s.log.RecordUpload(ctx, history.UploadRecord{
		ReceivedAt:   receivedAt,
		OriginalName: originalName,
		SavedName:    savedName,
		SizeBytes:    size,
		Status:       history.StatusFailed,
		Error:        cause.Error(),
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to record rejected upload",
			slog.String("error", err.Error()))
	}
}

// exportResults regenerates the downloadable CSV and workbook. Failures are
// logged but never fail the merge that produced the table.
func (s *MetricsService) exportResults(ctx context.Context, table domain.WeeklyTable) {
	if err := s.weekly.ExportWeeklyCSV(table, "weekly_rollup.csv"); err != nil {
		s.logger.ErrorContext(ctx, "failed to export weekly CSV",
			slog.String("error", err.Error()))
	}
	if err := s.workbook.ExportWorkbook(table, s.paths.GetResultsPath("weekly_rollup.xlsx")); err != nil {
		s.logger.ErrorContext(ctx, "failed to export weekly workbook",
			slog.String("error", err.Error()))
	}
}

// mirrorMaster pushes the table to the configured sheet, best-effort.
func (s *MetricsService) mirrorMaster(ctx context.Context, table domain.WeeklyTable) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Mirror(ctx, table); err != nil {
		s.logger.WarnContext(ctx, "failed to mirror master to sheet",
			slog.String("error", err.Error()))
	}
}

func (s *MetricsService) broadcastProgress(stage string, percent int, message string) {
	if s.hub != nil {
		s.hub.BroadcastProgress(stage, percent, message)
	}
}

func (s *MetricsService) broadcastError(code, message, stage string) {
	if s.hub != nil {
		s.hub.BroadcastError(code, message, stage, true)
	}
}
