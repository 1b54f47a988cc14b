package http

import (
	"context"
	"io"

	"fleetpulse/internal/dataprocessing"
	"fleetpulse/internal/history"
	"fleetpulse/internal/services"
	"fleetpulse/pkg/contracts/domain"
)

// MetricsServiceInterface defines the interface for work-order metrics operations
type MetricsServiceInterface interface {
	ProcessUpload(ctx context.Context, originalName string, body io.Reader) (*services.UploadResult, error)
	CommitMerge(ctx context.Context, uploadID int64, overwriteWeeks []int) (*services.MergeOutcome, error)
	GetMaster(ctx context.Context) (domain.WeeklyTable, error)
	Summary(ctx context.Context) (*dataprocessing.RecentSummary, error)
	ListUploads(ctx context.Context, limit int) ([]history.UploadRecord, error)
	ListMerges(ctx context.Context, limit int) ([]history.MergeRecord, error)
	Rebuild(ctx context.Context) (*services.MergeOutcome, error)
	ClearMaster(ctx context.Context) (string, error)
}
