// Package api contains API contract definitions for FleetPulse.
// Version v1 represents the current stable API version.
package api

// Common request parameters

// PaginationRequest represents common pagination parameters
type PaginationRequest struct {
	Page     int    `json:"page" query:"page" validate:"min=1"`
	PageSize int    `json:"page_size" query:"page_size" validate:"min=1,max=100"`
	Sort     string `json:"sort" query:"sort" validate:"omitempty,oneof=asc desc"`
	SortBy   string `json:"sort_by" query:"sort_by"`
}

// DateRangeRequest represents a date range in requests
type DateRangeRequest struct {
	From string `json:"from" query:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to" query:"to" validate:"omitempty,datetime=2006-01-02"`
}

// Merge API Requests

// MergeCommitRequest selects which overlap weeks of a processed upload take
// the incoming values. Weeks not listed keep the master rows.
type MergeCommitRequest struct {
	OverwriteWeeks []int `json:"overwrite_weeks" validate:"omitempty,dive,isoweek"`
}

// History API Requests

// HistoryListRequest limits how many history records are returned
type HistoryListRequest struct {
	Limit int `json:"limit" query:"limit" validate:"omitempty,min=1,max=500"`
}
