// Package api contains API contract definitions for the neurphys service.
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

// Operation API Requests

// OperationStartRequest represents a request to start a pipeline operation
type OperationStartRequest struct {
	Mode       string                 `json:"mode" validate:"required,oneof=full_pipeline import process analyze export"`
	InputDir   string                 `json:"input_dir,omitempty"`
	OutputDir  string                 `json:"output_dir,omitempty"`
	Format     string                 `json:"format,omitempty" validate:"omitempty,oneof=auto abf prairieview"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// OperationCancelRequest represents a request to cancel a running operation
type OperationCancelRequest struct {
	OperationID string `json:"operation_id" param:"id" validate:"required"`
}

// OperationListRequest represents a request to list operations
type OperationListRequest struct {
	PaginationRequest
	Status string `json:"status" query:"status" validate:"omitempty,oneof=pending running completed failed cancelled"`
}

// Recording API Requests

// RecordingListRequest represents a request to list discovered recordings
type RecordingListRequest struct {
	PaginationRequest
	Format string `json:"format" query:"format" validate:"omitempty,oneof=abf prairieview"`
}

// RecordingDetailRequest represents a request for a single recording
type RecordingDetailRequest struct {
	Name string `json:"name" param:"name" validate:"required,filename"`
}

// SweepRequest represents a request for one sweep of a recording
type SweepRequest struct {
	Name   string `json:"name" param:"name" validate:"required,filename"`
	Number int    `json:"number" param:"number" validate:"required,min=1"`
}

// Report API Requests

// ReportListRequest represents a request to list generated reports
type ReportListRequest struct {
	PaginationRequest
	Kind string `json:"kind" query:"kind" validate:"omitempty,oneof=csv excel"`
}

// Health API Requests

// HealthCheckRequest represents a health check request
type HealthCheckRequest struct {
	Verbose bool     `json:"verbose" query:"verbose"`
	Include []string `json:"include" query:"include" validate:"omitempty,dive,oneof=data_dir reports_dir websocket operations"`
}
