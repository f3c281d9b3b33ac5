package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// ScheduleType represents how a schedule fires over time
type ScheduleType string

const (
	ScheduleTypeInterval ScheduleType = "INTERVAL" // Fires every interval_seconds until paused or deleted
	ScheduleTypeWindow   ScheduleType = "WINDOW"   // Fires every interval_seconds for duration_seconds, then stops
)

// Valid reports whether the schedule type is one of the closed set.
func (t ScheduleType) Valid() bool {
	switch t {
	case ScheduleTypeInterval, ScheduleTypeWindow:
		return true
	}
	return false
}

// ScheduleStatus represents the lifecycle state of a schedule
type ScheduleStatus string

const (
	ScheduleStatusActive  ScheduleStatus = "ACTIVE"
	ScheduleStatusPaused  ScheduleStatus = "PAUSED"
	ScheduleStatusStopped ScheduleStatus = "STOPPED" // Terminal: a stopped schedule never resumes
)

// RunStatus represents the classified outcome of one firing
type RunStatus string

const (
	RunStatusSuccess         RunStatus = "SUCCESS"
	RunStatusFailed          RunStatus = "FAILED"
	RunStatusTimeout         RunStatus = "TIMEOUT"
	RunStatusDNSError        RunStatus = "DNS_ERROR"
	RunStatusConnectionError RunStatus = "CONNECTION_ERROR"
)

// ErrorType refines a non-success run outcome
type ErrorType string

const (
	ErrorTypeHTTP4xx        ErrorType = "http_4xx"
	ErrorTypeHTTP5xx        ErrorType = "http_5xx"
	ErrorTypeHTTPUnexpected ErrorType = "http_unexpected"
	ErrorTypeTimeout        ErrorType = "timeout"
	ErrorTypeDNS            ErrorType = "dns"
	ErrorTypeConnection     ErrorType = "connection"
	ErrorTypeUnknown        ErrorType = "unknown"
)

var validHTTPMethods = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "PATCH": {}, "DELETE": {}, "HEAD": {}, "OPTIONS": {},
}

// ValidHTTPMethod reports whether m (already upper-cased) is an accepted
// target method.
func ValidHTTPMethod(m string) bool {
	_, ok := validHTTPMethods[m]
	return ok
}

// HeaderMap is a header-name → value mapping persisted as a JSON object
// string. Malformed stored JSON scans as no headers rather than an error.
type HeaderMap map[string]string

// Value implements driver.Valuer.
func (m HeaderMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *HeaderMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		*m = nil
		return nil
	}
	var parsed map[string]string
	if err := json.Unmarshal(raw, &parsed); err != nil {
		*m = nil
		return nil
	}
	*m = parsed
	return nil
}

// Target represents a reusable HTTP endpoint definition
type Target struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null;uniqueIndex:idx_targets_name"`
	URL       string    `json:"url" gorm:"size:2048;not null"`
	Method    string    `json:"method" gorm:"size:16;not null;default:'GET'"`
	Headers   HeaderMap `json:"headers,omitempty" gorm:"type:text"`
	Body      *string   `json:"body,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (Target) TableName() string {
	return "targets"
}

// Schedule represents a firing rule bound to one target
type Schedule struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	Name            string         `json:"name" gorm:"size:255;not null;uniqueIndex:idx_schedules_name"`
	TargetID        uint           `json:"target_id" gorm:"not null;index:idx_schedules_target"`
	Target          *Target        `json:"target,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	ScheduleType    ScheduleType   `json:"schedule_type" gorm:"size:16;not null"`
	IntervalSeconds int            `json:"interval_seconds" gorm:"not null"`
	DurationSeconds *int           `json:"duration_seconds,omitempty"`
	Status          ScheduleStatus `json:"status" gorm:"size:16;not null;default:'ACTIVE';index:idx_schedules_status"`
	CreatedAt       time.Time      `json:"created_at" gorm:"autoCreateTime"`
	StartedAt       *time.Time     `json:"started_at,omitempty"` // First activation instant; null until the first window opens
	StoppedAt       *time.Time     `json:"stopped_at,omitempty"`
	JobHandle       *string        `json:"job_handle,omitempty" gorm:"size:64"` // Derived timer registration name, never authoritative
}

// TableName returns the table name for GORM
func (Schedule) TableName() string {
	return "schedules"
}

// Run represents one firing of one schedule: exactly one attempted request
// with its classified outcome and request/response snapshots
type Run struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	ScheduleID        uint       `json:"schedule_id" gorm:"not null;index:idx_runs_schedule"`
	Schedule          *Schedule  `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Status            RunStatus  `json:"status" gorm:"size:32;not null"`
	StartedAt         time.Time  `json:"started_at" gorm:"not null;index:idx_runs_started"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	StatusCode        *int       `json:"status_code,omitempty"`
	LatencyMS         *float64   `json:"latency_ms,omitempty" gorm:"column:latency_ms"`
	ResponseSizeBytes *int64     `json:"response_size_bytes,omitempty"`
	ErrorMessage      *string    `json:"error_message,omitempty" gorm:"type:text"`
	ErrorType         *ErrorType `json:"error_type,omitempty" gorm:"size:32"`
	RequestURL        string     `json:"request_url" gorm:"size:2048"`
	RequestMethod     string     `json:"request_method" gorm:"size:16"`
	RequestHeaders    HeaderMap  `json:"request_headers,omitempty" gorm:"type:text"`
	RequestBody       *string    `json:"request_body,omitempty" gorm:"type:text"`
	ResponseHeaders   HeaderMap  `json:"response_headers,omitempty" gorm:"type:text"`
	ResponseBody      *string    `json:"response_body,omitempty" gorm:"type:text"` // Truncated at 10,000 bytes; ResponseSizeBytes keeps the real length
	Attempts          []Attempt  `json:"attempts,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (Run) TableName() string {
	return "runs"
}

// Attempt represents a single request-try within a run. Exactly one per run
// in this version (attempt_number = 1); the table keeps the run contract
// stable if per-firing retries are added later.
type Attempt struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	RunID         uint       `json:"run_id" gorm:"not null;index:idx_attempts_run"`
	AttemptNumber int        `json:"attempt_number" gorm:"not null;default:1"`
	Status        RunStatus  `json:"status" gorm:"size:32;not null"`
	StartedAt     time.Time  `json:"started_at" gorm:"not null"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	StatusCode    *int       `json:"status_code,omitempty"`
	LatencyMS     *float64   `json:"latency_ms,omitempty" gorm:"column:latency_ms"`
	ErrorMessage  *string    `json:"error_message,omitempty" gorm:"type:text"`
	ErrorType     *ErrorType `json:"error_type,omitempty" gorm:"size:32"`
}

// TableName returns the table name for GORM
func (Attempt) TableName() string {
	return "attempts"
}

// CreateTargetRequest represents a request to register a new target
type CreateTargetRequest struct {
	Name    string            `json:"name" validate:"required,min=1,max=255"`
	URL     string            `json:"url" validate:"required,url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    *string           `json:"body,omitempty"`
}

// UpdateTargetRequest represents a partial target update
type UpdateTargetRequest struct {
	Name    *string            `json:"name,omitempty"`
	URL     *string            `json:"url,omitempty"`
	Method  *string            `json:"method,omitempty"`
	Headers *map[string]string `json:"headers,omitempty"`
	Body    *string            `json:"body,omitempty"`
}

// CreateScheduleRequest represents a request to create a new schedule
type CreateScheduleRequest struct {
	Name            string       `json:"name" validate:"required,min=1,max=255"`
	TargetID        uint         `json:"target_id" validate:"required"`
	ScheduleType    ScheduleType `json:"schedule_type" validate:"required,oneof=INTERVAL WINDOW"`
	IntervalSeconds int          `json:"interval_seconds" validate:"required,gt=0"`
	DurationSeconds *int         `json:"duration_seconds,omitempty"`
}

// UpdateScheduleRequest represents a partial schedule update
type UpdateScheduleRequest struct {
	Name            *string `json:"name,omitempty"`
	IntervalSeconds *int    `json:"interval_seconds,omitempty"`
	DurationSeconds *int    `json:"duration_seconds,omitempty"`
}

// RunFilter represents query filters for the run ledger
type RunFilter struct {
	ScheduleID *uint      `json:"schedule_id,omitempty"`
	Status     RunStatus  `json:"status,omitempty"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Page       int        `json:"page,omitempty"`
	PageSize   int        `json:"page_size,omitempty"`
}

// TargetListResult represents paginated target results
type TargetListResult struct {
	Targets    []Target `json:"targets"`
	TotalCount int64    `json:"total_count"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	HasMore    bool     `json:"has_more"`
}

// ScheduleListResult represents paginated schedule results
type ScheduleListResult struct {
	Schedules  []Schedule `json:"schedules"`
	TotalCount int64      `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	HasMore    bool       `json:"has_more"`
}

// RunListResult represents paginated run results
type RunListResult struct {
	Runs       []Run `json:"runs"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	HasMore    bool  `json:"has_more"`
}

// SystemMetrics summarizes the run ledger across all schedules
type SystemMetrics struct {
	TotalRuns        int64               `json:"total_runs"`
	RunsByStatus     map[RunStatus]int64 `json:"runs_by_status"`
	SuccessRate      float64             `json:"success_rate"`
	AverageLatencyMS *float64            `json:"average_latency_ms,omitempty"`
	RunsLastHour     int64               `json:"runs_last_hour"`
	ActiveSchedules  int64               `json:"active_schedules"`
}

// ScheduleMetrics summarizes the run ledger for a single schedule
type ScheduleMetrics struct {
	ScheduleID     uint           `json:"schedule_id"`
	Name           string         `json:"name"`
	Status         ScheduleStatus `json:"status"`
	TotalRuns      int64          `json:"total_runs"`
	SuccessfulRuns int64          `json:"successful_runs"`
	FailedRuns     int64          `json:"failed_runs"`
	LastRunAt      *time.Time     `json:"last_run_at,omitempty"`
}
