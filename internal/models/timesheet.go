package models

// TimesheetStatus is the downstream approval state of a timesheet.
// This service only ever writes 'pending'; approval/payroll live elsewhere.
type TimesheetStatus string

const (
	TimesheetStatusPending TimesheetStatus = "pending"
)

// Timesheet is the immutable payroll-facing record derived from a completed shift.
// Exactly one exists per shift, enforced by a UNIQUE constraint on shift_id.
type Timesheet struct {
	ID             string          `json:"id" db:"id"`
	ShiftID        string          `json:"shift_id" db:"shift_id"`
	GuardID        string          `json:"guard_id" db:"guard_id"`
	SiteID         string          `json:"site_id" db:"site_id"`
	CompanyID      string          `json:"company_id" db:"company_id"`
	ScheduledStart int64           `json:"scheduled_start" db:"scheduled_start"`
	ScheduledEnd   int64           `json:"scheduled_end" db:"scheduled_end"`
	ActualStart    int64           `json:"actual_start" db:"actual_start"`
	ActualEnd      int64           `json:"actual_end" db:"actual_end"`
	BreakMinutes   int             `json:"break_minutes" db:"break_minutes"`
	PayableMinutes int             `json:"payable_minutes" db:"payable_minutes"`
	Status         TimesheetStatus `json:"status" db:"status"`
	CreatedAt      int64           `json:"created_at" db:"created_at"`
}
