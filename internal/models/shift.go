package models

import (
	"database/sql"
	"time"
)

// ShiftStatus represents the current status of a shift
type ShiftStatus string

const (
	ShiftStatusDraft     ShiftStatus = "draft"     // Created, not yet visible to the guard
	ShiftStatusPublished ShiftStatus = "published" // Offered to the assigned guard
	ShiftStatusAccepted  ShiftStatus = "accepted"  // Guard confirmed the assignment
	ShiftStatusRejected  ShiftStatus = "rejected"  // Guard declined (terminal)
	ShiftStatusActive    ShiftStatus = "active"    // Guard checked in, on site
	ShiftStatusCompleted ShiftStatus = "completed" // Guard checked out (terminal)
	ShiftStatusMissed    ShiftStatus = "missed"    // Never started, swept past grace (terminal)
	ShiftStatusCancelled ShiftStatus = "cancelled" // Cancelled by manager (terminal)
)

// Punctuality classifies a check-in against the scheduled start
type Punctuality string

const (
	PunctualityEarly  Punctuality = "early"
	PunctualityOnTime Punctuality = "on_time"
	PunctualityLate   Punctuality = "late"
)

// WelfareState is the safety-check sub-state of an active shift
type WelfareState string

const (
	WelfareDisabled WelfareState = "disabled" // No welfare checks for this shift
	WelfarePending  WelfareState = "pending"  // Waiting for the next check to come due
	WelfareOverdue  WelfareState = "overdue"  // Prompted, guard has not confirmed yet
	WelfareAlert    WelfareState = "alert"    // Escalation exhausted, alarm raised (terminal)
)

// Shift represents one scheduled work assignment for a guard
type Shift struct {
	ID                     string       `json:"id" db:"id"`
	GuardID                string       `json:"guard_id" db:"guard_id"`
	SiteID                 string       `json:"site_id" db:"site_id"`
	CustomerID             *string      `json:"customer_id" db:"customer_id"`
	CompanyID              string       `json:"company_id" db:"company_id"`
	ScheduledStart         int64        `json:"scheduled_start" db:"scheduled_start"`
	ScheduledEnd           int64        `json:"scheduled_end" db:"scheduled_end"`
	BreakMinutes           int          `json:"break_minutes" db:"break_minutes"`
	Status                 ShiftStatus  `json:"status" db:"status"`
	ActualStart            *int64       `json:"actual_start" db:"actual_start"`
	ActualEnd              *int64       `json:"actual_end" db:"actual_end"`
	ClockInLatitude        *float64     `json:"clock_in_latitude" db:"clock_in_latitude"`
	ClockInLongitude       *float64     `json:"clock_in_longitude" db:"clock_in_longitude"`
	ClockOutLatitude       *float64     `json:"clock_out_latitude" db:"clock_out_latitude"`
	ClockOutLongitude      *float64     `json:"clock_out_longitude" db:"clock_out_longitude"`
	GeofenceVerified       *bool        `json:"geofence_verified" db:"geofence_verified"`
	ExitGeofenceVerified   *bool        `json:"exit_geofence_verified" db:"exit_geofence_verified"`
	GeofenceViolation      bool         `json:"geofence_violation" db:"geofence_violation"`
	Punctuality            Punctuality  `json:"punctuality,omitempty" db:"punctuality"`
	RejectionReason        *string      `json:"rejection_reason" db:"rejection_reason"`
	AcceptedAt             *int64       `json:"accepted_at" db:"accepted_at"`
	WelfareState           WelfareState `json:"welfare_state" db:"welfare_state"`
	WelfareIntervalMinutes int          `json:"welfare_interval_minutes" db:"welfare_interval_minutes"`
	WelfareNextCheckDue    *int64       `json:"welfare_next_check_due" db:"welfare_next_check_due"`
	TimesheetGenerated     bool         `json:"timesheet_generated" db:"timesheet_generated"`
	CreatedAt              int64        `json:"created_at" db:"created_at"`
	UpdatedAt              int64        `json:"updated_at" db:"updated_at"`
}

// WelfareEnabled reports whether this shift participates in welfare monitoring
func (s *Shift) WelfareEnabled() bool {
	return s.WelfareIntervalMinutes > 0
}

// IsTerminal reports whether the shift can no longer transition
func (s *Shift) IsTerminal() bool {
	switch s.Status {
	case ShiftStatusRejected, ShiftStatusCompleted, ShiftStatusMissed, ShiftStatusCancelled:
		return true
	}
	return false
}

// ScheduledDuration returns the rostered length of the shift
func (s *Shift) ScheduledDuration() time.Duration {
	return time.Duration(s.ScheduledEnd-s.ScheduledStart) * time.Second
}

// ToNullInt64 converts a pointer to int64 to sql.NullInt64
func ToNullInt64(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

// FromNullInt64 converts sql.NullInt64 to pointer to int64
func FromNullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}

// ToNullString converts a pointer to string to sql.NullString
func ToNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

// FromNullString converts sql.NullString to pointer to string
func FromNullString(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	return &n.String
}
