package services

import (
	"context"

	"guardpost-backend/internal/models"
)

// ShiftStore is the persistence boundary for shift lifecycle transitions.
// Every mutation is an atomic conditional update: the implementation must
// re-check the stated precondition at write time and report false when the
// row no longer matches, so racing callers serialize on the store rather
// than on application locks.
type ShiftStore interface {
	GetShift(ctx context.Context, id string) (*models.Shift, error)

	// MarkAccepted transitions draft/published -> accepted
	MarkAccepted(ctx context.Context, shiftID string, acceptedAt int64) (bool, error)

	// MarkRejected transitions draft/published -> rejected with a reason
	MarkRejected(ctx context.Context, shiftID, reason string, rejectedAt int64) (bool, error)

	// ActivateShift transitions draft/published/accepted -> active and records
	// check-in facts. Returns ErrGuardHasActiveShift when the guard already
	// holds an active shift (unique-index enforced) and ErrConflict when the
	// status precondition no longer holds.
	ActivateShift(ctx context.Context, p ActivateShiftParams) error

	// CompleteShift transitions active -> completed and records check-out facts
	CompleteShift(ctx context.Context, p CompleteShiftParams) (bool, error)
}

// ActivateShiftParams carries everything a check-in writes in one atomic update
type ActivateShiftParams struct {
	ShiftID             string
	GuardID             string
	ActualStart         int64
	Latitude            float64
	Longitude           float64
	GeofenceVerified    bool
	GeofenceViolation   bool
	Punctuality         models.Punctuality
	WelfareState        models.WelfareState
	WelfareNextCheckDue *int64
}

// CompleteShiftParams carries everything a check-out writes in one atomic update
type CompleteShiftParams struct {
	ShiftID              string
	ActualEnd            int64
	Latitude             *float64
	Longitude            *float64
	ExitGeofenceVerified *bool
	ExitViolation        bool
}

// TimesheetStore performs the exactly-once timesheet derivation. The build
// callback runs inside the transaction against the row-locked shift; created
// is false when a timesheet already exists for the shift.
type TimesheetStore interface {
	DeriveTimesheet(ctx context.Context, shiftID string, build func(*models.Shift) *models.Timesheet) (ts *models.Timesheet, created bool, err error)
}

// WelfareStore is the persistence boundary for the welfare monitor
type WelfareStore interface {
	// ListWelfareDue returns active, welfare-enabled shifts whose next check
	// is due at or before now and whose sub-state is not yet alert
	ListWelfareDue(ctx context.Context, now int64) ([]models.Shift, error)

	// TransitionWelfare conditionally moves the welfare sub-state. The
	// predicate requires status = active and the current state to be one of
	// from (and never alert), so a crashed scan can re-run without
	// double-escalating. nextDue, when non-nil, replaces the due instant.
	TransitionWelfare(ctx context.Context, shiftID string, from []models.WelfareState, to models.WelfareState, nextDue *int64, now int64) (bool, error)

	// AppendWelfareEvent records one audit entry; the trail is append-only
	AppendWelfareEvent(ctx context.Context, ev *models.WelfareEvent) error
}

// SweeperStore is the persistence boundary for the missed-shift sweeper
type SweeperStore interface {
	// ListMissedCandidates returns pre-active shifts scheduled to start
	// before cutoff with no recorded actual start
	ListMissedCandidates(ctx context.Context, cutoff int64) ([]models.Shift, error)

	// MarkMissed transitions a candidate to missed. The predicate re-checks
	// "no actual start" at write time so a racing check-in wins.
	MarkMissed(ctx context.Context, shiftID string, now int64) (bool, error)
}

// SiteRegistry resolves the geofence and timezone for a site
type SiteRegistry interface {
	GetSite(ctx context.Context, id string) (*models.Site, error)
}

// GuardResolver resolves guard identity and notification tokens
type GuardResolver interface {
	GetGuard(ctx context.Context, id string) (*models.User, error)
	GuardTokens(ctx context.Context, guardID string) ([]string, error)
}

// EventPublisher fans state changes out to connected observers in real time.
// Delivery is at-least-once and fire-and-forget; the core never waits on it.
type EventPublisher interface {
	Emit(topic string, payload interface{})
	EmitToGuard(guardID, topic string, payload interface{})
}

// Notifier delivers push notifications. Failures are logged by callers and
// never propagated as lifecycle failures.
type Notifier interface {
	Notify(tokens []string, title, body string, data map[string]string) error
}
