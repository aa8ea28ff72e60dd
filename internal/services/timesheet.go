package services

import (
	"context"
	"time"

	"guardpost-backend/internal/models"

	"github.com/google/uuid"
)

// TimesheetDeriver converts a completed shift into its payroll-facing
// timesheet exactly once. Idempotence lives in the store transaction: the
// shift row is locked, the derivation flag re-checked, and the insert plus
// flag update commit together or not at all. Concurrent or repeated calls
// for the same shift yield one timesheet and (created=false) no-ops.
type TimesheetDeriver struct {
	store TimesheetStore
}

// NewTimesheetDeriver returns a deriver over the given store
func NewTimesheetDeriver(store TimesheetStore) *TimesheetDeriver {
	return &TimesheetDeriver{store: store}
}

// Derive produces the timesheet for a completed shift. created reports
// whether this call inserted it; false with a nil error means another call
// already did, which is not a failure.
func (d *TimesheetDeriver) Derive(ctx context.Context, shiftID string) (*models.Timesheet, bool, error) {
	ts, created, err := d.store.DeriveTimesheet(ctx, shiftID, func(shift *models.Shift) *models.Timesheet {
		var actualStart, actualEnd int64
		if shift.ActualStart != nil {
			actualStart = *shift.ActualStart
		}
		if shift.ActualEnd != nil {
			actualEnd = *shift.ActualEnd
		}
		return &models.Timesheet{
			ID:             uuid.New().String(),
			ShiftID:        shift.ID,
			GuardID:        shift.GuardID,
			SiteID:         shift.SiteID,
			CompanyID:      shift.CompanyID,
			ScheduledStart: shift.ScheduledStart,
			ScheduledEnd:   shift.ScheduledEnd,
			ActualStart:    actualStart,
			ActualEnd:      actualEnd,
			BreakMinutes:   shift.BreakMinutes,
			PayableMinutes: PayableMinutes(actualStart, actualEnd, shift.BreakMinutes),
			Status:         models.TimesheetStatusPending,
			CreatedAt:      time.Now().Unix(),
		}
	})
	if err != nil {
		return nil, false, err
	}
	return ts, created, nil
}
