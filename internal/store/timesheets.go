package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"guardpost-backend/internal/models"
	"guardpost-backend/internal/services"
)

// DeriveTimesheet performs the exactly-once derivation inside a single
// transaction: lock the shift row, re-check status and the derivation flag,
// insert the timesheet, flip the flag, commit. Any failure rolls the whole
// thing back, so the flag is never set without a matching timesheet and a
// retry is always safe. The UNIQUE constraint on timesheets(shift_id)
// backstops duplicates even if the flag were ever out of sync.
func (p *Postgres) DeriveTimesheet(ctx context.Context, shiftID string, build func(*models.Shift) *models.Timesheet) (*models.Timesheet, bool, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, transient("failed to begin timesheet transaction", err)
	}
	defer tx.Rollback()

	var shift models.Shift
	err = tx.GetContext(ctx, &shift, `SELECT * FROM shifts WHERE id = $1 FOR UPDATE`, shiftID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("%w: shift %s", services.ErrNotFound, shiftID)
	}
	if err != nil {
		return nil, false, transient("failed to lock shift for derivation", err)
	}

	if shift.TimesheetGenerated {
		return nil, false, nil
	}
	if shift.Status != models.ShiftStatusCompleted {
		return nil, false, fmt.Errorf("%w: cannot derive timesheet from shift in status %s", services.ErrConflict, shift.Status)
	}

	ts := build(&shift)

	insertQuery := `INSERT INTO timesheets (
		id, shift_id, guard_id, site_id, company_id,
		scheduled_start, scheduled_end, actual_start, actual_end,
		break_minutes, payable_minutes, status, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = tx.ExecContext(ctx, insertQuery,
		ts.ID, ts.ShiftID, ts.GuardID, ts.SiteID, ts.CompanyID,
		ts.ScheduledStart, ts.ScheduledEnd, ts.ActualStart, ts.ActualEnd,
		ts.BreakMinutes, ts.PayableMinutes, ts.Status, ts.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			// Another transaction derived it first.
			return nil, false, nil
		}
		return nil, false, transient("failed to insert timesheet", err)
	}

	flagQuery := `UPDATE shifts
	              SET timesheet_generated = TRUE,
	                  updated_at = $2
	              WHERE id = $1
	              AND timesheet_generated = FALSE`
	result, err := tx.ExecContext(ctx, flagQuery, shiftID, ts.CreatedAt)
	if err != nil {
		return nil, false, transient("failed to set derivation flag", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		// The row lock makes this unreachable, but never commit a timesheet
		// without its flag.
		return nil, false, fmt.Errorf("%w: derivation flag already set for shift %s", services.ErrConflict, shiftID)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, transient("failed to commit timesheet transaction", err)
	}
	return ts, true, nil
}

// GetTimesheetByShift returns the timesheet derived from a shift, if any
func (p *Postgres) GetTimesheetByShift(ctx context.Context, shiftID string) (*models.Timesheet, error) {
	var ts models.Timesheet
	err := p.db.GetContext(ctx, &ts, `SELECT * FROM timesheets WHERE shift_id = $1`, shiftID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no timesheet for shift %s", services.ErrNotFound, shiftID)
	}
	if err != nil {
		return nil, transient("failed to load timesheet", err)
	}
	return &ts, nil
}

// TimesheetsForGuard returns a guard's timesheets, newest first
func (p *Postgres) TimesheetsForGuard(ctx context.Context, guardID string, limit int) ([]models.Timesheet, error) {
	if limit <= 0 {
		limit = 50
	}
	var sheets []models.Timesheet
	query := `SELECT * FROM timesheets
	          WHERE guard_id = $1
	          ORDER BY created_at DESC
	          LIMIT $2`
	if err := p.db.SelectContext(ctx, &sheets, query, guardID, limit); err != nil {
		return nil, transient("failed to list timesheets", err)
	}
	return sheets, nil
}

var _ services.TimesheetStore = (*Postgres)(nil)
var _ services.ShiftStore = (*Postgres)(nil)
