package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"guardpost-backend/internal/models"
	"guardpost-backend/internal/services"
)

// GetShift loads one shift by id
func (p *Postgres) GetShift(ctx context.Context, id string) (*models.Shift, error) {
	var shift models.Shift
	err := p.db.GetContext(ctx, &shift, `SELECT * FROM shifts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: shift %s", services.ErrNotFound, id)
	}
	if err != nil {
		return nil, transient("failed to load shift", err)
	}
	return &shift, nil
}

// ShiftsForGuard returns a guard's shifts, newest scheduled first
func (p *Postgres) ShiftsForGuard(ctx context.Context, guardID string, limit int) ([]models.Shift, error) {
	if limit <= 0 {
		limit = 50
	}
	var shifts []models.Shift
	query := `SELECT * FROM shifts
	          WHERE guard_id = $1
	          ORDER BY scheduled_start DESC
	          LIMIT $2`
	if err := p.db.SelectContext(ctx, &shifts, query, guardID, limit); err != nil {
		return nil, transient("failed to list shifts", err)
	}
	return shifts, nil
}

// CurrentShiftForGuard returns the guard's active shift, or the next one
// awaiting action, preferring active > accepted > published
func (p *Postgres) CurrentShiftForGuard(ctx context.Context, guardID string) (*models.Shift, error) {
	var shift models.Shift
	query := `SELECT * FROM shifts
	          WHERE guard_id = $1
	          AND status IN ('active', 'accepted', 'published')
	          ORDER BY
	            CASE status
	              WHEN 'active' THEN 1
	              WHEN 'accepted' THEN 2
	              WHEN 'published' THEN 3
	            END ASC,
	            scheduled_start ASC
	          LIMIT 1`
	err := p.db.GetContext(ctx, &shift, query, guardID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no current shift for guard %s", services.ErrNotFound, guardID)
	}
	if err != nil {
		return nil, transient("failed to load current shift", err)
	}
	return &shift, nil
}

// CreateShift inserts a new assignment in draft or published status
func (p *Postgres) CreateShift(ctx context.Context, shift *models.Shift) error {
	query := `INSERT INTO shifts (
		id, guard_id, site_id, customer_id, company_id,
		scheduled_start, scheduled_end, break_minutes, status,
		welfare_state, welfare_interval_minutes, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := p.db.ExecContext(ctx, query,
		shift.ID, shift.GuardID, shift.SiteID, shift.CustomerID, shift.CompanyID,
		shift.ScheduledStart, shift.ScheduledEnd, shift.BreakMinutes, shift.Status,
		shift.WelfareState, shift.WelfareIntervalMinutes, shift.CreatedAt, shift.UpdatedAt,
	)
	if err != nil {
		return transient("failed to create shift", err)
	}
	return nil
}

// MarkAccepted transitions draft/published -> accepted
func (p *Postgres) MarkAccepted(ctx context.Context, shiftID string, acceptedAt int64) (bool, error) {
	query := `UPDATE shifts
	          SET status = 'accepted',
	              accepted_at = $2,
	              updated_at = $3
	          WHERE id = $1
	          AND status IN ('draft', 'published')`

	result, err := p.db.ExecContext(ctx, query, shiftID, acceptedAt, time.Now().Unix())
	if err != nil {
		return false, transient("failed to accept shift", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// MarkRejected transitions draft/published -> rejected
func (p *Postgres) MarkRejected(ctx context.Context, shiftID, reason string, rejectedAt int64) (bool, error) {
	query := `UPDATE shifts
	          SET status = 'rejected',
	              rejection_reason = $2,
	              updated_at = $3
	          WHERE id = $1
	          AND status IN ('draft', 'published')`

	result, err := p.db.ExecContext(ctx, query, shiftID, reason, rejectedAt)
	if err != nil {
		return false, transient("failed to reject shift", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// ActivateShift transitions a pre-active shift to active in one conditional
// update. The partial unique index on shifts(guard_id) WHERE status='active'
// makes a second simultaneous activation for the same guard fail with a
// unique violation no matter how the callers interleave.
func (p *Postgres) ActivateShift(ctx context.Context, params services.ActivateShiftParams) error {
	query := `UPDATE shifts
	          SET status = 'active',
	              actual_start = $3,
	              clock_in_latitude = $4,
	              clock_in_longitude = $5,
	              geofence_verified = $6,
	              geofence_violation = $7,
	              punctuality = $8,
	              welfare_state = $9,
	              welfare_next_check_due = $10,
	              updated_at = $11
	          WHERE id = $1
	          AND guard_id = $2
	          AND status IN ('draft', 'published', 'accepted')`

	result, err := p.db.ExecContext(ctx, query,
		params.ShiftID, params.GuardID, params.ActualStart,
		params.Latitude, params.Longitude,
		params.GeofenceVerified, params.GeofenceViolation, params.Punctuality,
		params.WelfareState, models.ToNullInt64(params.WelfareNextCheckDue),
		time.Now().Unix(),
	)
	if err != nil {
		if isUniqueViolation(err, uniqueActiveShiftIndex) {
			return services.ErrGuardHasActiveShift
		}
		return transient("failed to activate shift", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: shift %s is not in a pre-active status", services.ErrConflict, params.ShiftID)
	}
	return nil
}

// CompleteShift transitions active -> completed
func (p *Postgres) CompleteShift(ctx context.Context, params services.CompleteShiftParams) (bool, error) {
	query := `UPDATE shifts
	          SET status = 'completed',
	              actual_end = $2,
	              clock_out_latitude = $3,
	              clock_out_longitude = $4,
	              exit_geofence_verified = $5,
	              geofence_violation = geofence_violation OR $6,
	              updated_at = $7
	          WHERE id = $1
	          AND status = 'active'`

	var lat, lng interface{}
	if params.Latitude != nil {
		lat = *params.Latitude
	}
	if params.Longitude != nil {
		lng = *params.Longitude
	}
	var exitVerified interface{}
	if params.ExitGeofenceVerified != nil {
		exitVerified = *params.ExitGeofenceVerified
	}

	result, err := p.db.ExecContext(ctx, query,
		params.ShiftID, params.ActualEnd, lat, lng, exitVerified,
		params.ExitViolation, time.Now().Unix(),
	)
	if err != nil {
		return false, transient("failed to complete shift", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// CancelShift transitions a pre-active shift to cancelled
func (p *Postgres) CancelShift(ctx context.Context, shiftID string, now int64) (bool, error) {
	query := `UPDATE shifts
	          SET status = 'cancelled',
	              updated_at = $2
	          WHERE id = $1
	          AND status IN ('draft', 'published', 'accepted')`

	result, err := p.db.ExecContext(ctx, query, shiftID, now)
	if err != nil {
		return false, transient("failed to cancel shift", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// ListActiveGuards returns every guard currently on an active shift with
// their last known location, for the manager dashboard
func (p *Postgres) ListActiveGuards(ctx context.Context) ([]models.GuardStatus, error) {
	var rows []struct {
		GuardID      string              `db:"guard_id"`
		Name         string              `db:"name"`
		ShiftID      string              `db:"shift_id"`
		SiteID       string              `db:"site_id"`
		Status       models.ShiftStatus  `db:"status"`
		WelfareState models.WelfareState `db:"welfare_state"`
		Latitude     *float64            `db:"latitude"`
		Longitude    *float64            `db:"longitude"`
		Timestamp    *int64              `db:"timestamp"`
		Connected    *bool               `db:"is_connected"`
	}

	query := `SELECT s.guard_id, u.name, s.id AS shift_id, s.site_id, s.status, s.welfare_state,
	                 l.latitude, l.longitude, l.timestamp, l.is_connected
	          FROM shifts s
	          JOIN users u ON u.id = s.guard_id
	          LEFT JOIN guard_current_location l ON l.guard_id = s.guard_id
	          WHERE s.status = 'active'
	          ORDER BY u.name ASC`

	if err := p.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, transient("failed to list active guards", err)
	}

	statuses := make([]models.GuardStatus, 0, len(rows))
	for _, row := range rows {
		shiftID := row.ShiftID
		siteID := row.SiteID
		status := models.GuardStatus{
			GuardID:      row.GuardID,
			Name:         row.Name,
			Status:       row.Status,
			ShiftID:      &shiftID,
			SiteID:       &siteID,
			WelfareState: row.WelfareState,
		}
		if row.Latitude != nil && row.Longitude != nil {
			loc := &models.GuardLocation{
				GuardID:   row.GuardID,
				Latitude:  *row.Latitude,
				Longitude: *row.Longitude,
			}
			if row.Timestamp != nil {
				loc.Timestamp = *row.Timestamp
			}
			if row.Connected != nil {
				loc.Connected = *row.Connected
			}
			status.LastLocation = loc
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
