package store

import (
	"context"
	"time"

	"guardpost-backend/internal/models"
	"guardpost-backend/internal/services"

	"github.com/lib/pq"
)

// ListWelfareDue returns active, welfare-enabled shifts whose next check is
// due at or before now and which have not yet escalated to alert
func (p *Postgres) ListWelfareDue(ctx context.Context, now int64) ([]models.Shift, error) {
	var shifts []models.Shift
	query := `SELECT * FROM shifts
	          WHERE status = 'active'
	          AND welfare_interval_minutes > 0
	          AND welfare_state <> 'alert'
	          AND welfare_next_check_due IS NOT NULL
	          AND welfare_next_check_due <= $1
	          ORDER BY welfare_next_check_due ASC`
	if err := p.db.SelectContext(ctx, &shifts, query, now); err != nil {
		return nil, transient("failed to list due welfare checks", err)
	}
	return shifts, nil
}

// TransitionWelfare conditionally moves the welfare sub-state. The predicate
// requires the shift to still be active and the current state to be one of
// from; alert is excluded unconditionally so the alarm can never fire twice.
func (p *Postgres) TransitionWelfare(ctx context.Context, shiftID string, from []models.WelfareState, to models.WelfareState, nextDue *int64, now int64) (bool, error) {
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}

	query := `UPDATE shifts
	          SET welfare_state = $2,
	              welfare_next_check_due = COALESCE($3, welfare_next_check_due),
	              updated_at = $4
	          WHERE id = $1
	          AND status = 'active'
	          AND welfare_state <> 'alert'
	          AND welfare_state = ANY($5)`

	result, err := p.db.ExecContext(ctx, query,
		shiftID, to, models.ToNullInt64(nextDue), now, pq.Array(states))
	if err != nil {
		return false, transient("failed to transition welfare state", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// AppendWelfareEvent records one audit entry; the trail is append-only
func (p *Postgres) AppendWelfareEvent(ctx context.Context, ev *models.WelfareEvent) error {
	query := `INSERT INTO welfare_events (
		shift_id, guard_id, from_state, to_state, latitude, longitude, note, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	createdAt := ev.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().Unix()
	}

	_, err := p.db.ExecContext(ctx, query,
		ev.ShiftID, ev.GuardID, ev.FromState, ev.ToState,
		ev.Latitude, ev.Longitude, ev.Note, createdAt)
	if err != nil {
		return transient("failed to append welfare event", err)
	}
	return nil
}

// WelfareEventsForShift returns the audit trail for one shift, oldest first
func (p *Postgres) WelfareEventsForShift(ctx context.Context, shiftID string) ([]models.WelfareEvent, error) {
	var events []models.WelfareEvent
	query := `SELECT * FROM welfare_events
	          WHERE shift_id = $1
	          ORDER BY created_at ASC, id ASC`
	if err := p.db.SelectContext(ctx, &events, query, shiftID); err != nil {
		return nil, transient("failed to list welfare events", err)
	}
	return events, nil
}

// ListMissedCandidates returns pre-active shifts whose scheduled start is
// before cutoff and which never recorded an actual start
func (p *Postgres) ListMissedCandidates(ctx context.Context, cutoff int64) ([]models.Shift, error) {
	var shifts []models.Shift
	query := `SELECT * FROM shifts
	          WHERE status IN ('draft', 'published', 'accepted')
	          AND scheduled_start < $1
	          AND actual_start IS NULL
	          ORDER BY scheduled_start ASC`
	if err := p.db.SelectContext(ctx, &shifts, query, cutoff); err != nil {
		return nil, transient("failed to list missed candidates", err)
	}
	return shifts, nil
}

// MarkMissed transitions a candidate to missed. The predicate re-checks both
// the status and "no actual start" at write time, so a check-in racing the
// sweep keeps the shift: the conditional update simply matches zero rows.
func (p *Postgres) MarkMissed(ctx context.Context, shiftID string, now int64) (bool, error) {
	query := `UPDATE shifts
	          SET status = 'missed',
	              updated_at = $2
	          WHERE id = $1
	          AND status IN ('draft', 'published', 'accepted')
	          AND actual_start IS NULL`

	result, err := p.db.ExecContext(ctx, query, shiftID, now)
	if err != nil {
		return false, transient("failed to mark shift missed", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

var _ services.WelfareStore = (*Postgres)(nil)
var _ services.SweeperStore = (*Postgres)(nil)
