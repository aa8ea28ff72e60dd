package store

import (
	"fmt"

	"guardpost-backend/internal/services"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres implements every persistence interface the services consume
// (ShiftStore, TimesheetStore, WelfareStore, SweeperStore, SiteRegistry,
// GuardResolver) over a single sqlx connection pool. All lifecycle mutations
// are conditional updates whose WHERE clause re-checks the precondition, so
// racing callers serialize on the database rather than in the application.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open connection pool
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// uniqueActiveShiftIndex is the partial unique index that forbids a guard
// holding two active shifts at once (see internal/database migrations)
const uniqueActiveShiftIndex = "idx_shifts_one_active_per_guard"

// isUniqueViolation reports whether err is a postgres 23505 on the named
// constraint (empty name matches any unique violation)
func isUniqueViolation(err error, constraint string) bool {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// transient tags a database failure as retryable for the service layer
func transient(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, services.ErrTransient)
}
