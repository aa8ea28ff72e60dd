package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("🔌 Connecting to postgres...")

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Println("❌ DATABASE CONNECTION FAILED AT sqlx.Connect()")
		log.Printf("   Error: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Println("❌ DATABASE CONNECTION FAILED AT Ping()")
		log.Printf("   Error: %v", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connection established")
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Create users table
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('guard', 'manager')),
			company_id TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create sites table (geofence center + radius + timezone)
		`CREATE TABLE IF NOT EXISTS sites (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			radius_meters DOUBLE PRECISION NOT NULL DEFAULT 100,
			timezone TEXT NOT NULL DEFAULT 'UTC',
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create shifts table
		`CREATE TABLE IF NOT EXISTS shifts (
			id TEXT PRIMARY KEY,
			guard_id TEXT NOT NULL,
			site_id TEXT NOT NULL,
			customer_id TEXT,
			company_id TEXT NOT NULL,
			scheduled_start BIGINT NOT NULL,
			scheduled_end BIGINT NOT NULL,
			break_minutes INT NOT NULL DEFAULT 0,
			status TEXT NOT NULL CHECK(status IN ('draft', 'published', 'accepted', 'rejected', 'active', 'completed', 'missed', 'cancelled')),
			actual_start BIGINT,
			actual_end BIGINT,
			clock_in_latitude DOUBLE PRECISION,
			clock_in_longitude DOUBLE PRECISION,
			clock_out_latitude DOUBLE PRECISION,
			clock_out_longitude DOUBLE PRECISION,
			geofence_verified BOOLEAN,
			exit_geofence_verified BOOLEAN,
			geofence_violation BOOLEAN NOT NULL DEFAULT FALSE,
			punctuality TEXT NOT NULL DEFAULT '' CHECK(punctuality IN ('', 'early', 'on_time', 'late')),
			rejection_reason TEXT,
			accepted_at BIGINT,
			welfare_state TEXT NOT NULL DEFAULT 'disabled' CHECK(welfare_state IN ('disabled', 'pending', 'overdue', 'alert')),
			welfare_interval_minutes INT NOT NULL DEFAULT 0,
			welfare_next_check_due BIGINT,
			timesheet_generated BOOLEAN NOT NULL DEFAULT FALSE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (guard_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (site_id) REFERENCES sites(id) ON DELETE CASCADE,
			CHECK (scheduled_end > scheduled_start),
			CHECK (break_minutes >= 0)
		)`,

		// One active shift per guard, enforced by the database so racing
		// check-ins can never both win
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_shifts_one_active_per_guard
			ON shifts(guard_id) WHERE status = 'active'`,

		// Create timesheets table; UNIQUE(shift_id) backs the exactly-once
		// derivation contract
		`CREATE TABLE IF NOT EXISTS timesheets (
			id TEXT PRIMARY KEY,
			shift_id TEXT NOT NULL UNIQUE,
			guard_id TEXT NOT NULL,
			site_id TEXT NOT NULL,
			company_id TEXT NOT NULL,
			scheduled_start BIGINT NOT NULL,
			scheduled_end BIGINT NOT NULL,
			actual_start BIGINT NOT NULL,
			actual_end BIGINT NOT NULL,
			break_minutes INT NOT NULL DEFAULT 0,
			payable_minutes INT NOT NULL CHECK(payable_minutes >= 0),
			status TEXT NOT NULL DEFAULT 'pending',
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (shift_id) REFERENCES shifts(id) ON DELETE CASCADE,
			FOREIGN KEY (guard_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create welfare_events table (append-only audit trail)
		`CREATE TABLE IF NOT EXISTS welfare_events (
			id SERIAL PRIMARY KEY,
			shift_id TEXT NOT NULL,
			guard_id TEXT NOT NULL,
			from_state TEXT NOT NULL,
			to_state TEXT NOT NULL,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			note TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (shift_id) REFERENCES shifts(id) ON DELETE CASCADE,
			FOREIGN KEY (guard_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create FCM tokens table
		`CREATE TABLE IF NOT EXISTS fcm_tokens (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create guard_current_location table (latest position per guard,
		// updated via UPSERT from the websocket; the live broadcast is the
		// primary tracking channel, this row is the fallback for reconnects)
		`CREATE TABLE IF NOT EXISTS guard_current_location (
			guard_id TEXT PRIMARY KEY,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			accuracy DOUBLE PRECISION,
			shift_id TEXT,
			timestamp BIGINT NOT NULL,
			is_connected BOOLEAN NOT NULL DEFAULT TRUE,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (guard_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (shift_id) REFERENCES shifts(id) ON DELETE SET NULL
		)`,

		// Create indexes
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_shifts_guard_id ON shifts(guard_id)`,
		`CREATE INDEX IF NOT EXISTS idx_shifts_site_id ON shifts(site_id)`,
		`CREATE INDEX IF NOT EXISTS idx_shifts_status ON shifts(status)`,
		`CREATE INDEX IF NOT EXISTS idx_shifts_scheduled_start ON shifts(scheduled_start)`,
		`CREATE INDEX IF NOT EXISTS idx_shifts_welfare_due ON shifts(welfare_next_check_due) WHERE status = 'active' AND welfare_state <> 'alert'`,
		`CREATE INDEX IF NOT EXISTS idx_timesheets_guard_id ON timesheets(guard_id)`,
		`CREATE INDEX IF NOT EXISTS idx_welfare_events_shift_id ON welfare_events(shift_id)`,
		`CREATE INDEX IF NOT EXISTS idx_fcm_tokens_user_id ON fcm_tokens(user_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	log.Println("✓ Database migrations completed")
	return nil
}
