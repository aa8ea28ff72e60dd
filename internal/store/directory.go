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

// GetSite resolves a site's geofence and timezone
func (p *Postgres) GetSite(ctx context.Context, id string) (*models.Site, error) {
	var site models.Site
	err := p.db.GetContext(ctx, &site, `SELECT * FROM sites WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: site %s", services.ErrNotFound, id)
	}
	if err != nil {
		return nil, transient("failed to load site", err)
	}
	return &site, nil
}

// ListSites returns all sites, for the manager dashboard
func (p *Postgres) ListSites(ctx context.Context) ([]models.Site, error) {
	var sites []models.Site
	if err := p.db.SelectContext(ctx, &sites, `SELECT * FROM sites ORDER BY name ASC`); err != nil {
		return nil, transient("failed to list sites", err)
	}
	return sites, nil
}

// GetGuard resolves a user in the guard role
func (p *Postgres) GetGuard(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := p.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1 AND role = 'guard'`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: guard %s", services.ErrNotFound, id)
	}
	if err != nil {
		return nil, transient("failed to load guard", err)
	}
	return &user, nil
}

// GuardTokens returns every registered FCM token for a guard
func (p *Postgres) GuardTokens(ctx context.Context, guardID string) ([]string, error) {
	var tokens []string
	query := `SELECT token FROM fcm_tokens WHERE user_id = $1`
	if err := p.db.SelectContext(ctx, &tokens, query, guardID); err != nil {
		return nil, transient("failed to load FCM tokens", err)
	}
	return tokens, nil
}

// SaveFCMToken registers (or refreshes) a device token for a user
func (p *Postgres) SaveFCMToken(ctx context.Context, userID, token, deviceType string) error {
	now := time.Now().Unix()
	query := `INSERT INTO fcm_tokens (user_id, token, device_type, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $4)
	          ON CONFLICT (token) DO UPDATE
	          SET user_id = EXCLUDED.user_id,
	              device_type = EXCLUDED.device_type,
	              updated_at = EXCLUDED.updated_at`
	if _, err := p.db.ExecContext(ctx, query, userID, token, deviceType, now); err != nil {
		return transient("failed to save FCM token", err)
	}
	return nil
}

var _ services.SiteRegistry = (*Postgres)(nil)
var _ services.GuardResolver = (*Postgres)(nil)
