package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dealwire/social-engine/internal/models"
)

// GetSettings reads the singleton engine settings record. The engine never
// writes settings; the admin surface owns them.
func (r *Repository) GetSettings(ctx context.Context) (*models.Settings, error) {
	settings := &models.Settings{}
	query := `
		SELECT id, enabled, interval_minutes, enabled_platforms, allowed_stores,
		       quiet_hour_start, quiet_hour_end, max_discount_pct, affiliate_only,
		       affiliate_ratio, non_affiliate_ratio, lang_en_ratio, lang_es_ratio,
		       ratio_window_size, updated_at
		FROM engine_settings
		WHERE id = 1
	`

	err := r.db.GetContext(ctx, settings, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return settings, nil
}
