package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dealwire/social-engine/internal/models"
)

const dealColumns = `
	id, title_en, title_es, body_en, body_es, price, old_price, discount_pct,
	image_url, store_name, published_at, is_affiliate, hashtags,
	exclude_from_auto, status
`

// ListCandidateDeals returns published, non-excluded deals from the allowed
// stores whose publication time falls inside [since, now]. It is the raw
// candidate query; the eligibility filter applies the per-cycle exclusions
// (dedupe window, repeat guard, discount ceiling) on top.
func (r *Repository) ListCandidateDeals(
	ctx context.Context,
	since time.Time,
	allowedStores []string,
) ([]models.Deal, error) {
	deals := []models.Deal{}

	query := `
		SELECT ` + dealColumns + `
		FROM deals
		WHERE status = $1
		  AND exclude_from_auto = FALSE
		  AND published_at >= $2
	`
	args := []any{models.DealStatusPublished, since}

	if len(allowedStores) > 0 {
		query += " AND store_name = ANY($3)"
		args = append(args, pq.Array(allowedStores))
	}

	query += " ORDER BY published_at ASC"

	err := r.db.SelectContext(ctx, &deals, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate deals: %w", err)
	}

	return deals, nil
}

// GetDealByID retrieves a single deal by ID.
func (r *Repository) GetDealByID(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	deal := &models.Deal{}
	query := `SELECT ` + dealColumns + ` FROM deals WHERE id = $1`

	err := r.db.GetContext(ctx, deal, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}

	return deal, nil
}
