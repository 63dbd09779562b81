package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dealwire/social-engine/internal/models"
)

const historyColumns = `
	id, deal_id, platform, success, error_detail, posted_at, mode,
	is_affiliate, language, platform_ref
`

// CreatePostHistory appends a new post history entry. Entries are immutable:
// retries insert new rows.
func (r *Repository) CreatePostHistory(ctx context.Context, entry *models.PostHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.PostedAt.IsZero() {
		entry.PostedAt = time.Now()
	}

	query := `
		INSERT INTO post_history (id, deal_id, platform, success, error_detail,
		                          posted_at, mode, is_affiliate, language, platform_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.DealID, entry.Platform, entry.Success, entry.ErrorDetail,
		entry.PostedAt, entry.Mode, entry.IsAffiliate, entry.Language, entry.PlatformRef)
	if err != nil {
		return fmt.Errorf("failed to create post history: %w", err)
	}

	return nil
}

// ListPostHistory retrieves post history with optional filters.
func (r *Repository) ListPostHistory(
	ctx context.Context,
	filter *models.PostHistoryFilter,
) ([]models.PostHistory, error) {
	history := []models.PostHistory{}

	if filter.Limit == 0 {
		filter.Limit = 100
	}
	const maxLimit = 1000
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}

	query := `
		SELECT ` + historyColumns + `
		FROM post_history
		WHERE 1=1
	`

	args := []any{}
	argPos := 1

	if filter.Platform != "" {
		query += fmt.Sprintf(" AND platform = $%d", argPos)
		args = append(args, filter.Platform)
		argPos++
	}

	if filter.DealID != "" {
		query += fmt.Sprintf(" AND deal_id = $%d", argPos)
		args = append(args, filter.DealID)
		argPos++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND posted_at >= $%d", argPos)
		args = append(args, *filter.StartDate)
		argPos++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND posted_at <= $%d", argPos)
		args = append(args, *filter.EndDate)
		argPos++
	}

	query += " ORDER BY posted_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	err := r.db.SelectContext(ctx, &history, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list post history: %w", err)
	}

	return history, nil
}

// DealPostedSince reports whether a deal has any post history entry newer
// than the given cutoff. Drives the dedupe-window exclusion.
func (r *Repository) DealPostedSince(ctx context.Context, dealID uuid.UUID, cutoff time.Time) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM post_history
			WHERE deal_id = $1 AND posted_at > $2
		)
	`

	err := r.db.GetContext(ctx, &exists, query, dealID, cutoff)
	if err != nil {
		return false, fmt.Errorf("failed to check deal post history: %w", err)
	}

	return exists, nil
}

// RecentlyPostedDealIDs returns the IDs of all deals with a post history
// entry newer than the cutoff. Lets the eligibility filter apply the dedupe
// window with one query instead of one per candidate.
func (r *Repository) RecentlyPostedDealIDs(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	query := `
		SELECT DISTINCT deal_id FROM post_history WHERE posted_at > $1
	`

	err := r.db.SelectContext(ctx, &ids, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list recently posted deals: %w", err)
	}

	return ids, nil
}

// RatioStats computes the observed affiliate and language counts over the
// most recent successful automatic posts, counting each deal posting once
// per cycle (deduplicated by deal and cycle timestamp granularity is not
// needed because a cycle posts a single deal).
func (r *Repository) RatioStats(ctx context.Context, window int) (*models.RatioStats, error) {
	if window <= 0 {
		window = 20
	}

	stats := &models.RatioStats{}
	query := `
		WITH recent AS (
			SELECT DISTINCT ON (deal_id, posted_at::date) is_affiliate, language, posted_at
			FROM post_history
			WHERE mode = 'auto' AND success = TRUE
			ORDER BY deal_id, posted_at::date, posted_at DESC
		), windowed AS (
			SELECT is_affiliate, language
			FROM recent
			ORDER BY posted_at DESC
			LIMIT $1
		)
		SELECT
			COUNT(*) FILTER (WHERE is_affiliate)        AS affiliate,
			COUNT(*) FILTER (WHERE NOT is_affiliate)    AS non_affiliate,
			COUNT(*) FILTER (WHERE language = 'en')     AS lang_en,
			COUNT(*) FILTER (WHERE language = 'es')     AS lang_es
		FROM windowed
	`

	row := r.db.QueryRowxContext(ctx, query, window)
	if err := row.Scan(&stats.Affiliate, &stats.NonAffiliate, &stats.LangEN, &stats.LangES); err != nil {
		return nil, fmt.Errorf("failed to compute ratio stats: %w", err)
	}

	return stats, nil
}
