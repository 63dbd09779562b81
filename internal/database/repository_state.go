package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dealwire/social-engine/internal/models"
)

// GetSchedulerState reads the singleton scheduler state record.
func (r *Repository) GetSchedulerState(ctx context.Context) (*models.SchedulerState, error) {
	state := &models.SchedulerState{}
	query := `
		SELECT id, last_run_at, next_run_at, last_posted_deal_id,
		       last_success_count, version, updated_at
		FROM scheduler_state
		WHERE id = 1
	`

	err := r.db.GetContext(ctx, state, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scheduler state: %w", err)
	}

	return state, nil
}

// SchedulerStateUpdate carries the fields written at the end of a cycle.
type SchedulerStateUpdate struct {
	LastRunAt        time.Time
	NextRunAt        time.Time
	LastPostedDealID *uuid.UUID
	LastSuccessCount int
}

// UpdateSchedulerState writes the scheduler state with an optimistic
// concurrency check: the write only succeeds if the version read at the
// start of the cycle is still current. A lost race returns ErrStateConflict
// so the caller knows a concurrent cycle got there first.
func (r *Repository) UpdateSchedulerState(
	ctx context.Context,
	version int64,
	upd SchedulerStateUpdate,
) error {
	query := `
		UPDATE scheduler_state
		SET last_run_at = $1,
		    next_run_at = $2,
		    last_posted_deal_id = COALESCE($3, last_posted_deal_id),
		    last_success_count = $4,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = 1 AND version = $5
	`

	result, err := r.db.ExecContext(ctx, query,
		upd.LastRunAt, upd.NextRunAt, upd.LastPostedDealID, upd.LastSuccessCount, version)
	if err != nil {
		return fmt.Errorf("failed to update scheduler state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrStateConflict
	}

	return nil
}

// ForceNextRun sets the next-run stamp directly. Used by the admin surface
// to pull a cycle forward ("run now") or push one into the future to skip.
func (r *Repository) ForceNextRun(ctx context.Context, nextRun time.Time) error {
	query := `
		UPDATE scheduler_state
		SET next_run_at = $1, version = version + 1, updated_at = NOW()
		WHERE id = 1
	`

	if _, err := r.db.ExecContext(ctx, query, nextRun); err != nil {
		return fmt.Errorf("failed to force next run: %w", err)
	}

	return nil
}
