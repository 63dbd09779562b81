package models

import (
	"time"

	"github.com/google/uuid"
)

// SchedulerState is the singleton record governing cycle cadence. It is read
// at the start of a cycle and written exactly once at the end; the version
// column gives optimistic concurrency against overlapping triggers.
type SchedulerState struct {
	ID               int        `db:"id"                  json:"id"`
	LastRunAt        *time.Time `db:"last_run_at"         json:"last_run_at,omitempty"`
	NextRunAt        *time.Time `db:"next_run_at"         json:"next_run_at,omitempty"`
	LastPostedDealID *uuid.UUID `db:"last_posted_deal_id" json:"last_posted_deal_id,omitempty"`
	LastSuccessCount int        `db:"last_success_count"  json:"last_success_count"`
	Version          int64      `db:"version"             json:"version"`
	UpdatedAt        time.Time  `db:"updated_at"          json:"updated_at"`
}

// DueAt reports whether a scheduled run is due at the given time. A state
// with no next-run stamp (fresh install) is always due.
func (s *SchedulerState) DueAt(now time.Time) bool {
	return s.NextRunAt == nil || !now.Before(*s.NextRunAt)
}
