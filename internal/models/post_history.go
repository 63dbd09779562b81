package models

import (
	"time"

	"github.com/google/uuid"
)

// PostMode distinguishes scheduler-driven posts from manual admin posts.
type PostMode string

const (
	PostModeAuto   PostMode = "auto"
	PostModeManual PostMode = "manual"
)

// PostHistory is one audit record of a single (deal, platform) publish
// attempt. Entries are append-only: retries create new rows, never mutate
// old ones.
type PostHistory struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	DealID      uuid.UUID `db:"deal_id"      json:"deal_id"`
	Platform    string    `db:"platform"     json:"platform"`
	Success     bool      `db:"success"      json:"success"`
	ErrorDetail string    `db:"error_detail" json:"error_detail,omitempty"`
	PostedAt    time.Time `db:"posted_at"    json:"posted_at"`
	Mode        PostMode  `db:"mode"         json:"mode"`
	IsAffiliate bool      `db:"is_affiliate" json:"is_affiliate"`
	Language    Language  `db:"language"     json:"language"`
	PlatformRef string    `db:"platform_ref" json:"platform_ref,omitempty"` // Post ID returned by the platform
}

// PostHistoryFilter represents filter criteria for querying post history.
type PostHistoryFilter struct {
	Platform  string     `form:"platform"`
	DealID    string     `form:"deal_id"`
	StartDate *time.Time `form:"start_date"                  time_format:"2006-01-02"`
	EndDate   *time.Time `form:"end_date"                    time_format:"2006-01-02"`
	Limit     int        `binding:"omitempty,min=1,max=1000" form:"limit"` // Default 100
	Offset    int        `binding:"omitempty,min=0"          form:"offset"`
}

// RatioStats holds the observed post counts over the fairness window.
type RatioStats struct {
	Affiliate    int
	NonAffiliate int
	LangEN       int
	LangES       int
}
