package models

import (
	"time"

	"github.com/lib/pq"
)

// Platform names the engine knows how to publish to.
const (
	PlatformTelegram  = "telegram"
	PlatformFacebook  = "facebook"
	PlatformTwitter   = "twitter"
	PlatformInstagram = "instagram"
)

// AllPlatforms lists every platform the engine can target, in attempt order.
var AllPlatforms = []string{
	PlatformTelegram,
	PlatformFacebook,
	PlatformTwitter,
	PlatformInstagram,
}

// Settings is the scheduler configuration record. It is owned by the admin
// surface and re-read at the start of every cycle; the engine never writes it.
type Settings struct {
	ID                int            `db:"id"                  json:"id"`
	Enabled           bool           `db:"enabled"             json:"enabled"`
	IntervalMinutes   int            `db:"interval_minutes"    json:"interval_minutes"`
	EnabledPlatforms  pq.StringArray `db:"enabled_platforms"   json:"enabled_platforms"`
	AllowedStores     pq.StringArray `db:"allowed_stores"      json:"allowed_stores"`
	QuietHourStart    int            `db:"quiet_hour_start"    json:"quiet_hour_start"`
	QuietHourEnd      int            `db:"quiet_hour_end"      json:"quiet_hour_end"`
	MaxDiscountPct    float64        `db:"max_discount_pct"    json:"max_discount_pct"`
	AffiliateOnly     bool           `db:"affiliate_only"      json:"affiliate_only"`
	AffiliateRatio    int            `db:"affiliate_ratio"     json:"affiliate_ratio"`
	NonAffiliateRatio int            `db:"non_affiliate_ratio" json:"non_affiliate_ratio"`
	LangENRatio       int            `db:"lang_en_ratio"       json:"lang_en_ratio"`
	LangESRatio       int            `db:"lang_es_ratio"       json:"lang_es_ratio"`
	RatioWindowSize   int            `db:"ratio_window_size"   json:"ratio_window_size"`
	UpdatedAt         time.Time      `db:"updated_at"          json:"updated_at"`
}

// Interval returns the configured cycle cadence as a duration.
func (s *Settings) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// PlatformEnabled reports whether a platform is in the enabled set.
func (s *Settings) PlatformEnabled(name string) bool {
	for _, p := range s.EnabledPlatforms {
		if p == name {
			return true
		}
	}
	return false
}

// QuietHoursDisabled reports whether the quiet-hour window is turned off.
// Equal start and end means the feature is disabled.
func (s *Settings) QuietHoursDisabled() bool {
	return s.QuietHourStart == s.QuietHourEnd
}

// InQuietHours tests hour membership in the [start, end) window, which may
// wrap past midnight (e.g. start=22 end=6 covers 22..23 and 0..5).
func (s *Settings) InQuietHours(hour int) bool {
	if s.QuietHoursDisabled() {
		return false
	}
	if s.QuietHourStart < s.QuietHourEnd {
		return hour >= s.QuietHourStart && hour < s.QuietHourEnd
	}
	return hour >= s.QuietHourStart || hour < s.QuietHourEnd
}
