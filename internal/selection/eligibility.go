// Package selection implements candidate filtering and fairness-based deal
// selection for the auto-posting engine. Both stages are pure functions over
// their inputs so every rule is testable without a database.
package selection

import (
	"time"

	"github.com/google/uuid"

	"github.com/dealwire/social-engine/internal/models"
)

// EligibilityInput carries the per-cycle facts the filter needs beyond the
// candidate deals themselves.
type EligibilityInput struct {
	// Now is the cycle's reference time.
	Now time.Time

	// Settings is the configuration record read at cycle start.
	Settings *models.Settings

	// Lookback is the catalog freshness window (typically 12h).
	Lookback time.Duration

	// Dedupe is the repost exclusion window (typically 36h).
	Dedupe time.Duration

	// LastPostedDealID is the immediate-repeat guard: the deal posted by the
	// previous cycle, if any.
	LastPostedDealID *uuid.UUID

	// RecentPosts holds post history entries from (at least) the dedupe
	// window; older entries are ignored.
	RecentPosts []models.PostHistory
}

// FilterEligible returns the subset of deals that survive every exclusion
// rule. An empty result is a valid, expected outcome, not an error.
//
// A deal is eligible when it is published, not manually excluded from
// automation, from an allowed store, fresh within the lookback window, not
// the immediately preceding post, outside the dedupe window, and below the
// discount ceiling reserved for manual promotion. When the affiliate-only
// setting is active and at least one affiliate deal survives, the set
// narrows to affiliate deals; otherwise the full filtered set stands.
func FilterEligible(deals []models.Deal, in EligibilityInput) []models.Deal {
	allowed := storeSet(in.Settings.AllowedStores)
	cutoff := in.Now.Add(-in.Lookback)

	// A post strictly inside the dedupe window excludes its deal; a post
	// exactly at the boundary does not.
	dedupeCutoff := in.Now.Add(-in.Dedupe)
	recentlyPosted := make(map[uuid.UUID]struct{}, len(in.RecentPosts))
	for _, p := range in.RecentPosts {
		if p.PostedAt.After(dedupeCutoff) {
			recentlyPosted[p.DealID] = struct{}{}
		}
	}

	eligible := make([]models.Deal, 0, len(deals))
	for _, d := range deals {
		if d.Status != models.DealStatusPublished || d.ExcludeFromAuto {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[d.StoreName]; !ok {
				continue
			}
		}
		if d.PublishedAt.Before(cutoff) {
			continue
		}
		if in.LastPostedDealID != nil && d.ID == *in.LastPostedDealID {
			continue
		}
		if _, posted := recentlyPosted[d.ID]; posted {
			continue
		}
		if in.Settings.MaxDiscountPct > 0 && d.Discount() >= in.Settings.MaxDiscountPct {
			continue
		}
		eligible = append(eligible, d)
	}

	if in.Settings.AffiliateOnly {
		affiliates := make([]models.Deal, 0, len(eligible))
		for _, d := range eligible {
			if d.IsAffiliate {
				affiliates = append(affiliates, d)
			}
		}
		// Fall back to the full set when no affiliate deal survives.
		if len(affiliates) > 0 {
			return affiliates
		}
	}

	return eligible
}

func storeSet(stores []string) map[string]struct{} {
	set := make(map[string]struct{}, len(stores))
	for _, s := range stores {
		set[s] = struct{}{}
	}
	return set
}
