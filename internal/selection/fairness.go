package selection

import (
	"sort"

	"github.com/dealwire/social-engine/internal/models"
)

// preference is the outcome of the ratio debt rule for one axis.
type preference int

const (
	preferNone preference = iota
	preferFirst
	preferSecond
)

// ratioPreference decides which side of a target ratio is more "behind" and
// should go next. observedA/observedB are counts over the fairness window,
// targetA/targetB the configured ratio.
//
// The rule is debt minimization, not round-robin: whichever side has the
// smaller observed/target quotient is preferred. A tie prefers the first
// side; this tie-break is applied uniformly on both axes.
// A zero target on one side with a positive target on the other always
// prefers the positive side, so a zero-ratio class can never be the
// preferred choice and no division by zero occurs.
func ratioPreference(observedA, observedB, targetA, targetB int) preference {
	switch {
	case targetA <= 0 && targetB <= 0:
		return preferNone
	case targetA <= 0:
		return preferSecond
	case targetB <= 0:
		return preferFirst
	}

	debtA := float64(observedA) / float64(targetA)
	debtB := float64(observedB) / float64(targetB)
	if debtA <= debtB {
		return preferFirst
	}
	return preferSecond
}

// PickResult is the fairness selector's decision: which deal to post and
// which language to render it in.
type PickResult struct {
	Deal     models.Deal
	Language models.Language
}

// Pick applies the fairness ratios to the eligible candidate set and selects
// one deal plus a rendering language.
//
// The affiliate preference narrows the candidate set; if the preferred
// subset is empty the unnarrowed set is used. The language preference never
// narrows candidates, since every deal carries both languages; it only
// governs which language the renderer uses. From the final pool the oldest
// published deal wins, which keeps a burst of fresh deals from starving
// older eligible ones.
func Pick(candidates []models.Deal, stats *models.RatioStats, settings *models.Settings) (*PickResult, error) {
	if len(candidates) == 0 {
		return nil, models.ErrNoEligibleDeals
	}

	pool := candidates
	switch ratioPreference(stats.Affiliate, stats.NonAffiliate, settings.AffiliateRatio, settings.NonAffiliateRatio) {
	case preferFirst:
		pool = narrowByAffiliate(candidates, true)
	case preferSecond:
		pool = narrowByAffiliate(candidates, false)
	case preferNone:
	}
	if len(pool) == 0 {
		pool = candidates
	}

	lang := models.LanguageEN
	if ratioPreference(stats.LangEN, stats.LangES, settings.LangENRatio, settings.LangESRatio) == preferSecond {
		lang = models.LanguageES
	}

	// Deterministic pick: oldest first, ID as a stable tie-break.
	sorted := make([]models.Deal, len(pool))
	copy(sorted, pool)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].PublishedAt.Equal(sorted[j].PublishedAt) {
			return sorted[i].PublishedAt.Before(sorted[j].PublishedAt)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	return &PickResult{Deal: sorted[0], Language: lang}, nil
}

func narrowByAffiliate(deals []models.Deal, affiliate bool) []models.Deal {
	out := make([]models.Deal, 0, len(deals))
	for _, d := range deals {
		if d.IsAffiliate == affiliate {
			out = append(out, d)
		}
	}
	return out
}
