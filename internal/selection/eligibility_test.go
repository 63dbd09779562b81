package selection_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealwire/social-engine/internal/models"
	"github.com/dealwire/social-engine/internal/selection"
)

var testNow = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func baseSettings() *models.Settings {
	return &models.Settings{
		Enabled:           true,
		IntervalMinutes:   60,
		AllowedStores:     pq.StringArray{"amazon", "bestbuy"},
		MaxDiscountPct:    60,
		AffiliateRatio:    4,
		NonAffiliateRatio: 1,
		LangENRatio:       3,
		LangESRatio:       1,
		RatioWindowSize:   20,
	}
}

func makeDeal(mutate func(*models.Deal)) models.Deal {
	oldPrice := 100.0
	d := models.Deal{
		ID:          uuid.New(),
		TitleEN:     "Cordless Drill",
		TitleES:     "Taladro inalámbrico",
		Price:       70,
		OldPrice:    &oldPrice,
		ImageURL:    "https://img.example.com/drill.jpg",
		StoreName:   "amazon",
		PublishedAt: testNow.Add(-2 * time.Hour),
		Status:      models.DealStatusPublished,
	}
	if mutate != nil {
		mutate(&d)
	}
	return d
}

func baseInput() selection.EligibilityInput {
	return selection.EligibilityInput{
		Now:      testNow,
		Settings: baseSettings(),
		Lookback: 12 * time.Hour,
		Dedupe:   36 * time.Hour,
	}
}

func TestFilterEligible_ExcludedNeverAppears(t *testing.T) {
	excluded := makeDeal(func(d *models.Deal) { d.ExcludeFromAuto = true })
	ok := makeDeal(nil)

	got := selection.FilterEligible([]models.Deal{excluded, ok}, baseInput())

	require.Len(t, got, 1)
	assert.Equal(t, ok.ID, got[0].ID)
}

func TestFilterEligible_StoreAndStatusRules(t *testing.T) {
	tests := []struct {
		name string
		deal models.Deal
		want bool
	}{
		{"allowed store", makeDeal(nil), true},
		{"disallowed store", makeDeal(func(d *models.Deal) { d.StoreName = "sketchy-dropship" }), false},
		{"draft", makeDeal(func(d *models.Deal) { d.Status = models.DealStatusDraft }), false},
		{"archived", makeDeal(func(d *models.Deal) { d.Status = models.DealStatusArchived }), false},
		{"too old", makeDeal(func(d *models.Deal) { d.PublishedAt = testNow.Add(-13 * time.Hour) }), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selection.FilterEligible([]models.Deal{tt.deal}, baseInput())
			assert.Equal(t, tt.want, len(got) == 1)
		})
	}
}

func TestFilterEligible_DiscountCeilingInvariant(t *testing.T) {
	// Across randomized fixtures, no deal at or above the ceiling survives.
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		oldPrice := 50 + rng.Float64()*200
		price := oldPrice * (1 - rng.Float64()) // 0..100% off
		d := makeDeal(func(d *models.Deal) {
			d.OldPrice = &oldPrice
			d.Price = price
		})

		got := selection.FilterEligible([]models.Deal{d}, baseInput())
		for _, g := range got {
			assert.Less(t, g.Discount(), 60.0)
		}
	}
}

func TestFilterEligible_ImmediateRepeatGuard(t *testing.T) {
	a := makeDeal(nil)
	b := makeDeal(nil)

	in := baseInput()
	in.LastPostedDealID = &a.ID

	got := selection.FilterEligible([]models.Deal{a, b}, in)

	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)
}

func TestFilterEligible_DedupeWindowBoundary(t *testing.T) {
	deal := makeDeal(nil)

	tests := []struct {
		name   string
		posted time.Time
		want   bool
	}{
		{"posted 35h59m ago is excluded", testNow.Add(-(35*time.Hour + 59*time.Minute)), false},
		{"posted 36h01m ago is included", testNow.Add(-(36*time.Hour + time.Minute)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			in.RecentPosts = []models.PostHistory{
				{DealID: deal.ID, PostedAt: tt.posted, Platform: models.PlatformTelegram},
			}

			got := selection.FilterEligible([]models.Deal{deal}, in)
			assert.Equal(t, tt.want, len(got) == 1)
		})
	}
}

func TestFilterEligible_AffiliateOnlyNarrowsWithFallback(t *testing.T) {
	aff := makeDeal(func(d *models.Deal) { d.IsAffiliate = true })
	non := makeDeal(nil)

	in := baseInput()
	in.Settings.AffiliateOnly = true

	got := selection.FilterEligible([]models.Deal{aff, non}, in)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsAffiliate)

	// No affiliate survivor: fall back to the full filtered set.
	got = selection.FilterEligible([]models.Deal{non}, in)
	require.Len(t, got, 1)
	assert.Equal(t, non.ID, got[0].ID)
}

func TestFilterEligible_EmptyResultIsValid(t *testing.T) {
	got := selection.FilterEligible(nil, baseInput())
	assert.Empty(t, got)
}
