package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DealStatus represents the publication state of a catalog deal.
type DealStatus string

const (
	DealStatusDraft     DealStatus = "draft"
	DealStatusPublished DealStatus = "published"
	DealStatusArchived  DealStatus = "archived"
)

// Language identifies one of the two caption languages the engine renders.
type Language string

const (
	LanguageEN Language = "en"
	LanguageES Language = "es"
)

// Deal represents one promotable offer from the catalog.
// The catalog is owned by the admin surface; the engine reads it only.
type Deal struct {
	ID              uuid.UUID      `db:"id"                json:"id"`
	TitleEN         string         `db:"title_en"          json:"title_en"`
	TitleES         string         `db:"title_es"          json:"title_es"`
	BodyEN          string         `db:"body_en"           json:"body_en"`
	BodyES          string         `db:"body_es"           json:"body_es"`
	Price           float64        `db:"price"             json:"price"`
	OldPrice        *float64       `db:"old_price"         json:"old_price,omitempty"`
	DiscountPct     *float64       `db:"discount_pct"      json:"discount_pct,omitempty"`
	ImageURL        string         `db:"image_url"         json:"image_url"`
	StoreName       string         `db:"store_name"        json:"store_name"`
	PublishedAt     time.Time      `db:"published_at"      json:"published_at"`
	IsAffiliate     bool           `db:"is_affiliate"      json:"is_affiliate"`
	Hashtags        pq.StringArray `db:"hashtags"          json:"hashtags"`
	ExcludeFromAuto bool           `db:"exclude_from_auto" json:"exclude_from_auto"`
	Status          DealStatus     `db:"status"            json:"status"`
}

// Title returns the deal title in the requested language.
func (d *Deal) Title(lang Language) string {
	if lang == LanguageES && d.TitleES != "" {
		return d.TitleES
	}
	return d.TitleEN
}

// Body returns the deal body text in the requested language.
func (d *Deal) Body(lang Language) string {
	if lang == LanguageES && d.BodyES != "" {
		return d.BodyES
	}
	return d.BodyEN
}

// ComputeDiscountPct derives the discount percentage from the current and old
// prices. It is recomputed whenever either price changes and never trusted
// from stale storage.
func ComputeDiscountPct(price float64, oldPrice *float64) *float64 {
	if oldPrice == nil || *oldPrice <= 0 || price >= *oldPrice {
		return nil
	}
	pct := (*oldPrice - price) / *oldPrice * 100
	return &pct
}

// Discount returns the deal's discount percentage, recomputing it from the
// prices rather than reading a possibly stale stored value.
func (d *Deal) Discount() float64 {
	pct := ComputeDiscountPct(d.Price, d.OldPrice)
	if pct == nil {
		return 0
	}
	return *pct
}
