package database_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/dealwire/social-engine/internal/models"
)

func dealRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title_en", "title_es", "body_en", "body_es", "price", "old_price",
		"discount_pct", "image_url", "store_name", "published_at", "is_affiliate",
		"hashtags", "exclude_from_auto", "status",
	})
}

func TestListCandidateDeals(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now()
	rows := dealRows().
		AddRow(uuid.New(), "Drill", "Taladro", "", "", 59.99, 99.99, 40.0,
			"https://img/x.jpg", "HomeCo", now.Add(-2*time.Hour), true,
			"{tools}", false, "published").
		AddRow(uuid.New(), "Blender", "Licuadora", "", "", 25, nil, nil,
			"", "KitchenCo", now.Add(-time.Hour), false,
			"{}", false, "published")

	mock.ExpectQuery("SELECT (.+) FROM deals").
		WithArgs("published", sqlmock.AnyArg()).
		WillReturnRows(rows)

	deals, err := repo.ListCandidateDeals(context.Background(), now.Add(-12*time.Hour), nil)
	if err != nil {
		t.Fatalf("ListCandidateDeals() error = %v", err)
	}
	if len(deals) != 2 {
		t.Fatalf("ListCandidateDeals() returned %d deals, want 2", len(deals))
	}
	if deals[0].TitleEN != "Drill" {
		t.Errorf("first deal = %q, want oldest-first ordering", deals[0].TitleEN)
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestListCandidateDealsWithStoreFilter(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("store_name = ANY").
		WithArgs("published", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(dealRows())

	_, err := repo.ListCandidateDeals(context.Background(), time.Now(), []string{"HomeCo"})
	if err != nil {
		t.Fatalf("ListCandidateDeals() error = %v", err)
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestGetDealByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM deals").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetDealByID(context.Background(), uuid.New())
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetDealByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetSettings(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{
		"id", "enabled", "interval_minutes", "enabled_platforms", "allowed_stores",
		"quiet_hour_start", "quiet_hour_end", "max_discount_pct", "affiliate_only",
		"affiliate_ratio", "non_affiliate_ratio", "lang_en_ratio", "lang_es_ratio",
		"ratio_window_size", "updated_at",
	}).AddRow(1, true, 60, "{telegram,twitter}", "{}",
		22, 6, 60.0, false, 3, 1, 2, 1, 20, time.Now())

	mock.ExpectQuery("SELECT (.+) FROM engine_settings").WillReturnRows(rows)

	settings, err := repo.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if !settings.Enabled {
		t.Error("Enabled = false, want true")
	}
	if len(settings.EnabledPlatforms) != 2 {
		t.Errorf("EnabledPlatforms = %v, want 2 entries", settings.EnabledPlatforms)
	}
	if settings.QuietHourStart != 22 || settings.QuietHourEnd != 6 {
		t.Errorf("quiet hours = %d..%d, want 22..6", settings.QuietHourStart, settings.QuietHourEnd)
	}
}
