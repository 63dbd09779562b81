package database_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/dealwire/social-engine/internal/models"
)

func TestCreatePostHistoryFillsIDAndTimestamp(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO post_history").
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.PostHistory{
		DealID:   uuid.New(),
		Platform: "telegram",
		Success:  true,
		Mode:     models.PostModeAuto,
		Language: models.LanguageEN,
	}

	if err := repo.CreatePostHistory(context.Background(), entry); err != nil {
		t.Fatalf("CreatePostHistory() error = %v", err)
	}
	if entry.ID == uuid.Nil {
		t.Error("CreatePostHistory() left ID unset")
	}
	if entry.PostedAt.IsZero() {
		t.Error("CreatePostHistory() left PostedAt unset")
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestListPostHistoryWithFilters(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now()
	dealID := uuid.New()
	rows := sqlmock.NewRows([]string{
		"id", "deal_id", "platform", "success", "error_detail",
		"posted_at", "mode", "is_affiliate", "language", "platform_ref",
	}).AddRow(uuid.New(), dealID, "telegram", true, "", now, "auto", true, "en", "123")

	mock.ExpectQuery("SELECT (.+) FROM post_history").
		WithArgs("telegram", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	history, err := repo.ListPostHistory(context.Background(), &models.PostHistoryFilter{
		Platform: "telegram",
		Limit:    50,
	})
	if err != nil {
		t.Fatalf("ListPostHistory() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("ListPostHistory() returned %d entries, want 1", len(history))
	}
	if history[0].Platform != "telegram" {
		t.Errorf("Platform = %q, want telegram", history[0].Platform)
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestListPostHistoryClampsLimit(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{
		"id", "deal_id", "platform", "success", "error_detail",
		"posted_at", "mode", "is_affiliate", "language", "platform_ref",
	})

	// Limit 0 defaults to 100; over-limit clamps to 1000.
	mock.ExpectQuery("SELECT (.+) FROM post_history").
		WithArgs(100, 0).
		WillReturnRows(rows)

	if _, err := repo.ListPostHistory(context.Background(), &models.PostHistoryFilter{}); err != nil {
		t.Fatalf("ListPostHistory() error = %v", err)
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestDealPostedSince(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	posted, err := repo.DealPostedSince(context.Background(), uuid.New(), time.Now().Add(-36*time.Hour))
	if err != nil {
		t.Fatalf("DealPostedSince() error = %v", err)
	}
	if !posted {
		t.Error("DealPostedSince() = false, want true")
	}
}

func TestRatioStats(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"affiliate", "non_affiliate", "lang_en", "lang_es"}).
		AddRow(12, 4, 10, 6)

	mock.ExpectQuery("FROM post_history").
		WithArgs(20).
		WillReturnRows(rows)

	stats, err := repo.RatioStats(context.Background(), 20)
	if err != nil {
		t.Fatalf("RatioStats() error = %v", err)
	}
	if stats.Affiliate != 12 || stats.NonAffiliate != 4 {
		t.Errorf("affiliate counts = %d/%d, want 12/4", stats.Affiliate, stats.NonAffiliate)
	}
	if stats.LangEN != 10 || stats.LangES != 6 {
		t.Errorf("language counts = %d/%d, want 10/6", stats.LangEN, stats.LangES)
	}
}

func TestRatioStatsFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM post_history").
		WillReturnError(sql.ErrConnDone)

	if _, err := repo.RatioStats(context.Background(), 20); err == nil {
		t.Error("RatioStats() error = nil, want error")
	}
}
