package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealwire/social-engine/internal/api"
	"github.com/dealwire/social-engine/internal/config"
	"github.com/dealwire/social-engine/internal/database"
	"github.com/dealwire/social-engine/internal/engine"
	"github.com/dealwire/social-engine/internal/logger"
)

type stubRunner struct {
	trigger engine.Trigger
	outcome *engine.Outcome
	err     error
}

func (s *stubRunner) RunCycle(_ context.Context, trig engine.Trigger) (*engine.Outcome, error) {
	s.trigger = trig
	return s.outcome, s.err
}

func newTestRouter(t *testing.T, runner *stubRunner) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := database.NewRepository(sqlx.NewDb(db, "postgres"))
	cfg := &config.Config{Debug: true}

	r := api.NewRouter(repo, nil, runner, nil, cfg, logger.NewNopLogger())
	return r.SetupRoutes(), mock
}

func TestRunCycleEndpoint(t *testing.T) {
	runner := &stubRunner{outcome: &engine.Outcome{
		Status:  engine.StatusPosted,
		Trigger: engine.TriggerManual,
	}}
	router, _ := newTestRouter(t, runner)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cycle/run", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, engine.TriggerManual, runner.trigger)

	var outcome engine.Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.Equal(t, engine.StatusPosted, outcome.Status)
}

func TestRunCycleEndpointReportsFatalError(t *testing.T) {
	runner := &stubRunner{err: context.DeadlineExceeded}
	router, _ := newTestRouter(t, runner)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cycle/run", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStatusEndpoint(t *testing.T) {
	router, mock := newTestRouter(t, &stubRunner{})

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM scheduler_state").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "last_run_at", "next_run_at", "last_posted_deal_id",
			"last_success_count", "version", "updated_at",
		}).AddRow(1, now, now.Add(time.Hour), nil, 2, int64(5), now))
	mock.ExpectQuery("SELECT (.+) FROM engine_settings").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "enabled", "interval_minutes", "enabled_platforms", "allowed_stores",
			"quiet_hour_start", "quiet_hour_end", "max_discount_pct", "affiliate_only",
			"affiliate_ratio", "non_affiliate_ratio", "lang_en_ratio", "lang_es_ratio",
			"ratio_window_size", "updated_at",
		}).AddRow(1, true, 60, "{telegram}", "{}", 0, 0, 60.0, false, 1, 1, 1, 1, 20, now))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["enabled"])
	assert.NotNil(t, body["state"])
}

func TestHistoryEndpoint(t *testing.T) {
	router, mock := newTestRouter(t, &stubRunner{})

	mock.ExpectQuery("SELECT (.+) FROM post_history").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "deal_id", "platform", "success", "error_detail",
			"posted_at", "mode", "is_affiliate", "language", "platform_ref",
		}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?platform=telegram&limit=10", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 0, body["count"])
}

func TestGetDealRejectsMalformedID(t *testing.T) {
	router, _ := newTestRouter(t, &stubRunner{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/deals/not-a-uuid", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
