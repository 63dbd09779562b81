// Package engine implements the cycle controller: the state machine that
// ties selection, rendering, publication and state recording into one
// non-overlapping posting cycle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dealwire/social-engine/internal/database"
	"github.com/dealwire/social-engine/internal/logger"
	"github.com/dealwire/social-engine/internal/metrics"
	"github.com/dealwire/social-engine/internal/models"
	"github.com/dealwire/social-engine/internal/orchestrator"
	"github.com/dealwire/social-engine/internal/render"
	"github.com/dealwire/social-engine/internal/selection"
)

// Trigger distinguishes scheduled invocations from manual admin ones.
// Manual triggers bypass the next-run and quiet-hours gates; the master
// enabled flag binds both.
type Trigger string

const (
	TriggerAuto   Trigger = "auto"
	TriggerManual Trigger = "manual"
)

// Status is the terminal state of a cycle.
type Status string

const (
	StatusSkipped Status = "skipped"
	StatusPosted  Status = "posted"
	StatusFailed  Status = "failed"
)

// Skip reasons surfaced in outcomes and the audit log.
const (
	SkipDisabled     = "engine disabled"
	SkipNoPlatforms  = "no platforms enabled"
	SkipNotDue       = "next run not due"
	SkipQuietHours   = "quiet hours"
	SkipNoCandidates = "no eligible deals"
)

// Outcome is the structured result of one cycle.
type Outcome struct {
	Status     Status               `json:"status"`
	Reason     string               `json:"reason,omitempty"`
	Trigger    Trigger              `json:"trigger"`
	DealID     string               `json:"deal_id,omitempty"`
	Language   models.Language      `json:"language,omitempty"`
	Publish    *orchestrator.Result `json:"publish,omitempty"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
}

// Store is the persistence surface the engine depends on, implemented by
// database.Repository.
type Store interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
	GetSchedulerState(ctx context.Context) (*models.SchedulerState, error)
	UpdateSchedulerState(ctx context.Context, version int64, upd database.SchedulerStateUpdate) error
	ListCandidateDeals(ctx context.Context, since time.Time, allowedStores []string) ([]models.Deal, error)
	ListPostHistory(ctx context.Context, filter *models.PostHistoryFilter) ([]models.PostHistory, error)
	RatioStats(ctx context.Context, window int) (*models.RatioStats, error)
}

// FlyerRenderer renders the image artifacts for a deal.
type FlyerRenderer interface {
	Render(ctx context.Context, deal *models.Deal, lang models.Language) ([]render.Flyer, error)
}

// CaptionBuilder renders the per-platform captions for a deal.
type CaptionBuilder interface {
	Build(ctx context.Context, deal *models.Deal, lang models.Language) map[string]render.Caption
}

// PublishOrchestrator delivers rendered artifacts to the enabled platforms.
type PublishOrchestrator interface {
	Publish(ctx context.Context, req *orchestrator.Request) *orchestrator.Result
}

// Config holds the engine's fixed knobs.
type Config struct {
	Lookback time.Duration // catalog freshness window
	Dedupe   time.Duration // repost exclusion window
	Location *time.Location // reference timezone for quiet hours
}

// Engine is the cycle controller.
type Engine struct {
	store    Store
	flyers   FlyerRenderer
	captions CaptionBuilder
	orch     PublishOrchestrator
	metrics  *metrics.Metrics
	logger   logger.Logger
	tracer   trace.Tracer
	cfg      Config

	now func() time.Time
}

// New creates a cycle controller.
func New(
	store Store,
	flyers FlyerRenderer,
	captions CaptionBuilder,
	orch PublishOrchestrator,
	m *metrics.Metrics,
	cfg Config,
	log logger.Logger,
) *Engine {
	if cfg.Lookback <= 0 {
		cfg.Lookback = 12 * time.Hour
	}
	if cfg.Dedupe <= 0 {
		cfg.Dedupe = 36 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Engine{
		store:    store,
		flyers:   flyers,
		captions: captions,
		orch:     orch,
		metrics:  m,
		logger:   log,
		tracer:   otel.Tracer("cycle-engine"),
		cfg:      cfg,
		now:      time.Now,
	}
}

// RunCycle executes one full cycle. Configuration read errors are fatal and
// returned; every other failure mode resolves into an Outcome so the
// schedule keeps moving.
func (e *Engine) RunCycle(ctx context.Context, trig Trigger) (*Outcome, error) {
	now := e.now()

	ctx, span := e.tracer.Start(ctx, "engine.cycle",
		trace.WithAttributes(attribute.String("trigger", string(trig))))
	defer span.End()

	// LOADING_CONFIG: unreadable settings or state abort the cycle without
	// touching next-run; the next trigger retries from scratch.
	settings, err := e.store.GetSettings(ctx)
	if err != nil {
		e.logger.Error("cycle aborted: settings unreadable", logger.Error(err))
		return nil, fmt.Errorf("load settings: %w", err)
	}
	state, err := e.store.GetSchedulerState(ctx)
	if err != nil {
		e.logger.Error("cycle aborted: scheduler state unreadable", logger.Error(err))
		return nil, fmt.Errorf("load scheduler state: %w", err)
	}

	outcome := &Outcome{Trigger: trig, StartedAt: now}

	// Gate checks, cheapest first. The not-due check runs as early as
	// possible so overlapping triggers degrade to no-ops.
	if trig == TriggerAuto && !state.DueAt(now) {
		outcome.Status = StatusSkipped
		outcome.Reason = SkipNotDue
		// No state write: the schedule is untouched and the next trigger
		// re-evaluates from the same state.
		return e.finish(ctx, outcome, state, settings, nil, 0, false), nil
	}

	if !settings.Enabled {
		outcome.Status = StatusSkipped
		outcome.Reason = SkipDisabled
		return e.finish(ctx, outcome, state, settings, nil, 0, true), nil
	}
	if len(settings.EnabledPlatforms) == 0 {
		outcome.Status = StatusSkipped
		outcome.Reason = SkipNoPlatforms
		return e.finish(ctx, outcome, state, settings, nil, 0, true), nil
	}

	// QUIET_HOURS_CHECK applies only to automated invocations.
	if trig == TriggerAuto && settings.InQuietHours(now.In(e.cfg.Location).Hour()) {
		outcome.Status = StatusSkipped
		outcome.Reason = SkipQuietHours
		return e.finish(ctx, outcome, state, settings, nil, 0, true), nil
	}

	// SELECTING
	pick, err := e.selectDeal(ctx, now, settings, state)
	if err != nil {
		if errors.Is(err, models.ErrNoEligibleDeals) {
			outcome.Status = StatusSkipped
			outcome.Reason = SkipNoCandidates
			return e.finish(ctx, outcome, state, settings, nil, 0, true), nil
		}
		// Selection I/O errors behave like a failed cycle: logged, next-run
		// still advanced so the scheduler cannot wedge.
		outcome.Status = StatusFailed
		outcome.Reason = err.Error()
		e.logger.Error("cycle selection failed", logger.Error(err))
		return e.finish(ctx, outcome, state, settings, nil, 0, true), nil
	}

	deal := pick.Deal
	outcome.DealID = deal.ID.String()
	outcome.Language = pick.Language

	// RENDERING: a failure here (a flyer that cannot be produced at all)
	// fails the cycle, distinct from a skip, and still advances next-run.
	renderStart := e.now()
	flyers, err := e.flyers.Render(ctx, &deal, pick.Language)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Reason = fmt.Sprintf("render: %v", err)
		e.logger.Error("cycle render failed",
			logger.String("deal_id", deal.ID.String()),
			logger.Error(err),
		)
		return e.finish(ctx, outcome, state, settings, nil, 0, true), nil
	}
	captions := e.captions.Build(ctx, &deal, pick.Language)
	e.metrics.RenderDuration.Observe(e.now().Sub(renderStart).Seconds())

	// PUBLISHING never fails the cycle; zero successes is reported, not
	// thrown.
	mode := models.PostModeAuto
	if trig == TriggerManual {
		mode = models.PostModeManual
	}
	result := e.orch.Publish(ctx, &orchestrator.Request{
		Deal:             &deal,
		Language:         pick.Language,
		Captions:         captions,
		Flyers:           flyers,
		EnabledPlatforms: settings.EnabledPlatforms,
		Mode:             mode,
	})

	outcome.Status = StatusPosted
	outcome.Publish = result
	return e.finish(ctx, outcome, state, settings, &deal, result.SuccessCount, true), nil
}

// selectDeal runs eligibility filtering and the fairness pick.
func (e *Engine) selectDeal(
	ctx context.Context,
	now time.Time,
	settings *models.Settings,
	state *models.SchedulerState,
) (*selection.PickResult, error) {
	candidates, err := e.store.ListCandidateDeals(ctx, now.Add(-e.cfg.Lookback), settings.AllowedStores)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	dedupeStart := now.Add(-e.cfg.Dedupe)
	recent, err := e.store.ListPostHistory(ctx, &models.PostHistoryFilter{
		StartDate: &dedupeStart,
		Limit:     1000,
	})
	if err != nil {
		return nil, fmt.Errorf("list recent posts: %w", err)
	}

	eligible := selection.FilterEligible(candidates, selection.EligibilityInput{
		Now:              now,
		Settings:         settings,
		Lookback:         e.cfg.Lookback,
		Dedupe:           e.cfg.Dedupe,
		LastPostedDealID: state.LastPostedDealID,
		RecentPosts:      recent,
	})
	e.metrics.EligibleDeals.Observe(float64(len(eligible)))
	if len(eligible) == 0 {
		return nil, models.ErrNoEligibleDeals
	}

	stats, err := e.store.RatioStats(ctx, settings.RatioWindowSize)
	if err != nil {
		return nil, fmt.Errorf("ratio stats: %w", err)
	}

	return selection.Pick(eligible, stats, settings)
}

// finish is the RECORDING stage: it writes scheduler state (unless the
// cycle was a not-due no-op), emits the audit summary, and counts the
// outcome. State is written last so a crashed cycle leaves state reading
// "nothing happened".
func (e *Engine) finish(
	ctx context.Context,
	outcome *Outcome,
	state *models.SchedulerState,
	settings *models.Settings,
	posted *models.Deal,
	successCount int,
	advance bool,
) *Outcome {
	outcome.FinishedAt = e.now()

	if advance {
		upd := database.SchedulerStateUpdate{
			LastRunAt:        outcome.StartedAt,
			NextRunAt:        outcome.StartedAt.Add(settings.Interval()),
			LastSuccessCount: successCount,
		}
		if posted != nil && successCount > 0 {
			id := posted.ID
			upd.LastPostedDealID = &id
		}

		if err := e.store.UpdateSchedulerState(ctx, state.Version, upd); err != nil {
			if errors.Is(err, models.ErrStateConflict) {
				e.logger.Warn("scheduler state write lost to a concurrent cycle")
			} else {
				e.logger.Error("failed to write scheduler state", logger.Error(err))
			}
		}
	}

	e.metrics.CyclesTotal.WithLabelValues(string(outcome.Status)).Inc()

	fields := []logger.Field{
		logger.String("status", string(outcome.Status)),
		logger.String("trigger", string(outcome.Trigger)),
		logger.Duration("elapsed", outcome.FinishedAt.Sub(outcome.StartedAt)),
	}
	if outcome.Reason != "" {
		fields = append(fields, logger.String("reason", outcome.Reason))
	}
	if outcome.DealID != "" {
		fields = append(fields,
			logger.String("deal_id", outcome.DealID),
			logger.String("language", string(outcome.Language)),
		)
	}
	if outcome.Publish != nil {
		fields = append(fields, logger.Int("platforms_succeeded", outcome.Publish.SuccessCount))
	}
	e.logger.Info("cycle finished", fields...)

	return outcome
}
