// Package scheduler drives the cycle engine from a cron expression. The
// engine's own next-run stamp is the source of truth for cadence; the cron
// tick only decides how often that stamp is consulted.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dealwire/social-engine/internal/engine"
	"github.com/dealwire/social-engine/internal/logger"
)

// CycleRunner is the engine surface the scheduler drives.
type CycleRunner interface {
	RunCycle(ctx context.Context, trig engine.Trigger) (*engine.Outcome, error)
}

// Scheduler owns the cron loop for automated cycle triggers.
type Scheduler struct {
	cron   *cron.Cron
	runner CycleRunner
	logger logger.Logger

	cycleTimeout time.Duration
}

// New creates a scheduler. Overlapping ticks are skipped rather than queued,
// so a slow cycle can never pile up behind itself.
func New(runner CycleRunner, loc *time.Location, cycleTimeout time.Duration, log logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if cycleTimeout <= 0 {
		cycleTimeout = 5 * time.Minute
	}

	cl := &cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
		),
		runner:       runner,
		logger:       log,
		cycleTimeout: cycleTimeout,
	}
}

// Start registers the cycle job under the given cron spec and begins
// ticking. It returns immediately; the cron loop runs in its own goroutine.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	s.cron.Start()
	s.logger.Info("cycle scheduler started", logger.String("spec", spec))
	return nil
}

// Stop halts the cron loop and waits for an in-flight cycle to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("cycle scheduler stopped")
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cycleTimeout)
	defer cancel()

	if _, err := s.runner.RunCycle(ctx, engine.TriggerAuto); err != nil {
		s.logger.Error("scheduled cycle failed", logger.Error(err))
	}
}

// cronLogger adapts the structured logger to the cron library's interface.
type cronLogger struct {
	log logger.Logger
}

func (c *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(fmt.Sprintf("cron: %s %v", msg, keysAndValues))
}

func (c *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error(fmt.Sprintf("cron: %s %v", msg, keysAndValues), logger.Error(err))
}
