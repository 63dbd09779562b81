package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealwire/social-engine/internal/engine"
	"github.com/dealwire/social-engine/internal/logger"
)

type recordingRunner struct {
	trigger engine.Trigger
	calls   int
	err     error
}

func (r *recordingRunner) RunCycle(_ context.Context, trig engine.Trigger) (*engine.Outcome, error) {
	r.calls++
	r.trigger = trig
	return &engine.Outcome{Status: engine.StatusSkipped}, r.err
}

func TestTickRunsAutoCycle(t *testing.T) {
	runner := &recordingRunner{}
	s := New(runner, time.UTC, time.Second, logger.NewNopLogger())

	s.tick()

	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, engine.TriggerAuto, runner.trigger)
}

func TestTickSurvivesCycleError(t *testing.T) {
	runner := &recordingRunner{err: errors.New("db down")}
	s := New(runner, time.UTC, time.Second, logger.NewNopLogger())

	assert.NotPanics(t, func() { s.tick() })
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	s := New(&recordingRunner{}, time.UTC, time.Second, logger.NewNopLogger())

	err := s.Start("not a cron spec")
	require.Error(t, err)
}

func TestStartAndStop(t *testing.T) {
	s := New(&recordingRunner{}, time.UTC, time.Second, logger.NewNopLogger())

	require.NoError(t, s.Start("@hourly"))
	s.Stop()
}
