package orchestrator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealwire/social-engine/internal/logger"
	"github.com/dealwire/social-engine/internal/metrics"
	"github.com/dealwire/social-engine/internal/models"
	"github.com/dealwire/social-engine/internal/orchestrator"
	"github.com/dealwire/social-engine/internal/platform"
	"github.com/dealwire/social-engine/internal/render"
)

type fakePublisher struct {
	name     string
	needsURL bool
	fail     bool
	slow     time.Duration
	gotURL   string
}

func (p *fakePublisher) Name() string         { return p.name }
func (p *fakePublisher) NeedsPublicURL() bool { return p.needsURL }
func (p *fakePublisher) FlyerFormat() string  { return "square" }

func (p *fakePublisher) Publish(ctx context.Context, _ render.Caption, img platform.ImagePayload) (string, error) {
	p.gotURL = img.PublicURL
	if p.slow > 0 {
		select {
		case <-time.After(p.slow):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if p.fail {
		return "", errors.New("platform exploded")
	}
	return p.name + "-post-1", nil
}

type fakeStore struct {
	uploads int
	deletes int
	failUp  bool
}

func (s *fakeStore) Upload(_ context.Context, key string, _ []byte) (string, error) {
	s.uploads++
	if s.failUp {
		return "", errors.New("bucket unreachable")
	}
	return "https://cdn.dealwire.io/" + key, nil
}

func (s *fakeStore) Delete(context.Context, string) error {
	s.deletes++
	return nil
}

type fakeHistory struct {
	entries []models.PostHistory
}

func (h *fakeHistory) CreatePostHistory(_ context.Context, e *models.PostHistory) error {
	h.entries = append(h.entries, *e)
	return nil
}

func testRequest(platforms []string) *orchestrator.Request {
	deal := &models.Deal{ID: uuid.New(), IsAffiliate: true}
	captions := map[string]render.Caption{}
	for _, p := range platforms {
		captions[p] = render.Caption{Platform: p, Body: "body"}
	}
	return &orchestrator.Request{
		Deal:     deal,
		Language: models.LanguageEN,
		Captions: captions,
		Flyers: []render.Flyer{
			{Format: render.FlyerFormat{Name: "square", Width: 1080, Height: 1080}, PNG: []byte("png")},
		},
		EnabledPlatforms: platforms,
		Mode:             models.PostModeAuto,
	}
}

func newOrchestrator(pubs []platform.Publisher, store *fakeStore, history *fakeHistory) *orchestrator.Orchestrator {
	return orchestrator.New(pubs, store, history, metrics.NewNop(),
		orchestrator.Config{PublishTimeout: time.Second, RateLimit: 1000},
		logger.NewNopLogger())
}

func TestPartialSuccessDoesNotBlockSiblings(t *testing.T) {
	pubs := []platform.Publisher{
		&fakePublisher{name: "telegram"},
		&fakePublisher{name: "facebook", fail: true},
		&fakePublisher{name: "twitter"},
		&fakePublisher{name: "instagram"},
	}
	history := &fakeHistory{}
	o := newOrchestrator(pubs, &fakeStore{}, history)

	result := o.Publish(context.Background(),
		testRequest([]string{"telegram", "facebook", "twitter", "instagram"}))

	assert.Equal(t, 3, result.SuccessCount)
	require.Len(t, result.Results, 4)
	assert.False(t, result.Results[1].Success)
	assert.Contains(t, result.Results[1].Error, "platform exploded")

	// One history entry per attempt, failures included.
	require.Len(t, history.entries, 4)
	failed := history.entries[1]
	assert.Equal(t, "facebook", failed.Platform)
	assert.False(t, failed.Success)
	assert.NotEmpty(t, failed.ErrorDetail)
	assert.True(t, failed.IsAffiliate)
	assert.Equal(t, models.PostModeAuto, failed.Mode)
}

func TestAllPlatformsFailingIsStillAResult(t *testing.T) {
	pubs := []platform.Publisher{
		&fakePublisher{name: "telegram", fail: true},
		&fakePublisher{name: "twitter", fail: true},
	}
	history := &fakeHistory{}
	o := newOrchestrator(pubs, &fakeStore{}, history)

	result := o.Publish(context.Background(), testRequest([]string{"telegram", "twitter"}))

	assert.Equal(t, 0, result.SuccessCount)
	assert.Len(t, history.entries, 2)
}

func TestPublicURLStagingAndCleanup(t *testing.T) {
	pub := &fakePublisher{name: "instagram", needsURL: true}
	store := &fakeStore{}
	o := newOrchestrator([]platform.Publisher{pub}, store, &fakeHistory{})

	result := o.Publish(context.Background(), testRequest([]string{"instagram"}))

	assert.Equal(t, 1, result.SuccessCount)
	assert.Contains(t, pub.gotURL, "https://cdn.dealwire.io/")
	assert.Equal(t, 1, store.uploads)
	assert.Equal(t, 1, store.deletes)
}

func TestFailedPublishRetainsStagedObject(t *testing.T) {
	pub := &fakePublisher{name: "instagram", needsURL: true, fail: true}
	store := &fakeStore{}
	o := newOrchestrator([]platform.Publisher{pub}, store, &fakeHistory{})

	result := o.Publish(context.Background(), testRequest([]string{"instagram"}))

	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, 1, store.uploads)
	assert.Equal(t, 0, store.deletes, "failed publish keeps object for diagnosis")
}

func TestUploadFailureIsRecordedAsAttempt(t *testing.T) {
	pub := &fakePublisher{name: "facebook", needsURL: true}
	history := &fakeHistory{}
	o := newOrchestrator([]platform.Publisher{pub}, &fakeStore{failUp: true}, history)

	result := o.Publish(context.Background(), testRequest([]string{"facebook"}))

	assert.Equal(t, 0, result.SuccessCount)
	require.Len(t, history.entries, 1)
	assert.Contains(t, history.entries[0].ErrorDetail, "stage image")
}

func TestTimedOutPlatformDoesNotStallOthers(t *testing.T) {
	pubs := []platform.Publisher{
		&fakePublisher{name: "telegram", slow: 5 * time.Second},
		&fakePublisher{name: "twitter"},
	}
	history := &fakeHistory{}
	o := newOrchestrator(pubs, &fakeStore{}, history)

	result := o.Publish(context.Background(), testRequest([]string{"telegram", "twitter"}))

	assert.Equal(t, 1, result.SuccessCount)
	require.Len(t, result.Results, 2)
	assert.False(t, result.Results[0].Success)
	assert.True(t, result.Results[1].Success)
}

func TestUnknownPlatformRecorded(t *testing.T) {
	history := &fakeHistory{}
	o := newOrchestrator(nil, &fakeStore{}, history)

	result := o.Publish(context.Background(), testRequest([]string{"myspace"}))

	assert.Equal(t, 0, result.SuccessCount)
	require.Len(t, history.entries, 1)
	assert.Equal(t, "myspace", history.entries[0].Platform)
}
