// Package orchestrator delivers one rendered deal to every enabled platform
// and records each attempt. Platform failures are isolated: no attempt can
// block a sibling or fail the cycle.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/dealwire/social-engine/internal/logger"
	"github.com/dealwire/social-engine/internal/metrics"
	"github.com/dealwire/social-engine/internal/models"
	"github.com/dealwire/social-engine/internal/platform"
	"github.com/dealwire/social-engine/internal/render"
	"github.com/dealwire/social-engine/internal/storage"
)

// HistoryWriter records one post history entry per attempt.
type HistoryWriter interface {
	CreatePostHistory(ctx context.Context, entry *models.PostHistory) error
}

// PlatformResult is the outcome of one platform attempt.
type PlatformResult struct {
	Platform string `json:"platform"`
	Success  bool   `json:"success"`
	PostID   string `json:"post_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Result summarizes one publication round.
type Result struct {
	Results      []PlatformResult `json:"results"`
	SuccessCount int              `json:"success_count"`
}

// Orchestrator attempts delivery to each enabled platform sequentially and
// independently.
type Orchestrator struct {
	publishers     map[string]platform.Publisher
	store          storage.ObjectStore
	history        HistoryWriter
	limiter        *rate.Limiter
	metrics        *metrics.Metrics
	logger         logger.Logger
	tracer         trace.Tracer
	publishTimeout time.Duration
}

// Config holds orchestrator construction options.
type Config struct {
	PublishTimeout time.Duration
	RateLimit      float64 // publish calls per second
}

// New creates an orchestrator over the given publishers.
func New(
	publishers []platform.Publisher,
	store storage.ObjectStore,
	history HistoryWriter,
	m *metrics.Metrics,
	cfg Config,
	log logger.Logger,
) *Orchestrator {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 30 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 1
	}

	byName := make(map[string]platform.Publisher, len(publishers))
	for _, p := range publishers {
		byName[p.Name()] = p
	}

	return &Orchestrator{
		publishers:     byName,
		store:          store,
		history:        history,
		limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		metrics:        m,
		logger:         log,
		tracer:         otel.Tracer("publish-orchestrator"),
		publishTimeout: cfg.PublishTimeout,
	}
}

// Request carries everything needed for one publication round.
type Request struct {
	Deal             *models.Deal
	Language         models.Language
	Captions         map[string]render.Caption
	Flyers           []render.Flyer
	EnabledPlatforms []string
	Mode             models.PostMode
}

// Publish attempts every enabled platform in order. Each attempt gets its
// own timeout; a timed-out or failed attempt is recorded and the next
// platform is still tried. The returned result reflects partial success and
// is never an error.
func (o *Orchestrator) Publish(ctx context.Context, req *Request) *Result {
	result := &Result{}

	for _, name := range req.EnabledPlatforms {
		pr := o.publishOne(ctx, name, req)
		result.Results = append(result.Results, pr)
		if pr.Success {
			result.SuccessCount++
		}

		o.recordAttempt(ctx, req, pr)
	}

	return result
}

func (o *Orchestrator) publishOne(ctx context.Context, name string, req *Request) PlatformResult {
	ctx, span := o.tracer.Start(ctx, "publish.attempt",
		trace.WithAttributes(
			attribute.String("platform", name),
			attribute.String("deal_id", req.Deal.ID.String()),
		))
	defer span.End()

	pub, ok := o.publishers[name]
	if !ok {
		return PlatformResult{Platform: name, Error: models.ErrUnknownPlatform.Error()}
	}

	caption, ok := req.Captions[name]
	if !ok {
		return PlatformResult{Platform: name, Error: fmt.Sprintf("no caption rendered for %s", name)}
	}

	flyer := flyerForFormat(req.Flyers, pub.FlyerFormat())
	if flyer == nil {
		return PlatformResult{Platform: name, Error: fmt.Sprintf("no %s flyer rendered", pub.FlyerFormat())}
	}

	img := platform.ImagePayload{Bytes: flyer.PNG}

	// Platforms taking a URL instead of bytes publish through the object
	// store: upload first, delete on success, retain on failure so the
	// artifact stays available for diagnosis.
	var objectKey string
	if pub.NeedsPublicURL() {
		objectKey = fmt.Sprintf("%s/%s-%s.png", req.Deal.ID, name, uuid.New())

		publicURL, err := o.store.Upload(ctx, objectKey, flyer.PNG)
		if err != nil {
			return PlatformResult{Platform: name, Error: fmt.Sprintf("stage image: %v", err)}
		}
		img.PublicURL = publicURL
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return PlatformResult{Platform: name, Error: fmt.Sprintf("rate limit wait: %v", err)}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, o.publishTimeout)
	defer cancel()

	postID, err := pub.Publish(attemptCtx, caption, img)
	if err != nil {
		o.logger.Warn("platform publish failed",
			logger.String("platform", name),
			logger.String("deal_id", req.Deal.ID.String()),
			logger.Error(err),
		)
		return PlatformResult{Platform: name, PostID: postID, Error: err.Error()}
	}

	if objectKey != "" {
		if delErr := o.store.Delete(ctx, objectKey); delErr != nil {
			// Cleanup is best-effort; a stray temp object never fails the
			// attempt.
			o.logger.Warn("temp object cleanup failed",
				logger.String("key", objectKey),
				logger.Error(delErr),
			)
		}
	}

	return PlatformResult{Platform: name, Success: true, PostID: postID}
}

func (o *Orchestrator) recordAttempt(ctx context.Context, req *Request, pr PlatformResult) {
	entry := &models.PostHistory{
		DealID:      req.Deal.ID,
		Platform:    pr.Platform,
		Success:     pr.Success,
		ErrorDetail: pr.Error,
		Mode:        req.Mode,
		IsAffiliate: req.Deal.IsAffiliate,
		Language:    req.Language,
		PlatformRef: pr.PostID,
	}

	if err := o.history.CreatePostHistory(ctx, entry); err != nil {
		o.logger.Error("failed to record post history",
			logger.String("platform", pr.Platform),
			logger.String("deal_id", req.Deal.ID.String()),
			logger.Error(err),
		)
	}

	resultLabel := "failure"
	if pr.Success {
		resultLabel = "success"
	}
	o.metrics.PublishAttempts.WithLabelValues(pr.Platform, resultLabel).Inc()
}

func flyerForFormat(flyers []render.Flyer, format string) *render.Flyer {
	for i := range flyers {
		if flyers[i].Format.Name == format {
			return &flyers[i]
		}
	}
	return nil
}
