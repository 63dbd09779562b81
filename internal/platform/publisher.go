// Package platform holds the social platform publishers. Each publisher is
// an opaque collaborator: authentication and wire details are its own
// concern, and the orchestrator only sees Publish returning a post ID or an
// error.
package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dealwire/social-engine/internal/render"
)

// ImagePayload carries the flyer for one publish attempt. Bytes is always
// set; PublicURL is set by the orchestrator only for publishers that
// declare NeedsPublicURL.
type ImagePayload struct {
	Bytes     []byte
	PublicURL string
}

// Publisher is the single polymorphic interface all four platforms
// implement.
type Publisher interface {
	// Name returns the platform identifier used in settings and history.
	Name() string

	// NeedsPublicURL reports whether the platform API takes an image URL
	// rather than inline bytes, requiring the temporary object store.
	NeedsPublicURL() bool

	// FlyerFormat names which of the rendered formats this platform posts.
	FlyerFormat() string

	// Publish delivers one post and returns the platform's post identifier.
	Publish(ctx context.Context, caption render.Caption, img ImagePayload) (string, error)
}

// apiError summarizes a non-2xx platform response.
func apiError(platform string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s api returned %d: %s", platform, resp.StatusCode, string(body))
}
