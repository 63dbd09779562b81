package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealwire/social-engine/internal/config"
	"github.com/dealwire/social-engine/internal/render"
)

var testCaption = render.Caption{
	Platform: "test",
	Body:     "🔥 Deal alert! Cordless Drill\n$69.99",
}

var testImage = ImagePayload{Bytes: []byte("png-bytes"), PublicURL: "https://cdn.dealwire.io/flyers/x.png"}

func TestTelegramPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "chat-1", r.FormValue("chat_id"))
		assert.Contains(t, r.FormValue("caption"), "Cordless Drill")
		w.Write([]byte(`{"ok":true,"result":{"message_id":4242}}`))
	}))
	defer srv.Close()

	tg, err := NewTelegram(config.TelegramConfig{BotToken: "tok", ChatID: "chat-1"}, srv.Client())
	require.NoError(t, err)
	tg.baseURL = srv.URL

	id, err := tg.Publish(context.Background(), testCaption, testImage)
	require.NoError(t, err)
	assert.Equal(t, "4242", id)
}

func TestTelegramPublishRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	tg, err := NewTelegram(config.TelegramConfig{BotToken: "tok", ChatID: "chat-1"}, srv.Client())
	require.NoError(t, err)
	tg.baseURL = srv.URL

	_, err = tg.Publish(context.Background(), testCaption, testImage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestFacebookPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, testImage.PublicURL, r.FormValue("url"))
		w.Write([]byte(`{"id":"111","post_id":"page_111"}`))
	}))
	defer srv.Close()

	fb, err := NewFacebook(config.FacebookConfig{PageID: "page", AccessToken: "tok"}, srv.Client())
	require.NoError(t, err)
	fb.baseURL = srv.URL

	id, err := fb.Publish(context.Background(), testCaption, testImage)
	require.NoError(t, err)
	assert.Equal(t, "page_111", id)
}

func TestFacebookRequiresPublicURL(t *testing.T) {
	fb, err := NewFacebook(config.FacebookConfig{PageID: "page", AccessToken: "tok"}, nil)
	require.NoError(t, err)

	_, err = fb.Publish(context.Background(), testCaption, ImagePayload{Bytes: []byte("x")})
	assert.Error(t, err)
}

func TestInstagramPublishFlow(t *testing.T) {
	var steps []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch {
		case r.URL.Path == "/acct/media":
			steps = append(steps, "container")
			assert.Equal(t, testImage.PublicURL, r.FormValue("image_url"))
			w.Write([]byte(`{"id":"container-1"}`))
		case r.URL.Path == "/acct/media_publish":
			steps = append(steps, "publish")
			assert.Equal(t, "container-1", r.FormValue("creation_id"))
			w.Write([]byte(`{"id":"media-9"}`))
		case r.URL.Path == "/media-9/comments":
			steps = append(steps, "comment")
			assert.Contains(t, r.FormValue("message"), "#dealwire")
			w.Write([]byte(`{"id":"comment-1"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	ig, err := NewInstagram(config.InstagramConfig{AccountID: "acct", AccessToken: "tok"}, srv.Client())
	require.NoError(t, err)
	ig.baseURL = srv.URL

	caption := testCaption
	caption.FirstComment = "https://dealwire.io/deals/x\n\n#dealwire"

	id, err := ig.Publish(context.Background(), caption, testImage)
	require.NoError(t, err)
	assert.Equal(t, "media-9", id)
	assert.Equal(t, []string{"container", "publish", "comment"}, steps)
}

func TestConstructorValidation(t *testing.T) {
	_, err := NewTelegram(config.TelegramConfig{}, nil)
	assert.Error(t, err)

	_, err = NewFacebook(config.FacebookConfig{PageID: "p"}, nil)
	assert.Error(t, err)

	_, err = NewTwitter(config.TwitterConfig{APIKey: "k"}, nil)
	assert.Error(t, err)

	_, err = NewInstagram(config.InstagramConfig{AccountID: "a"}, nil)
	assert.Error(t, err)
}

type flakyPublisher struct {
	name  string
	calls int
	fail  bool
}

func (p *flakyPublisher) Name() string         { return p.name }
func (p *flakyPublisher) NeedsPublicURL() bool { return false }
func (p *flakyPublisher) FlyerFormat() string  { return "square" }

func (p *flakyPublisher) Publish(context.Context, render.Caption, ImagePayload) (string, error) {
	p.calls++
	if p.fail {
		return "", errors.New("boom")
	}
	return "ok-1", nil
}

func TestBreakerTripsAfterRepeatedFailures(t *testing.T) {
	inner := &flakyPublisher{name: "twitter", fail: true}
	wrapped := WithBreaker(inner)

	for i := 0; i < 5; i++ {
		_, err := wrapped.Publish(context.Background(), testCaption, testImage)
		require.Error(t, err)
	}

	// Once open, the breaker short-circuits without calling the platform.
	assert.Less(t, inner.calls, 5)
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	inner := &flakyPublisher{name: "telegram"}
	wrapped := WithBreaker(inner)

	id, err := wrapped.Publish(context.Background(), testCaption, testImage)
	require.NoError(t, err)
	assert.Equal(t, "ok-1", id)
	assert.Equal(t, wrapped.Name(), "telegram")
}
