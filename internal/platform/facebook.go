package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dealwire/social-engine/internal/config"
	"github.com/dealwire/social-engine/internal/models"
	"github.com/dealwire/social-engine/internal/render"
)

const facebookAPIBase = "https://graph.facebook.com/v19.0"

// Facebook posts a photo to a page via the Graph API. The photos endpoint
// takes an image URL, so the orchestrator stages the flyer in the object
// store first.
type Facebook struct {
	pageID      string
	accessToken string
	client      *http.Client
	baseURL     string
}

type facebookResponse struct {
	PostID string `json:"post_id"`
	ID     string `json:"id"`
	Error  *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// NewFacebook creates the Facebook page publisher.
func NewFacebook(cfg config.FacebookConfig, client *http.Client) (*Facebook, error) {
	if cfg.PageID == "" {
		return nil, errors.New("facebook page id is required")
	}
	if cfg.AccessToken == "" {
		return nil, errors.New("facebook access token is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Facebook{
		pageID:      cfg.PageID,
		accessToken: cfg.AccessToken,
		client:      client,
		baseURL:     facebookAPIBase,
	}, nil
}

func (f *Facebook) Name() string         { return models.PlatformFacebook }
func (f *Facebook) NeedsPublicURL() bool { return true }
func (f *Facebook) FlyerFormat() string  { return "feed" }

func (f *Facebook) Publish(ctx context.Context, caption render.Caption, img ImagePayload) (string, error) {
	if img.PublicURL == "" {
		return "", errors.New("facebook publish requires a public image URL")
	}

	form := url.Values{}
	form.Set("url", img.PublicURL)
	form.Set("message", caption.Body)
	form.Set("access_token", f.accessToken)

	endpoint := fmt.Sprintf("%s/%s/photos", f.baseURL, f.pageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("facebook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("facebook send: %w", err)
	}
	defer resp.Body.Close()

	var parsed facebookResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("facebook response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("facebook rejected post (code %d): %s", parsed.Error.Code, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("facebook api returned %d", resp.StatusCode)
	}

	if parsed.PostID != "" {
		return parsed.PostID, nil
	}
	return parsed.ID, nil
}
