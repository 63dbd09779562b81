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

const instagramAPIBase = "https://graph.facebook.com/v19.0"

// Instagram publishes through the Graph API container flow: create a media
// container from a public image URL, publish it, then drop the link and
// hashtags as the first comment (links in the main body are against
// platform policy, so the caption render target already splits them out).
type Instagram struct {
	accountID   string
	accessToken string
	client      *http.Client
	baseURL     string
}

type instagramIDResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// NewInstagram creates the Instagram publisher.
func NewInstagram(cfg config.InstagramConfig, client *http.Client) (*Instagram, error) {
	if cfg.AccountID == "" {
		return nil, errors.New("instagram account id is required")
	}
	if cfg.AccessToken == "" {
		return nil, errors.New("instagram access token is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Instagram{
		accountID:   cfg.AccountID,
		accessToken: cfg.AccessToken,
		client:      client,
		baseURL:     instagramAPIBase,
	}, nil
}

func (i *Instagram) Name() string         { return models.PlatformInstagram }
func (i *Instagram) NeedsPublicURL() bool { return true }
func (i *Instagram) FlyerFormat() string  { return "feed" }

func (i *Instagram) Publish(ctx context.Context, caption render.Caption, img ImagePayload) (string, error) {
	if img.PublicURL == "" {
		return "", errors.New("instagram publish requires a public image URL")
	}

	containerID, err := i.post(ctx, fmt.Sprintf("%s/%s/media", i.baseURL, i.accountID), url.Values{
		"image_url":    {img.PublicURL},
		"caption":      {caption.Body},
		"access_token": {i.accessToken},
	})
	if err != nil {
		return "", fmt.Errorf("instagram create container: %w", err)
	}

	mediaID, err := i.post(ctx, fmt.Sprintf("%s/%s/media_publish", i.baseURL, i.accountID), url.Values{
		"creation_id":  {containerID},
		"access_token": {i.accessToken},
	})
	if err != nil {
		return "", fmt.Errorf("instagram publish container: %w", err)
	}

	// First comment carries the deep link and hashtags. A comment failure
	// does not undo the post; the post itself already succeeded.
	if caption.FirstComment != "" {
		_, err = i.post(ctx, fmt.Sprintf("%s/%s/comments", i.baseURL, mediaID), url.Values{
			"message":      {caption.FirstComment},
			"access_token": {i.accessToken},
		})
		if err != nil {
			return mediaID, fmt.Errorf("instagram first comment: %w", err)
		}
	}

	return mediaID, nil
}

func (i *Instagram) post(ctx context.Context, endpoint string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var parsed instagramIDResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("api error (code %d): %s", parsed.Error.Code, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api returned %d", resp.StatusCode)
	}

	return parsed.ID, nil
}
