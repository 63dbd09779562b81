package platform

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dealwire/social-engine/internal/config"
	"github.com/dealwire/social-engine/internal/models"
	"github.com/dealwire/social-engine/internal/render"
)

const (
	twitterUploadURL = "https://upload.twitter.com/1.1/media/upload.json"
	twitterTweetURL  = "https://api.twitter.com/2/tweets"
)

// Twitter publishes via the two-step media-upload-then-tweet flow with
// OAuth 1.0a request signing. Media is sent inline, so no public URL is
// needed.
type Twitter struct {
	apiKey       string
	apiSecret    string
	accessToken  string
	accessSecret string
	client       *http.Client
	uploadURL    string
	tweetURL     string
}

type twitterMediaResponse struct {
	MediaIDString string `json:"media_id_string"`
}

type twitterTweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// NewTwitter creates the Twitter publisher.
func NewTwitter(cfg config.TwitterConfig, client *http.Client) (*Twitter, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" || cfg.AccessToken == "" || cfg.AccessSecret == "" {
		return nil, errors.New("twitter credentials are incomplete")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Twitter{
		apiKey:       cfg.APIKey,
		apiSecret:    cfg.APISecret,
		accessToken:  cfg.AccessToken,
		accessSecret: cfg.AccessSecret,
		client:       client,
		uploadURL:    twitterUploadURL,
		tweetURL:     twitterTweetURL,
	}, nil
}

func (t *Twitter) Name() string         { return models.PlatformTwitter }
func (t *Twitter) NeedsPublicURL() bool { return false }
func (t *Twitter) FlyerFormat() string  { return "square" }

func (t *Twitter) Publish(ctx context.Context, caption render.Caption, img ImagePayload) (string, error) {
	mediaID, err := t.uploadMedia(ctx, img.Bytes)
	if err != nil {
		return "", err
	}
	return t.createTweet(ctx, caption.Body, mediaID)
}

func (t *Twitter) uploadMedia(ctx context.Context, png []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("media", "flyer.png")
	if err != nil {
		return "", fmt.Errorf("twitter media form: %w", err)
	}
	if _, err := part.Write(png); err != nil {
		return "", fmt.Errorf("twitter media form: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("twitter media form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.uploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("twitter media request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", t.oauthHeader(http.MethodPost, t.uploadURL))

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("twitter media upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apiError(models.PlatformTwitter, resp)
	}

	var parsed twitterMediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("twitter media response: %w", err)
	}
	return parsed.MediaIDString, nil
}

func (t *Twitter) createTweet(ctx context.Context, text, mediaID string) (string, error) {
	payload := map[string]any{
		"text": text,
		"media": map[string]any{
			"media_ids": []string{mediaID},
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("twitter tweet payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tweetURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("twitter tweet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", t.oauthHeader(http.MethodPost, t.tweetURL))

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("twitter tweet send: %w", err)
	}
	defer resp.Body.Close()

	var parsed twitterTweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("twitter tweet response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return "", fmt.Errorf("twitter rejected tweet: %s", parsed.Errors[0].Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("twitter api returned %d", resp.StatusCode)
	}

	return parsed.Data.ID, nil
}

// oauthHeader builds an OAuth 1.0a Authorization header for a request with
// no query or form parameters participating in the signature (OAuth 1.0a
// excludes media and JSON bodies from signing).
func (t *Twitter) oauthHeader(method, rawURL string) string {
	nonce := make([]byte, 16)
	_, _ = rand.Read(nonce)

	params := map[string]string{
		"oauth_consumer_key":     t.apiKey,
		"oauth_nonce":            hex.EncodeToString(nonce),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        fmt.Sprintf("%d", time.Now().Unix()),
		"oauth_token":            t.accessToken,
		"oauth_version":          "1.0",
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var paramPairs []string
	for _, k := range keys {
		paramPairs = append(paramPairs, url.QueryEscape(k)+"="+url.QueryEscape(params[k]))
	}

	base := strings.Join([]string{
		method,
		url.QueryEscape(rawURL),
		url.QueryEscape(strings.Join(paramPairs, "&")),
	}, "&")

	signingKey := url.QueryEscape(t.apiSecret) + "&" + url.QueryEscape(t.accessSecret)
	mac := hmac.New(sha1.New, []byte(signingKey))
	mac.Write([]byte(base))
	params["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	var headerPairs []string
	for _, k := range append(keys, "oauth_signature") {
		headerPairs = append(headerPairs, fmt.Sprintf("%s=%q", k, url.QueryEscape(params[k])))
	}
	return "OAuth " + strings.Join(headerPairs, ", ")
}
