package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/dealwire/social-engine/internal/config"
	"github.com/dealwire/social-engine/internal/models"
	"github.com/dealwire/social-engine/internal/render"
)

const telegramAPIBase = "https://api.telegram.org"

// Telegram posts the flyer with the caption via the bot sendPhoto endpoint.
// Telegram accepts inline bytes, so no public URL is needed.
type Telegram struct {
	botToken string
	chatID   string
	client   *http.Client
	baseURL  string
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// NewTelegram creates the Telegram publisher.
func NewTelegram(cfg config.TelegramConfig, client *http.Client) (*Telegram, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("telegram bot token is required")
	}
	if cfg.ChatID == "" {
		return nil, errors.New("telegram chat id is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Telegram{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		client:   client,
		baseURL:  telegramAPIBase,
	}, nil
}

func (t *Telegram) Name() string         { return models.PlatformTelegram }
func (t *Telegram) NeedsPublicURL() bool { return false }
func (t *Telegram) FlyerFormat() string  { return "square" }

func (t *Telegram) Publish(ctx context.Context, caption render.Caption, img ImagePayload) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if err := w.WriteField("chat_id", t.chatID); err != nil {
		return "", fmt.Errorf("telegram form: %w", err)
	}
	if err := w.WriteField("caption", caption.Body); err != nil {
		return "", fmt.Errorf("telegram form: %w", err)
	}
	part, err := w.CreateFormFile("photo", "flyer.png")
	if err != nil {
		return "", fmt.Errorf("telegram form: %w", err)
	}
	if _, err := part.Write(img.Bytes); err != nil {
		return "", fmt.Errorf("telegram form: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("telegram form: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendPhoto", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("telegram request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError(models.PlatformTelegram, resp)
	}

	var parsed telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("telegram response: %w", err)
	}
	if !parsed.OK {
		return "", fmt.Errorf("telegram rejected post: %s", parsed.Description)
	}

	return strconv.FormatInt(parsed.Result.MessageID, 10), nil
}
