package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"cleaning-calculator/internal/config"
	"cleaning-calculator/internal/models"
)

// SignatureHeader: заголовок с HMAC-SHA256 тела запроса
const SignatureHeader = "X-HCC-Signature"

// WebhookNotifier отправляет заявку POST запросом на внешний URL
type WebhookNotifier struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhookNotifier создает уведомитель вебхука
func NewWebhookNotifier(cfg *config.WebhookConfig, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &WebhookNotifier{url: cfg.URL, secret: cfg.Secret, client: client}
}

func (n *WebhookNotifier) Channel() string { return ChannelWebhook }

type webhookPayload struct {
	Event models.EventType `json:"event"`
	Quote *models.Quote    `json:"quote"`
}

// NotifyQuote отправляет событие quote.created
func (n *WebhookNotifier) NotifyQuote(ctx context.Context, quote *models.Quote) error {
	if n.url == "" {
		return fmt.Errorf("webhook url is not configured")
	}

	body, err := json.Marshal(webhookPayload{Event: models.EventTypeQuoteCreated, Quote: quote})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign возвращает hex HMAC-SHA256 тела с заданным секретом
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
