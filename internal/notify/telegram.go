package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"

	"cleaning-calculator/internal/config"
	"cleaning-calculator/internal/models"
)

// TelegramNotifier отправляет сообщения через Telegram Bot API
type TelegramNotifier struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
}

// NewTelegramNotifier создает уведомитель Telegram
func NewTelegramNotifier(cfg *config.TelegramConfig, client *http.Client) *TelegramNotifier {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &TelegramNotifier{
		baseURL: baseURL,
		token:   cfg.BotToken,
		chatID:  cfg.ChatID,
		client:  client,
	}
}

func (n *TelegramNotifier) Channel() string { return ChannelTelegram }

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NotifyQuote отправляет сводку по заявке в чат
func (n *TelegramNotifier) NotifyQuote(ctx context.Context, quote *models.Quote) error {
	if n.token == "" || n.chatID == "" {
		return fmt.Errorf("telegram bot token and chat id are required")
	}

	text := "<b>New cleaning quote</b>\n" + strings.Join(quoteLines(quote, html.EscapeString), "\n")
	body, err := json.Marshal(telegramMessage{ChatID: n.chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return fmt.Errorf("failed to encode telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		// url содержит токен, в ошибку его не отдаем
		return fmt.Errorf("telegram request failed")
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var result telegramResponse
	_ = json.Unmarshal(raw, &result)

	if resp.StatusCode != http.StatusOK || !result.OK {
		if result.Description != "" {
			return fmt.Errorf("telegram API error (%d): %s", resp.StatusCode, result.Description)
		}
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}
