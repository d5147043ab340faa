package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cleaning-calculator/internal/apperror"
	"cleaning-calculator/internal/config"
	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/models"
)

// Dispatcher рассылает уведомления по всем включенным каналам
type Dispatcher struct {
	notifiers []Notifier
	known     map[string]bool
	timeout   time.Duration
	log       *logger.Logger
}

// NewDispatcher собирает включенные в конфигурации каналы
func NewDispatcher(cfg *config.NotificationsConfig, log *logger.Logger) *Dispatcher {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var notifiers []Notifier
	if cfg.Telegram.Enabled {
		notifiers = append(notifiers, NewTelegramNotifier(&cfg.Telegram, client))
	}
	if cfg.SMTP.Enabled {
		notifiers = append(notifiers, NewEmailNotifier(&cfg.SMTP))
	}
	if cfg.Webhook.Enabled {
		notifiers = append(notifiers, NewWebhookNotifier(&cfg.Webhook, client))
	}

	return NewDispatcherWith(log, timeout, notifiers...)
}

// NewDispatcherWith создает диспетчер с готовым набором каналов
func NewDispatcherWith(log *logger.Logger, timeout time.Duration, notifiers ...Notifier) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{
		notifiers: notifiers,
		known:     map[string]bool{ChannelTelegram: true, ChannelEmail: true, ChannelWebhook: true},
		timeout:   timeout,
		log:       log,
	}
}

// Channels возвращает включенные каналы
func (d *Dispatcher) Channels() []string {
	channels := make([]string, 0, len(d.notifiers))
	for _, n := range d.notifiers {
		channels = append(channels, n.Channel())
	}
	return channels
}

// NotifyQuote отправляет заявку во все каналы. Ошибка одного канала не
// мешает остальным; возвращаются все ошибки вместе.
func (d *Dispatcher) NotifyQuote(ctx context.Context, quote *models.Quote) error {
	var errs []error
	for _, n := range d.notifiers {
		if err := d.send(ctx, n, quote); err != nil {
			d.log.WithError(err).WithFields(map[string]interface{}{
				"channel":  n.Channel(),
				"quote_id": quote.ID,
			}).Warn("Failed to send quote notification")
			errs = append(errs, fmt.Errorf("%s: %w", n.Channel(), err))
			continue
		}
		d.log.WithFields(map[string]interface{}{
			"channel":  n.Channel(),
			"quote_id": quote.ID,
		}).Info("Quote notification sent")
	}
	return errors.Join(errs...)
}

// Test отправляет тестовую заявку в один канал
func (d *Dispatcher) Test(ctx context.Context, channel string) error {
	if !d.known[channel] {
		return apperror.NotFound(fmt.Sprintf("unknown notification channel %q", channel), nil)
	}
	for _, n := range d.notifiers {
		if n.Channel() == channel {
			if err := d.send(ctx, n, SampleQuote()); err != nil {
				return apperror.Validation(fmt.Sprintf("%s notification failed: %v", channel, err), err)
			}
			return nil
		}
	}
	return apperror.Validation(fmt.Sprintf("notification channel %q is disabled", channel), nil)
}

func (d *Dispatcher) send(ctx context.Context, n Notifier, quote *models.Quote) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return n.NotifyQuote(ctx, quote)
}
