package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cleaning-calculator/internal/config"
	"cleaning-calculator/internal/models"

	"github.com/wneessen/go-mail"
)

type sendFunc func(ctx context.Context, msg *mail.Msg) error

// EmailNotifier отправляет письма администратору и, опционально, клиенту
type EmailNotifier struct {
	cfg      config.SMTPConfig
	sendMail sendFunc
	now      func() time.Time
}

// NewEmailNotifier создает уведомитель по SMTP
func NewEmailNotifier(cfg *config.SMTPConfig) *EmailNotifier {
	n := &EmailNotifier{
		cfg: *cfg,
		now: time.Now,
	}
	n.sendMail = n.dialAndSend
	return n
}

func (n *EmailNotifier) Channel() string { return ChannelEmail }

// NotifyQuote отправляет письмо администратору; подтверждение клиенту
// отправляется, если включено NotifyClient.
func (n *EmailNotifier) NotifyQuote(ctx context.Context, quote *models.Quote) error {
	if n.cfg.AdminEmail == "" {
		return fmt.Errorf("admin email is not configured")
	}

	adminBody := strings.Join(quoteLines(quote, nil), "\r\n")
	if err := n.send(ctx, n.cfg.AdminEmail, "New cleaning quote from "+quote.ClientName, adminBody); err != nil {
		return fmt.Errorf("admin email: %w", err)
	}

	if n.cfg.NotifyClient && quote.ClientEmail != "" {
		body := "Hello " + quote.ClientName + ",\r\n\r\nWe have received your request. Summary:\r\n\r\n" +
			strings.Join(quoteLines(quote, nil), "\r\n") +
			"\r\n\r\nWe will contact you shortly."
		if err := n.send(ctx, quote.ClientEmail, "Your cleaning quote", body); err != nil {
			return fmt.Errorf("client email: %w", err)
		}
	}
	return nil
}

func (n *EmailNotifier) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := n.buildMessage(to, subject, body)
	if err != nil {
		return err
	}

	// Отправитель может не уважать контекст: ждём не дольше дедлайна
	errCh := make(chan error, 1)
	go func() { errCh <- n.sendMail(ctx, msg) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *EmailNotifier) buildMessage(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(sanitizeHeader(n.cfg.From)); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(sanitizeHeader(to)); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(sanitizeHeader(subject))
	msg.SetDateWithValue(n.now())
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func (n *EmailNotifier) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left > 0 {
			opts = append(opts, mail.WithTimeout(left))
		}
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}

	client, err := mail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// sanitizeHeader убирает переводы строк, чтобы нельзя было внедрить заголовки
func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
