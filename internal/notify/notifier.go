package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cleaning-calculator/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Каналы уведомлений
const (
	ChannelTelegram = "telegram"
	ChannelEmail    = "email"
	ChannelWebhook  = "webhook"
)

const defaultTimeout = 15 * time.Second

// Notifier отправляет уведомление о заявке в один канал
type Notifier interface {
	Channel() string
	NotifyQuote(ctx context.Context, quote *models.Quote) error
}

// quoteLines формирует строки сводки по заявке; escape применяется к
// пользовательским значениям (HTML для Telegram).
func quoteLines(quote *models.Quote, escape func(string) string) []string {
	if escape == nil {
		escape = func(s string) string { return s }
	}

	lines := []string{
		"Client: " + escape(quote.ClientName),
		"Email: " + escape(quote.ClientEmail),
		"Phone: " + escape(quote.ClientPhone),
	}
	if quote.ClientAddress != nil && *quote.ClientAddress != "" {
		lines = append(lines, "Address: "+escape(*quote.ClientAddress))
	}
	if quote.PreferredDate != nil {
		lines = append(lines, "Preferred date: "+quote.PreferredDate.String())
	}

	for _, room := range quote.Calculation.Rooms {
		lines = append(lines, fmt.Sprintf("- %s: %s m² × %s = %s",
			escape(room.Name), room.Area.String(), room.PricePerM2.StringFixed(2), room.Subtotal.StringFixed(2)))
	}

	lines = append(lines, "Total area: "+quote.TotalArea.String()+" m²")
	lines = append(lines, "Subtotal: "+quote.Subtotal.StringFixed(2))
	if quote.DiscountAmount.IsPositive() {
		discount := "Discount: -" + quote.DiscountAmount.StringFixed(2)
		if quote.DiscountCode != nil && *quote.DiscountCode != "" {
			discount += " (" + escape(*quote.DiscountCode) + ")"
		}
		lines = append(lines, discount)
	}
	lines = append(lines, "Total: "+quote.TotalPrice.StringFixed(2))

	if quote.Message != nil && strings.TrimSpace(*quote.Message) != "" {
		lines = append(lines, "", "Message: "+escape(*quote.Message))
	}
	return lines
}

// SampleQuote: заявка для проверки каналов из админки
func SampleQuote() *models.Quote {
	area := decimal.NewFromInt(20)
	price := decimal.RequireFromString("5.00")
	subtotal := area.Mul(price)
	now := time.Now()

	return &models.Quote{
		ID:          uuid.New(),
		ClientName:  "Test Client",
		ClientEmail: "test@example.com",
		ClientPhone: "+000000000",
		Calculation: models.CalculationResult{
			Rooms: []models.RoomCalc{{TypeID: "bedroom", Name: "Bedroom", Area: area, PricePerM2: price, Subtotal: subtotal}},
		},
		Subtotal:       subtotal,
		TotalArea:      area,
		DiscountAmount: decimal.Zero,
		TotalPrice:     subtotal,
		Status:         models.QuoteStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
