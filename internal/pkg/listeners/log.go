package listeners

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ManuelReschke/PaddleBilling/internal/pkg/billing"
)

// LogListener writes one structured log line per event.
type LogListener struct {
	logger zerolog.Logger
}

func NewLogListener(logger zerolog.Logger) *LogListener {
	return &LogListener{logger: logger.With().Str("listener", IDLog).Logger()}
}

func (l *LogListener) OnPurchaseCompleted(ctx context.Context, e *billing.PurchaseCompleted) error {
	l.logger.Info().
		Uint("purchase_id", e.Purchase.ID).
		Str("transaction_id", e.Purchase.PaddleTransactionID).
		Str("customer_id", e.Customer.PaddleCustomerID).
		Str("customer_email", e.Customer.Email).
		Str("price_id", e.Product.PaddlePriceID).
		Int64("amount", e.Product.Price).
		Str("currency", e.Product.Currency).
		Int("custom_data_keys", len(e.CustomData)).
		Msg("purchase completed")
	return nil
}

func (l *LogListener) OnWebhook(ctx context.Context, e *billing.WebhookReceived) error {
	l.logger.Info().
		Str("event_id", e.EventID).
		Str("event_type", e.EventType).
		Msg("webhook received")
	return nil
}
