package listeners

import (
	"context"
	"fmt"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/ManuelReschke/PaddleBilling/internal/pkg/billing"
	"github.com/ManuelReschke/PaddleBilling/internal/pkg/config"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter creates a writer for cfg. Messages with the same key land on
// the same partition.
func NewKafkaWriter(cfg config.Kafka) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}
}

// Envelope is the message value published for every event.
type Envelope struct {
	Kind       string    `json:"kind"`
	EventType  string    `json:"event_type,omitempty"`
	EventID    string    `json:"event_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// purchaseData is the purchase projection carried in an Envelope.
type purchaseData struct {
	PurchaseID    uint           `json:"purchase_id"`
	TransactionID string         `json:"transaction_id"`
	Status        string         `json:"status"`
	InvoiceURL    *string        `json:"invoice_url,omitempty"`
	CustomerID    string         `json:"customer_id"`
	CustomerEmail string         `json:"customer_email"`
	CustomerName  string         `json:"customer_name"`
	PriceID       string         `json:"price_id"`
	ProductName   string         `json:"product_name"`
	Amount        int64          `json:"amount"`
	Currency      string         `json:"currency"`
	CustomData    map[string]any `json:"custom_data"`
}

func newPurchaseData(e *billing.PurchaseCompleted) purchaseData {
	return purchaseData{
		PurchaseID:    e.Purchase.ID,
		TransactionID: e.Purchase.PaddleTransactionID,
		Status:        e.Purchase.Status,
		InvoiceURL:    e.Purchase.InvoiceURL,
		CustomerID:    e.Customer.PaddleCustomerID,
		CustomerEmail: e.Customer.Email,
		CustomerName:  e.Customer.Name,
		PriceID:       e.Product.PaddlePriceID,
		ProductName:   e.Product.Name,
		Amount:        e.Product.Price,
		Currency:      e.Product.Currency,
		CustomData:    e.CustomData,
	}
}

// KafkaPublisher forwards events to a Kafka topic.
type KafkaPublisher struct {
	writer MessageWriter
	now    func() time.Time
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w, now: time.Now}
}

func (p *KafkaPublisher) OnPurchaseCompleted(ctx context.Context, e *billing.PurchaseCompleted) error {
	return p.publish(ctx, e.Purchase.PaddleTransactionID, Envelope{
		Kind:       "purchase.completed",
		OccurredAt: p.now().UTC(),
		Data:       newPurchaseData(e),
	})
}

func (p *KafkaPublisher) OnWebhook(ctx context.Context, e *billing.WebhookReceived) error {
	return p.publish(ctx, e.EventID, Envelope{
		Kind:       "webhook",
		EventType:  e.EventType,
		EventID:    e.EventID,
		OccurredAt: p.now().UTC(),
		Data:       e.Payload,
	})
}

func (p *KafkaPublisher) publish(ctx context.Context, key string, env Envelope) error {
	value, err := gojson.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", env.Kind, err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("publish %s: %w", env.Kind, err)
	}
	return nil
}
