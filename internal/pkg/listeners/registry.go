package listeners

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/ManuelReschke/PaddleBilling/internal/pkg/billing"
	"github.com/ManuelReschke/PaddleBilling/internal/pkg/config"
)

// Listener identifiers accepted in PADDLE_PURCHASE_LISTENERS and
// PADDLE_WEBHOOK_LISTENERS.
const (
	IDLog       = "log"
	IDKafka     = "kafka"
	IDS3Archive = "s3_archive"
)

var ErrUnknownListener = errors.New("unknown listener")

// Sinks holds the outbound clients listeners write to. Nil sinks are only an
// error when a configured listener needs them.
type Sinks struct {
	Kafka    MessageWriter
	S3       ObjectPutter
	S3Bucket string
	S3Prefix string
}

// Close releases the sinks that hold connections.
func (s Sinks) Close() error {
	if s.Kafka != nil {
		return s.Kafka.Close()
	}
	return nil
}

// NewSinks creates only the clients the configured listeners reference.
func NewSinks(ctx context.Context, cfg *config.Config) (Sinks, error) {
	used := referenced(cfg)
	sinks := Sinks{S3Bucket: cfg.S3Archive.BucketName, S3Prefix: cfg.S3Archive.Prefix}

	if used[IDKafka] {
		if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "" {
			return Sinks{}, errors.New("kafka listener requires KAFKA_BROKERS and KAFKA_TOPIC")
		}
		sinks.Kafka = NewKafkaWriter(cfg.Kafka)
	}
	if used[IDS3Archive] {
		if cfg.S3Archive.BucketName == "" {
			return Sinks{}, errors.New("s3_archive listener requires S3_BUCKET_NAME")
		}
		client, err := NewS3Client(ctx, cfg.S3Archive)
		if err != nil {
			return Sinks{}, err
		}
		sinks.S3 = client
	}
	return sinks, nil
}

func referenced(cfg *config.Config) map[string]bool {
	used := make(map[string]bool)
	for _, id := range cfg.PurchaseListeners {
		used[id] = true
	}
	for _, ids := range cfg.WebhookListeners {
		for _, id := range ids {
			used[id] = true
		}
	}
	return used
}

// Register resolves every configured identifier and subscribes it on d.
// All resolution problems are reported together.
func Register(d *billing.Dispatcher, cfg *config.Config, sinks Sinks, logger zerolog.Logger) error {
	var result *multierror.Error

	for _, id := range cfg.PurchaseListeners {
		l, err := purchaseListener(id, sinks, logger)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		d.OnPurchaseCompleted(id, l)
	}

	for eventType, ids := range cfg.WebhookListeners {
		for _, id := range ids {
			l, err := webhookListener(id, sinks, logger)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("%s: %w", eventType, err))
				continue
			}
			d.OnWebhook(eventType, id, l)
		}
	}
	return result.ErrorOrNil()
}

func purchaseListener(id string, sinks Sinks, logger zerolog.Logger) (billing.PurchaseCompletedListener, error) {
	switch id {
	case IDLog:
		return NewLogListener(logger), nil
	case IDKafka:
		if sinks.Kafka == nil {
			return nil, fmt.Errorf("listener %q: kafka writer not configured", id)
		}
		return NewKafkaPublisher(sinks.Kafka), nil
	case IDS3Archive:
		if sinks.S3 == nil {
			return nil, fmt.Errorf("listener %q: s3 client not configured", id)
		}
		return NewReceiptArchiver(sinks.S3, sinks.S3Bucket, sinks.S3Prefix), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownListener, id)
	}
}

func webhookListener(id string, sinks Sinks, logger zerolog.Logger) (billing.WebhookListener, error) {
	switch id {
	case IDLog:
		return NewLogListener(logger), nil
	case IDKafka:
		if sinks.Kafka == nil {
			return nil, fmt.Errorf("listener %q: kafka writer not configured", id)
		}
		return NewKafkaPublisher(sinks.Kafka), nil
	case IDS3Archive:
		return nil, fmt.Errorf("listener %q only handles purchases", id)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownListener, id)
	}
}
