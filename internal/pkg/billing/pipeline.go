package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PaddleBilling/app/models"
	"github.com/ManuelReschke/PaddleBilling/internal/pkg/metrics"
)

// Pipeline turns webhook deliveries into reconciled entities and listener
// notifications.
type Pipeline struct {
	events          EventStore
	entities        EntityRepository
	dispatcher      *Dispatcher
	lookup          CustomerLookup
	defaultCurrency string
	logger          zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCustomerLookup enables enrichment of customers missing email or name.
func WithCustomerLookup(l CustomerLookup) Option {
	return func(p *Pipeline) { p.lookup = l }
}

// WithDefaultCurrency sets the currency used when a payload carries none.
func WithDefaultCurrency(currency string) Option {
	return func(p *Pipeline) { p.defaultCurrency = currency }
}

// WithLogger sets the pipeline logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// NewPipeline wires the pipeline. A nil dispatcher means no listeners.
func NewPipeline(events EventStore, entities EntityRepository, dispatcher *Dispatcher, opts ...Option) *Pipeline {
	if dispatcher == nil {
		dispatcher = NewDispatcher()
	}
	p := &Pipeline{
		events:          events,
		entities:        entities,
		dispatcher:      dispatcher,
		defaultCurrency: models.DefaultCurrency,
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "pipeline").Logger()
	return p
}

// NewPipelineFromDB creates a pipeline whose stores share db.
func NewPipelineFromDB(db *gorm.DB, tables Tables, dispatcher *Dispatcher, opts ...Option) *Pipeline {
	return NewPipeline(NewEventStore(db), NewEntityRepository(db, tables), dispatcher, opts...)
}

// HandleWebhook records a delivery and, for first sightings of
// transaction.completed, reconciles it. Redeliveries return OutcomeDuplicate
// without side effects.
func (p *Pipeline) HandleWebhook(ctx context.Context, eventType, providerEventID string, payload Payload) (Outcome, error) {
	created, event, err := p.events.RecordIfNew(ctx, providerEventID, eventType, payload)
	if err != nil {
		metrics.WebhooksTotal.WithLabelValues(NormalizeEventType(eventType), "error").Inc()
		return "", fmt.Errorf("record webhook event: %w", err)
	}

	logger := p.logger.With().
		Str("event_id", event.PaddleEventID).
		Str("event_type", event.EventType).
		Logger()

	if !created {
		logger.Debug().Msg("duplicate webhook delivery ignored")
		metrics.WebhooksTotal.WithLabelValues(event.EventType, string(OutcomeDuplicate)).Inc()
		return OutcomeDuplicate, nil
	}

	outcome, err := p.process(ctx, logger, event.EventType, event.PaddleEventID, payload)
	if err != nil {
		metrics.WebhooksTotal.WithLabelValues(event.EventType, "error").Inc()
		return outcome, err
	}
	metrics.WebhooksTotal.WithLabelValues(event.EventType, string(outcome)).Inc()
	return outcome, nil
}

// Reprocess re-runs reconciliation for a stored transaction.completed event.
// Purchases that already exist yield ErrDuplicateTransaction.
func (p *Pipeline) Reprocess(ctx context.Context, providerEventID string) (*models.Purchase, error) {
	event, err := p.events.Find(ctx, providerEventID)
	if err != nil {
		return nil, err
	}
	if event.EventType != models.PaddleEventTransactionCompleted {
		return nil, fmt.Errorf("%w: %s", ErrNotReconcilable, event.EventType)
	}
	payload, err := PayloadFromJSON(event.Payload)
	if err != nil {
		return nil, err
	}

	logger := p.logger.With().
		Str("event_id", event.PaddleEventID).
		Str("event_type", event.EventType).
		Bool("reprocess", true).
		Logger()

	purchase, err := p.reconcile(ctx, logger, payload)
	if err != nil && purchase == nil {
		return nil, err
	}
	if dispatchErr := p.dispatchWebhook(ctx, event.EventType, event.PaddleEventID, payload); dispatchErr != nil {
		err = errors.Join(err, dispatchErr)
	}
	return purchase, err
}

func (p *Pipeline) process(ctx context.Context, logger zerolog.Logger, eventType, eventID string, payload Payload) (Outcome, error) {
	if eventType != models.PaddleEventTransactionCompleted {
		logger.Debug().Msg("webhook recorded")
		if err := p.dispatchWebhook(ctx, eventType, eventID, payload); err != nil {
			return OutcomeRecorded, err
		}
		return OutcomeRecorded, nil
	}

	purchase, err := p.reconcile(ctx, logger, payload)
	if err != nil && purchase == nil {
		return "", err
	}
	if dispatchErr := p.dispatchWebhook(ctx, eventType, eventID, payload); dispatchErr != nil {
		err = errors.Join(err, dispatchErr)
	}
	return OutcomeReconciled, err
}

// reconcile runs extraction, enrichment, persistence and purchase dispatch.
// A non-nil purchase with an error means entities were committed but a
// listener failed.
func (p *Pipeline) reconcile(ctx context.Context, logger zerolog.Logger, payload Payload) (*models.Purchase, error) {
	start := time.Now()
	tx := ExtractWithCurrency(payload, p.defaultCurrency)
	p.enrich(ctx, logger, &tx)

	purchase, err := p.entities.UpsertTransaction(ctx, tx)
	if err != nil {
		metrics.ReconcileDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		logger.Error().Err(err).Str("transaction_id", tx.TransactionID).Msg("reconciliation failed")
		return nil, err
	}
	metrics.ReconcileDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	logger.Info().
		Str("transaction_id", purchase.PaddleTransactionID).
		Uint("purchase_id", purchase.ID).
		Str("customer_id", purchase.Customer.PaddleCustomerID).
		Str("price_id", purchase.Product.PaddlePriceID).
		Msg("purchase reconciled")

	event := &PurchaseCompleted{
		Purchase:   purchase,
		Customer:   &purchase.Customer,
		Product:    &purchase.Product,
		CustomData: tx.RawCustomData,
	}
	if event.CustomData == nil {
		event.CustomData = map[string]any{}
	}
	if err := p.dispatcher.DispatchPurchaseCompleted(ctx, event); err != nil {
		logger.Warn().Err(err).Msg("purchase listener failed")
		return purchase, err
	}
	return purchase, nil
}

// enrich fills missing customer email or name from the remote lookup.
func (p *Pipeline) enrich(ctx context.Context, logger zerolog.Logger, tx *ExtractedTransaction) {
	if p.lookup == nil || tx.ProviderCustomerID == "" {
		return
	}
	if tx.CustomerEmail != "" && tx.CustomerName != "" {
		return
	}

	details, err := p.lookup.LookupCustomer(ctx, tx.ProviderCustomerID)
	if err != nil {
		logger.Warn().Err(err).Str("customer_id", tx.ProviderCustomerID).Msg("customer lookup failed")
		return
	}
	if tx.CustomerEmail == "" {
		tx.CustomerEmail = details.Email
	}
	if tx.CustomerName == "" {
		tx.CustomerName = details.Name
	}
}

func (p *Pipeline) dispatchWebhook(ctx context.Context, eventType, eventID string, payload Payload) error {
	err := p.dispatcher.DispatchWebhook(ctx, &WebhookReceived{
		EventType: eventType,
		EventID:   eventID,
		Payload:   payload,
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("event_type", eventType).Msg("webhook listener failed")
	}
	return err
}
