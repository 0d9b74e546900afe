package billing

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/ManuelReschke/PaddleBilling/internal/pkg/metrics"
)

// PurchaseCompletedListener reacts to a reconciled purchase.
type PurchaseCompletedListener interface {
	OnPurchaseCompleted(ctx context.Context, event *PurchaseCompleted) error
}

// WebhookListener reacts to a raw webhook delivery of the type it was
// registered for.
type WebhookListener interface {
	OnWebhook(ctx context.Context, event *WebhookReceived) error
}

// PurchaseCompletedFunc adapts a function to PurchaseCompletedListener.
type PurchaseCompletedFunc func(ctx context.Context, event *PurchaseCompleted) error

func (f PurchaseCompletedFunc) OnPurchaseCompleted(ctx context.Context, event *PurchaseCompleted) error {
	return f(ctx, event)
}

// WebhookFunc adapts a function to WebhookListener.
type WebhookFunc func(ctx context.Context, event *WebhookReceived) error

func (f WebhookFunc) OnWebhook(ctx context.Context, event *WebhookReceived) error {
	return f(ctx, event)
}

type purchaseEntry struct {
	name     string
	listener PurchaseCompletedListener
}

type webhookEntry struct {
	name     string
	listener WebhookListener
}

// Dispatcher fans events out to registered listeners synchronously and in
// registration order. Listeners are registered at startup.
type Dispatcher struct {
	mu        sync.RWMutex
	purchases []purchaseEntry
	webhooks  map[string][]webhookEntry
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{webhooks: make(map[string][]webhookEntry)}
}

// OnPurchaseCompleted subscribes l to every reconciled purchase.
func (d *Dispatcher) OnPurchaseCompleted(name string, l PurchaseCompletedListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.purchases = append(d.purchases, purchaseEntry{name: name, listener: l})
}

// OnWebhook subscribes l to deliveries of eventType.
func (d *Dispatcher) OnWebhook(eventType, name string, l WebhookListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.webhooks[eventType] = append(d.webhooks[eventType], webhookEntry{name: name, listener: l})
}

// PurchaseListeners returns the registered purchase listener names in order.
func (d *Dispatcher) PurchaseListeners() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.purchases))
	for _, e := range d.purchases {
		names = append(names, e.name)
	}
	return names
}

// WebhookListeners returns the listener names registered for eventType.
func (d *Dispatcher) WebhookListeners(eventType string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	entries := d.webhooks[eventType]
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.name)
	}
	return names
}

// DispatchPurchaseCompleted calls every purchase listener. A failing listener
// does not stop the others; all failures are returned together.
func (d *Dispatcher) DispatchPurchaseCompleted(ctx context.Context, event *PurchaseCompleted) error {
	d.mu.RLock()
	entries := append([]purchaseEntry(nil), d.purchases...)
	d.mu.RUnlock()

	var result *multierror.Error
	for _, e := range entries {
		l := e.listener
		if err := invoke(e.name, func() error { return l.OnPurchaseCompleted(ctx, event) }); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return wrapListenerErrors(result)
}

// DispatchWebhook calls the listeners registered for event.EventType.
func (d *Dispatcher) DispatchWebhook(ctx context.Context, event *WebhookReceived) error {
	d.mu.RLock()
	entries := append([]webhookEntry(nil), d.webhooks[event.EventType]...)
	d.mu.RUnlock()

	var result *multierror.Error
	for _, e := range entries {
		l := e.listener
		if err := invoke(e.name, func() error { return l.OnWebhook(ctx, event) }); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return wrapListenerErrors(result)
}

// invoke runs one listener, converting a panic into a ListenerError.
func invoke(name string, call func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ListenerError{Listener: name, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			metrics.ListenerFailuresTotal.WithLabelValues(name).Inc()
		}
	}()
	if callErr := call(); callErr != nil {
		return &ListenerError{Listener: name, Err: callErr}
	}
	return nil
}

func wrapListenerErrors(result *multierror.Error) error {
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", ErrListenerFailed, err)
	}
	return nil
}
