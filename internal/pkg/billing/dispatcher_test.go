package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_PurchaseListenersRunInOrder(t *testing.T) {
	d := NewDispatcher()
	var calls []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		d.OnPurchaseCompleted(name, PurchaseCompletedFunc(func(ctx context.Context, e *PurchaseCompleted) error {
			calls = append(calls, name)
			return nil
		}))
	}

	require.NoError(t, d.DispatchPurchaseCompleted(context.Background(), &PurchaseCompleted{}))
	assert.Equal(t, []string{"first", "second", "third"}, calls)
	assert.Equal(t, []string{"first", "second", "third"}, d.PurchaseListeners())
}

func TestDispatcher_FailureIsolation(t *testing.T) {
	d := NewDispatcher()
	boom := errors.New("boom")
	var calls []string

	d.OnPurchaseCompleted("failing", PurchaseCompletedFunc(func(ctx context.Context, e *PurchaseCompleted) error {
		calls = append(calls, "failing")
		return boom
	}))
	d.OnPurchaseCompleted("panicking", PurchaseCompletedFunc(func(ctx context.Context, e *PurchaseCompleted) error {
		calls = append(calls, "panicking")
		panic("listener exploded")
	}))
	d.OnPurchaseCompleted("healthy", PurchaseCompletedFunc(func(ctx context.Context, e *PurchaseCompleted) error {
		calls = append(calls, "healthy")
		return nil
	}))

	err := d.DispatchPurchaseCompleted(context.Background(), &PurchaseCompleted{})
	require.Error(t, err)
	assert.Equal(t, []string{"failing", "panicking", "healthy"}, calls)
	assert.True(t, errors.Is(err, ErrListenerFailed))
	assert.True(t, errors.Is(err, boom))

	var lerr *ListenerError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, "failing", lerr.Listener)
	assert.Contains(t, err.Error(), "panicking")
	assert.Contains(t, err.Error(), "listener exploded")
}

func TestDispatcher_WebhookListenersByEventType(t *testing.T) {
	d := NewDispatcher()
	var got []string
	d.OnWebhook("transaction.updated", "updates", WebhookFunc(func(ctx context.Context, e *WebhookReceived) error {
		got = append(got, e.EventType+":"+e.EventID)
		return nil
	}))

	require.NoError(t, d.DispatchWebhook(context.Background(), &WebhookReceived{EventType: "transaction.created", EventID: "evt_0"}))
	require.NoError(t, d.DispatchWebhook(context.Background(), &WebhookReceived{EventType: "transaction.updated", EventID: "evt_1"}))

	assert.Equal(t, []string{"transaction.updated:evt_1"}, got)
	assert.Equal(t, []string{"updates"}, d.WebhookListeners("transaction.updated"))
	assert.Empty(t, d.WebhookListeners("transaction.created"))
}

func TestDispatcher_NoListeners(t *testing.T) {
	d := NewDispatcher()
	assert.NoError(t, d.DispatchPurchaseCompleted(context.Background(), &PurchaseCompleted{}))
	assert.NoError(t, d.DispatchWebhook(context.Background(), &WebhookReceived{EventType: "x"}))
}
