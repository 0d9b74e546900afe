package controllers

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	gojson "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PaddleBilling/internal/pkg/billing"
)

const testSecret = "pdl_ntfset_test"

type fakePipeline struct {
	outcome   billing.Outcome
	err       error
	eventType string
	eventID   string
	calls     int
}

func (f *fakePipeline) HandleWebhook(ctx context.Context, eventType, eventID string, payload billing.Payload) (billing.Outcome, error) {
	f.calls++
	f.eventType = eventType
	f.eventID = eventID
	return f.outcome, f.err
}

func newWebhookApp(p WebhookPipeline, secret string) *fiber.App {
	app := fiber.New()
	ctrl := NewWebhookController(p, secret, 0, zerolog.Nop())
	app.Post("/paddle/webhook", ctrl.HandlePaddleWebhook)
	return app
}

func doWebhook(t *testing.T, app *fiber.App, body, signature string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/paddle/webhook", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set(billing.PaddleSignatureHeader, signature)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, gojson.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestHandlePaddleWebhook(t *testing.T) {
	body := `{"event_id":"evt_1","event_type":"transaction.completed","data":{"id":"txn_1"}}`
	valid := billing.SignPaddlePayload([]byte(body), testSecret, time.Now())

	tests := []struct {
		name       string
		pipeline   *fakePipeline
		secret     string
		body       string
		signature  string
		wantStatus int
		wantKey    string
		wantValue  any
		wantCalls  int
	}{
		{"reconciled", &fakePipeline{outcome: billing.OutcomeReconciled}, testSecret, body, valid, fiber.StatusOK, "outcome", "reconciled", 1},
		{"duplicate", &fakePipeline{outcome: billing.OutcomeDuplicate}, testSecret, body, valid, fiber.StatusOK, "duplicate", true, 1},
		{"missing secret", &fakePipeline{}, "", body, valid, fiber.StatusServiceUnavailable, "error", "webhook_not_configured", 0},
		{"bad signature", &fakePipeline{}, testSecret, body, "ts=1;h1=00", fiber.StatusUnauthorized, "error", "invalid_signature", 0},
		{"no signature", &fakePipeline{}, testSecret, body, "", fiber.StatusUnauthorized, "error", "invalid_signature", 0},
		{"malformed", &fakePipeline{}, testSecret, `[1,2]`, billing.SignPaddlePayload([]byte(`[1,2]`), testSecret, time.Now()), fiber.StatusBadRequest, "error", "invalid_payload", 0},
		{"pipeline failure", &fakePipeline{err: billing.ErrRepositoryWrite}, testSecret, body, valid, fiber.StatusInternalServerError, "error", "webhook_processing_failed", 1},
		{"listener failure", &fakePipeline{outcome: billing.OutcomeReconciled, err: fmt.Errorf("%w: mailer down", billing.ErrListenerFailed)}, testSecret, body, valid, fiber.StatusInternalServerError, "error", "listener_failed", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newWebhookApp(tt.pipeline, tt.secret)
			status, out := doWebhook(t, app, tt.body, tt.signature)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantValue, out[tt.wantKey])
			assert.Equal(t, tt.wantCalls, tt.pipeline.calls)
		})
	}
}

func TestHandlePaddleWebhook_PassesEventIdentity(t *testing.T) {
	p := &fakePipeline{outcome: billing.OutcomeRecorded}
	app := newWebhookApp(p, testSecret)
	body := `{"event_id":"evt_42","event_type":"transaction.updated"}`

	status, _ := doWebhook(t, app, body, billing.SignPaddlePayload([]byte(body), testSecret, time.Now()))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "evt_42", p.eventID)
	assert.Equal(t, "transaction.updated", p.eventType)
}

func TestHandlePaddleWebhook_SetsRequestID(t *testing.T) {
	app := newWebhookApp(&fakePipeline{outcome: billing.OutcomeRecorded}, testSecret)
	body := `{"event_id":"evt_1"}`

	req := httptest.NewRequest(fiber.MethodPost, "/paddle/webhook", strings.NewReader(body))
	req.Header.Set(billing.PaddleSignatureHeader, billing.SignPaddlePayload([]byte(body), testSecret, time.Now()))
	req.Header.Set(fiber.HeaderXRequestID, "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.Header.Get(fiber.HeaderXRequestID))
}
