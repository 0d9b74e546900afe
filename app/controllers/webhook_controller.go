package controllers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ManuelReschke/PaddleBilling/internal/pkg/billing"
	"github.com/ManuelReschke/PaddleBilling/internal/pkg/logging"
	"github.com/ManuelReschke/PaddleBilling/internal/pkg/metrics"
)

const webhookTimeout = 15 * time.Second

// WebhookPipeline is the part of billing.Pipeline the controller drives.
type WebhookPipeline interface {
	HandleWebhook(ctx context.Context, eventType, providerEventID string, payload billing.Payload) (billing.Outcome, error)
}

// WebhookController receives Paddle webhook deliveries.
type WebhookController struct {
	pipeline  WebhookPipeline
	secret    string
	tolerance time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

func NewWebhookController(pipeline WebhookPipeline, webhookSecret string, tolerance time.Duration, logger zerolog.Logger) *WebhookController {
	return &WebhookController{
		pipeline:  pipeline,
		secret:    webhookSecret,
		tolerance: tolerance,
		logger:    logger.With().Str("component", "webhook").Logger(),
		now:       time.Now,
	}
}

// HandlePaddleWebhook verifies, parses and hands a delivery to the pipeline.
func (w *WebhookController) HandlePaddleWebhook(c *fiber.Ctx) error {
	ctx, requestID := logging.WithRequestID(c.UserContext(), c.Get(fiber.HeaderXRequestID))
	c.Set(fiber.HeaderXRequestID, requestID)
	logger := logging.FromContext(ctx, w.logger)

	if w.secret == "" {
		logger.Error().Msg("webhook secret is not configured")
		return w.respond(c, fiber.StatusServiceUnavailable, fiber.Map{"error": "webhook_not_configured"})
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)
	if !billing.VerifyPaddleSignature(rawBody, c.Get(billing.PaddleSignatureHeader), w.secret, w.now(), w.tolerance) {
		logger.Warn().Msg("invalid webhook signature")
		return w.respond(c, fiber.StatusUnauthorized, fiber.Map{"error": "invalid_signature"})
	}

	payload, err := billing.ParsePayload(rawBody)
	if err != nil {
		logger.Warn().Err(err).Msg("malformed webhook payload")
		return w.respond(c, fiber.StatusBadRequest, fiber.Map{"error": "invalid_payload"})
	}

	ctx, cancel := context.WithTimeout(ctx, webhookTimeout)
	defer cancel()

	eventType, eventID := payload.EventType(), payload.EventID()
	outcome, err := w.pipeline.HandleWebhook(ctx, eventType, eventID, payload)
	if err != nil {
		logger.Error().Err(err).Str("event_id", eventID).Str("event_type", eventType).Msg("webhook processing failed")
		code := "webhook_processing_failed"
		if errors.Is(err, billing.ErrListenerFailed) {
			code = "listener_failed"
		}
		return w.respond(c, fiber.StatusInternalServerError, fiber.Map{"error": code})
	}

	body := fiber.Map{"ok": true, "outcome": string(outcome)}
	if outcome == billing.OutcomeDuplicate {
		body["duplicate"] = true
	}
	return w.respond(c, fiber.StatusOK, body)
}

func (w *WebhookController) respond(c *fiber.Ctx, status int, body fiber.Map) error {
	metrics.WebhookRequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	return c.Status(status).JSON(body)
}
