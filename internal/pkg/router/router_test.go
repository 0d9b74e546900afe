package router

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PaddleBilling/app/controllers"
	"github.com/ManuelReschke/PaddleBilling/internal/pkg/config"
)

func newTestApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	ctrl := controllers.NewWebhookController(nil, "", 0, zerolog.Nop())
	InstallRouter(app, Deps{Config: cfg, Webhook: ctrl})
	return app
}

func TestInstallRouter_Routes(t *testing.T) {
	cfg := &config.Config{Path: "paddle", SandboxPath: "paddle-sandbox", HTTP: config.HTTP{RateLimit: 10}}
	app := newTestApp(cfg)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "go_goroutines")

	// No secret configured on the controller.
	resp, err = app.Test(httptest.NewRequest(fiber.MethodPost, "/paddle/webhook", strings.NewReader("{}")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodPost, "/paddle-sandbox/webhook", strings.NewReader("{}")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestInstallRouter_SandboxPath(t *testing.T) {
	cfg := &config.Config{Sandbox: true, Path: "paddle", SandboxPath: "paddle-sandbox"}
	app := newTestApp(cfg)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/paddle-sandbox/webhook", strings.NewReader("{}")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestInstallRouter_RateLimit(t *testing.T) {
	cfg := &config.Config{Path: "paddle", HTTP: config.HTTP{RateLimit: 2}}
	app := newTestApp(cfg)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/paddle/webhook", strings.NewReader("{}")))
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
	}
	assert.Equal(t, []int{fiber.StatusServiceUnavailable, fiber.StatusServiceUnavailable, fiber.StatusTooManyRequests}, statuses)
}
