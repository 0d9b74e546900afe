package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuelReschke/PaddleBilling/internal/pkg/database"
)

// OpsRouter serves metrics and health checks.
type OpsRouter struct {
	deps Deps
}

func NewOpsRouter(deps Deps) *OpsRouter {
	return &OpsRouter{deps: deps}
}

func (h OpsRouter) InstallRouter(app *fiber.App) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/healthz", h.healthz)
}

func (h OpsRouter) healthz(c *fiber.Ctx) error {
	if h.deps.DB == nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	}
	if err := database.Ping(c.UserContext(), h.deps.DB); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": "database"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}
