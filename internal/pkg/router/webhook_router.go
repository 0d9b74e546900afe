package router

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PaddleBilling/app/controllers"
	"github.com/ManuelReschke/PaddleBilling/internal/pkg/config"
)

// Deps are the collaborators the routes need, built once at startup.
type Deps struct {
	Config  *config.Config
	Webhook *controllers.WebhookController
	DB      *gorm.DB
}

type WebhookRouter struct {
	deps Deps
}

func NewWebhookRouter(deps Deps) *WebhookRouter {
	return &WebhookRouter{deps: deps}
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	app.Post(h.deps.Config.WebhookPath(), newLimiter(h.deps.Config), h.deps.Webhook.HandlePaddleWebhook)
}

// newLimiter bounds webhook requests per client and minute. Counters live in
// Redis when a cache is configured so that replicas share them.
func newLimiter(cfg *config.Config) fiber.Handler {
	max := cfg.HTTP.RateLimit
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	lcfg := limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited"})
		},
	}
	if cfg.Cache.Enabled() {
		port, err := strconv.Atoi(cfg.Cache.Port)
		if err != nil {
			port = 6379
		}
		lcfg.Storage = redis.New(redis.Config{
			Host:     cfg.Cache.Host,
			Port:     port,
			Password: cfg.Cache.Password,
			Database: cfg.Cache.DB,
			Reset:    false,
		})
	}
	return limiter.New(lcfg)
}
