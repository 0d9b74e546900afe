package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ManuelReschke/PaddleBilling/app/controllers"
	"github.com/ManuelReschke/PaddleBilling/internal/pkg/config"
	"github.com/ManuelReschke/PaddleBilling/internal/pkg/router"
)

const maxWebhookBody = 1 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Paddle webhook endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig("paddlebilling")
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := buildComponents(ctx, cfg, log.Logger)
	if err != nil {
		return err
	}
	defer c.Close()

	app := NewApplication(cfg, c)
	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("webhook_path", cfg.WebhookPath()).Msg("listening")
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}

// NewApplication builds the fiber app with middleware and routes.
func NewApplication(cfg *config.Config, c *components) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:             maxWebhookBody,
		DisableStartupMessage: true,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	webhook := controllers.NewWebhookController(
		c.pipeline,
		cfg.ActiveCredentials().WebhookSecret,
		cfg.SignatureTolerance,
		log.Logger,
	)
	router.InstallRouter(app, router.Deps{Config: cfg, Webhook: webhook, DB: c.db})
	return app
}
