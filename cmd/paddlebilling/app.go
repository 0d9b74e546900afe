package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PaddleBilling/internal/pkg/billing"
	"github.com/ManuelReschke/PaddleBilling/internal/pkg/cache"
	"github.com/ManuelReschke/PaddleBilling/internal/pkg/config"
	"github.com/ManuelReschke/PaddleBilling/internal/pkg/database"
	"github.com/ManuelReschke/PaddleBilling/internal/pkg/listeners"
)

// components are the long-lived collaborators shared by the commands.
type components struct {
	db       *gorm.DB
	pipeline *billing.Pipeline
	sinks    listeners.Sinks
	closers  []func() error
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
}

// buildComponents connects storage, resolves listeners and wires the pipeline.
func buildComponents(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*components, error) {
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	c := &components{db: db}
	if sqlDB, err := db.DB(); err == nil {
		c.closers = append(c.closers, sqlDB.Close)
	}

	sinks, err := listeners.NewSinks(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("listener sinks: %w", err)
	}
	c.sinks = sinks
	c.closers = append(c.closers, sinks.Close)

	dispatcher := billing.NewDispatcher()
	if err := listeners.Register(dispatcher, cfg, sinks, logger); err != nil {
		c.Close()
		return nil, fmt.Errorf("register listeners: %w", err)
	}

	opts := []billing.Option{
		billing.WithLogger(logger),
		billing.WithDefaultCurrency(cfg.Currency),
	}
	if lookup := newCustomerLookup(ctx, cfg, logger, c); lookup != nil {
		opts = append(opts, billing.WithCustomerLookup(lookup))
	}

	tables := billing.Tables{
		Customers: cfg.Tables.Customers,
		Products:  cfg.Tables.Products,
		Purchases: cfg.Tables.Purchases,
	}
	c.pipeline = billing.NewPipelineFromDB(db, tables, dispatcher, opts...)

	logger.Info().
		Str("mode", cfg.Mode()).
		Strs("purchase_listeners", dispatcher.PurchaseListeners()).
		Bool("customer_lookup", cfg.CustomerLookup).
		Bool("cache", cfg.Cache.Enabled()).
		Msg("pipeline ready")
	return c, nil
}

func newCustomerLookup(ctx context.Context, cfg *config.Config, logger zerolog.Logger, c *components) billing.CustomerLookup {
	if !cfg.CustomerLookup {
		return nil
	}
	client := billing.NewPaddleClient(cfg.BaseURL(), cfg.ActiveCredentials().APIKey)

	var store billing.CustomerCache
	if cfg.Cache.Enabled() {
		rdb := cache.NewClient(ctx, cfg.Cache, logger)
		c.closers = append(c.closers, rdb.Close)
		store = cache.NewStore(rdb)
	}
	return billing.NewCachedCustomerLookup(client, store, cfg.Cache.CustomerTTL, logger)
}
