package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ManuelReschke/PaddleBilling/internal/pkg/billing"
)

var reprocessCmd = &cobra.Command{
	Use:   "reprocess <event-id>...",
	Short: "Re-run reconciliation for stored transaction.completed events",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig("reprocess")
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		c, err := buildComponents(ctx, cfg, log.Logger)
		if err != nil {
			return err
		}
		defer c.Close()

		failed := 0
		for _, id := range args {
			runCtx, cancel := context.WithTimeout(ctx, time.Minute)
			purchase, err := c.pipeline.Reprocess(runCtx, id)
			cancel()

			switch {
			case err == nil:
				fmt.Fprintf(os.Stdout, "%s: purchase %d (%s)\n", id, purchase.ID, purchase.PaddleTransactionID)
			case errors.Is(err, billing.ErrDuplicateTransaction):
				fmt.Fprintf(os.Stdout, "%s: already reconciled\n", id)
			case purchase != nil:
				failed++
				fmt.Fprintf(os.Stderr, "%s: purchase %d stored, listeners failed: %v\n", id, purchase.ID, err)
			default:
				failed++
				fmt.Fprintf(os.Stderr, "%s: %v\n", id, err)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d events failed", failed, len(args))
		}
		return nil
	},
}
