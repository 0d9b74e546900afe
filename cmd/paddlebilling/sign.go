package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/PaddleBilling/internal/pkg/billing"
)

var signCmd = &cobra.Command{
	Use:   "sign [file]",
	Short: "Print a Paddle-Signature header for a payload (stdin when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig("sign")
		if err != nil {
			return err
		}
		secret := cfg.ActiveCredentials().WebhookSecret
		if secret == "" {
			return fmt.Errorf("%s webhook secret is not configured", cfg.Mode())
		}

		var in io.Reader = os.Stdin
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		body, err := io.ReadAll(in)
		if err != nil {
			return err
		}
		fmt.Println(billing.SignPaddlePayload(body, secret, time.Now()))
		return nil
	},
}
