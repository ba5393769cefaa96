package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the admin API and the capture scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

// oneShot wires the app, runs fn once and prints its result as JSON.
func oneShot(use, short string, fn func(ctx context.Context, a *app) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			out, err := fn(ctx, a)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func captureCommand() *cobra.Command {
	var platform string
	cmd := oneShot("capture", "capture coupons once from every enabled platform", func(ctx context.Context, a *app) (any, error) {
		if platform != "" {
			return a.capture.CapturePlatform(ctx, platform)
		}
		return a.capture.CaptureAll(ctx)
	})
	cmd.Flags().StringVar(&platform, "platform", "", "capture a single platform regardless of its enable flag")
	return cmd
}

func expireCommand() *cobra.Command {
	return oneShot("expire", "deactivate coupons past their valid_until", func(ctx context.Context, a *app) (any, error) {
		return a.capture.CheckExpiredCoupons(ctx)
	})
}

func verifyCommand() *cobra.Command {
	var ids []string
	cmd := oneShot("verify", "re-check active coupons against their source", func(ctx context.Context, a *app) (any, error) {
		return a.capture.VerifyActiveCoupons(ctx, ids)
	})
	cmd.Flags().StringSliceVar(&ids, "id", nil, "coupon ids to verify (default: a batch of active coupons)")
	return cmd
}

func cleanupCommand() *cobra.Command {
	var days int
	cmd := oneShot("cleanup", "delete sync runs older than the retention window", func(ctx context.Context, a *app) (any, error) {
		if days <= 0 {
			days = a.cfg.Capture.SyncLogRetentionDays
		}
		n, err := a.ledger.Cleanup(ctx, days)
		return map[string]any{"deleted": n, "days_to_keep": days}, err
	})
	cmd.Flags().IntVar(&days, "days", 0, "days to keep (default: capture.sync_log_retention_days)")
	return cmd
}
