package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/goldy/internal/model"
)

func newEscrowsWatchCmd(a *app) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the escrow list up to date until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			if interval <= 0 {
				interval = a.cfg.SyncInterval
			}
			return a.watch(cmd.Context(), cmd.OutOrStdout(), interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "refresh interval (defaults to --sync-interval)")
	return cmd
}

// watch рисует список при каждом изменении, пока фоновая синхронизация обновляет его.
func (a *app) watch(ctx context.Context, out io.Writer, interval time.Duration) error {
	updates := make(chan []model.Escrow, 1)
	unsubscribe := a.book.Subscribe(func(list []model.Escrow) {
		// Хранится только последний снимок.
		for {
			select {
			case updates <- list:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	if _, err := a.book.Refresh(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.book.Sync(ctx, interval)
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case list := <-updates:
				fmt.Fprintln(out, mutedStyle.Render("updated "+time.Now().Format("15:04:05")))
				renderEscrowList(out, list)
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
