package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"wallpaperd/services"
	"wallpaperd/types"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Download every pregenerated wallpaper that is not on disk yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			app, err := NewApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			app.Fetcher.SetProgressFunc(func(name string, total int64) io.Writer {
				return progressbar.DefaultBytes(total, name)
			})
			app.Start()

			items, err := app.Menu.SyncWallpapers(ctx)
			if err != nil {
				return err
			}
			for _, item := range items {
				app.Machine.OnAppear(item)
			}

			if err := waitSettled(ctx, items); err != nil {
				return err
			}
			app.Machine.Wait()

			printSummary(items)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Give up after this long (0 for no limit)")
	return cmd
}

// waitSettled blocks until no item is loading, downloading or waiting for a download
func waitSettled(ctx context.Context, items []*services.Item) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		pending := 0
		for _, item := range items {
			switch item.State().Kind() {
			case types.StateLoading, types.StateNeedsDownload, types.StateDownloading:
				pending++
			}
		}
		if pending == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%d wallpapers still pending: %w", pending, ctx.Err())
		case <-ticker.C:
		}
	}
}

func printSummary(items []*services.Item) {
	ok, failed := 0, 0
	for _, item := range items {
		if f, isFailure := item.State().(types.Failure); isFailure {
			failed++
			color.Red("✗ %s: %v", item.Name(), f.Error())
			continue
		}
		if services.CanSelect(item.State()) {
			ok++
		}
	}
	color.Green("%d wallpapers ready", ok)
	if failed > 0 {
		color.Yellow("%d wallpapers failed; run sync again to retry", failed)
	}
}
