package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/gophnotes/internal/metrics"
)

func newSyncCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push local changes and pull changes from the server",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(ctx context.Context, c *Cli, _ []string) error {
			return c.runSync(ctx)
		}),
	}
}

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("=== Synchronization ===")
	c.io.Println()

	// очередь прошлых запусков не сохраняется: отправляем полное состояние
	count, err := c.notes.OpenAll(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to open notes: %w", err)
	}
	c.io.Printf("Local notes: %d\n", count)

	push, err := c.engine.PushPendingUpdates(ctx)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}
	pull, err := c.engine.PullUpdates(ctx)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Synchronization completed successfully!")
	c.io.Println()
	c.io.Printf("Pushed to server:   %d updates\n", push.Pushed)
	c.io.Printf("Pulled from server: %d updates\n", pull.Applied)
	c.io.Printf("New notes:          %d\n", len(pull.NewNotes))
	c.io.Printf("Deleted notes:      %d\n", len(pull.DeletedNotes))
	if len(push.Conflicts) > 0 {
		c.io.Printf("Conflicts:          %d\n", len(push.Conflicts))
	}
	if pending := c.engine.PendingCount(); pending > 0 {
		c.io.Printf("Still pending:      %d updates\n", pending)
	}

	return nil
}

func newWatchCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay connected and apply changes from other devices as they happen",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(ctx context.Context, c *Cli, _ []string) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.runWatch(ctx)
		}),
	}
}

// runWatch держит live канал до отмены ctx. Если задан metrics_addr,
// рядом поднимается /metrics.
func (c *Cli) runWatch(ctx context.Context) error {
	count, err := c.notes.OpenAll(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to open notes: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if c.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer := &http.Server{
			Addr:              c.cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			c.logger.Info("Metrics server listening", "addr", c.cfg.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		if err := c.engine.Connect(gctx); err != nil {
			return err
		}
		c.io.Printf("Watching %d note(s) on %s. Press Ctrl+C to stop.\n", count, c.cfg.LiveEndpoint())

		<-gctx.Done()
		c.engine.Disconnect()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	c.io.Println("Stopped.")
	return nil
}
