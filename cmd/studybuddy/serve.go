package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/studybuddy/internal/study"
	"github.com/conorfennell/studybuddy/internal/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr: a.cfg.Server.Addr,
				Handler: web.NewServer(a.svc, web.Options{
					RateLimit: a.cfg.Server.RateLimit,
					RateBurst: a.cfg.Server.RateBurst,
				}),
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				slog.Info("server listening", "addr", srv.Addr, "driver", a.db.Driver())
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				slog.Info("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			if interval := a.cfg.Sync.Interval; interval > 0 {
				g.Go(func() error {
					periodicSync(gctx, a.svc, interval)
					return nil
				})
			}
			return g.Wait()
		},
	}
}

// periodicSync re-syncs sources every interval until ctx is done.
func periodicSync(ctx context.Context, svc *study.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.Sync(ctx); err != nil {
				slog.Warn("periodic sync finished with errors", "error", err)
			}
		}
	}
}
