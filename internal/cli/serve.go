package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/greenhaven/assistant-chat/internal/config"
	"github.com/greenhaven/assistant-chat/internal/handler"
	"github.com/greenhaven/assistant-chat/internal/view"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web chat UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			views, err := view.New(a.cfg.UI.Title)
			if err != nil {
				return err
			}

			router := handler.NewRouter(handler.Dependencies{
				Logger:       a.log,
				ChatSvc:      a.newChatService(),
				Views:        views,
				Typewriter:   a.typewriter(),
				CookieSecure: a.cfg.UI.CookieSecure,
			})

			return startServer(ctx, a.log, a.cfg.Server, router)
		},
	}
	cmd.Flags().StringVar(&a.addr, "addr", "", "listen address, overrides PORT")
	return cmd
}

func startServer(ctx context.Context, log zerolog.Logger, serverCfg config.ServerConfig, router http.Handler) error {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("assistant chat listening")
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
