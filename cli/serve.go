package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"malawiexplorer/analytics/analytics"
	"malawiexplorer/analytics/config"
	"malawiexplorer/analytics/database"
	"malawiexplorer/analytics/handlers"
	"malawiexplorer/analytics/ingest"
	"malawiexplorer/analytics/logging"
	"malawiexplorer/analytics/middleware"
	"malawiexplorer/analytics/store"
	"malawiexplorer/analytics/utils"
	"malawiexplorer/analytics/warehouse"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the tracking and dashboard API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts.cfg)
		},
	}
}

// app owns everything serve starts so it can be torn down in order.
type app struct {
	db     *database.DBClient
	ch     *database.ClickHouseClient
	writer *warehouse.Writer
	router *gin.Engine
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize primary store: %w", err)
	}
	a.db = db
	if err := db.Migrate(ctx); err != nil {
		a.close(ctx)
		return nil, err
	}

	pageViews := store.NewPageViewStore(db, cfg.Analytics.VisitTimeout)
	users := store.NewUserStore(db)

	var (
		ingestOpts []ingest.Option
		engineOpts []analytics.Option
		whPinger   handlers.Pinger
	)
	if cfg.ClickHouse.Enabled {
		ch, err := database.NewClickHouseDB(ctx, cfg.ClickHouse)
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("failed to initialize warehouse: %w", err)
		}
		a.ch = ch

		wh := store.NewWarehouseStore(ch)
		whPinger = wh
		if err := wh.EnsureSchema(ctx); err != nil {
			a.close(ctx)
			return nil, err
		}
		a.writer = warehouse.NewWriter(wh, warehouse.Config{
			BatchSize:     cfg.ClickHouse.BatchSize,
			FlushInterval: cfg.ClickHouse.FlushInterval,
			QueueSize:     cfg.ClickHouse.QueueSize,
		})
		a.writer.Start()
		ingestOpts = append(ingestOpts, ingest.WithMirror(a.writer))

		if cfg.Analytics.HistorySource == config.HistorySourceWarehouse {
			engineOpts = append(engineOpts, analytics.WithWarehouse(wh))
		}
	}

	tokens := utils.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	secureCookie := strings.EqualFold(cfg.Server.GinMode, gin.ReleaseMode)

	a.router = handlers.NewRouter(handlers.RouterConfig{
		FEOrigin:    cfg.Server.FEOrigin,
		APIKey:      cfg.Auth.APIKey,
		Tokens:      tokens,
		RateLimiter: middleware.NewRateLimiter(cfg.Ingest.RatePerMinute, cfg.Ingest.Burst),
		DB:          db,
		Warehouse:   whPinger,
		Auth:        handlers.NewAuthHandlers(users, tokens, secureCookie),
		Track:       handlers.NewTrackHandlers(ingest.NewService(pageViews, ingestOpts...), cfg.Ingest.WriteTimeout),
		Analytics:   handlers.NewAnalyticsHandlers(analytics.NewEngine(pageViews, cfg.Analytics, engineOpts...)),
	})
	return a, nil
}

// close flushes the warehouse queue before dropping connections.
func (a *app) close(ctx context.Context) {
	if a.writer != nil {
		if err := a.writer.Close(ctx); err != nil {
			logging.Warn().Err(err).Str("breaker", a.writer.State()).Msg("warehouse writer did not drain before shutdown")
		} else {
			logging.Info().Str("breaker", a.writer.State()).Msg("warehouse writer drained")
		}
	}
	if a.ch != nil {
		a.ch.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	gin.SetMode(cfg.Server.GinMode)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: a.router,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Int("port", cfg.Server.Port).Msg("analytics API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("shutting down server")
	case serveErr = <-errCh:
		logging.Error().Err(serveErr).Msg("server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server forced to shutdown")
	}
	a.close(shutdownCtx)

	logging.Info().Msg("server exited")
	return serveErr
}
