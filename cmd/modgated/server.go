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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	cli "github.com/urfave/cli/v2"

	"github.com/extmarket/modgate/moderation"
	"github.com/extmarket/modgate/moderation/diff"
	"github.com/extmarket/modgate/moderation/eventbus"
	"github.com/extmarket/modgate/moderation/labelcache"
	"github.com/extmarket/modgate/moderation/notify"
	"github.com/extmarket/modgate/moderation/schema"
	"github.com/extmarket/modgate/moderation/store"
)

type Server struct {
	logger *slog.Logger
	engine *moderation.Engine
	stores *store.GormStores
	echo   *echo.Echo
	httpd  *http.Server
}

func NewServer(cctx *cli.Context, logger *slog.Logger) (*Server, error) {
	engine, stores, err := setupEngine(cctx, logger)
	if err != nil {
		return nil, err
	}
	return &Server{
		logger: logger,
		engine: engine,
		stores: stores,
	}, nil
}

// setupEngine opens the database, wires the label cache and notifier from
// config, and registers the built-in subject types.
func setupEngine(cctx *cli.Context, logger *slog.Logger) (*moderation.Engine, *store.GormStores, error) {
	db, err := store.Open(cctx.String("database-url"), cctx.Int("max-db-connections"))
	if err != nil {
		return nil, nil, err
	}
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		if err := store.EnableTracing(db); err != nil {
			return nil, nil, err
		}
	}

	types := schema.NewTypes()
	policies := moderation.NewRegistry()
	stores := store.NewGormStores(db, types)
	if err := stores.Migrate(); err != nil {
		return nil, nil, err
	}
	if err := db.AutoMigrate(&Listing{}); err != nil {
		return nil, nil, err
	}
	registerListing(types, policies, stores)

	var labels labelcache.Store
	if redisURL := cctx.String("redis-url"); redisURL != "" {
		rs, err := labelcache.NewRedisStore(redisURL, 30*time.Minute)
		if err != nil {
			return nil, nil, err
		}
		labels = rs
	} else {
		labels = labelcache.NewMemStore(5_000, 30*time.Minute)
	}

	differ := diff.NewDiffer(logger)
	differ.Labels = labels
	differ.RegisterResolver("user", func(ctx context.Context, ref schema.Ref) (diff.Link, error) {
		return diff.Link{Text: ref.ID, URL: "/users/" + ref.ID}, nil
	})

	bus := eventbus.New()
	bus.SubscribePost(func(d eventbus.Decision) {
		// decided subjects may have changed their display label
		if d.Subject == nil {
			return
		}
		if err := labels.Purge(context.Background(), d.SubjectType, d.Subject.SubjectID()); err != nil {
			logger.Warn("label cache purge failed", "subjectType", d.SubjectType, "err", err)
		}
	})

	var notifier notify.Notifier
	if url := cctx.String("webhook-url"); url != "" {
		notifier = notify.NewWebhookNotifier(url, cctx.Float64("notify-rate-limit"), logger)
	} else {
		notifier = notify.LogNotifier{Logger: logger}
	}

	engine := &moderation.Engine{
		Logger:   logger,
		Stores:   stores,
		Types:    types,
		Policies: policies,
		Differ:   differ,
		Bus:      bus,
		Notifier: notifier,
	}
	return engine, stores, nil
}

func (srv *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

func (srv *Server) RunAPI(bind string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(srv.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("4M"))
	e.HTTPErrorHandler = srv.errorHandler

	e.GET("/_health", srv.HandleHealthCheck)
	e.GET("/queue", srv.HandleQueue)
	e.GET("/queue/:id", srv.HandleReview)
	e.POST("/queue/:id/approve", srv.HandleApprove)
	e.POST("/queue/:id/reject", srv.HandleReject)
	e.POST("/queue/:id/pending", srv.HandleSetPending)
	e.POST("/queue/approve-all", srv.HandleBulkApprove)
	e.POST("/queue/reject-all", srv.HandleBulkReject)
	e.POST("/queue/set-pending-all", srv.HandleBulkSetPending)
	e.POST("/listings", srv.HandleSubmitListing)

	srv.echo = e
	srv.httpd = &http.Server{
		Handler:        e,
		Addr:           bind,
		WriteTimeout:   time.Minute,
		ReadTimeout:    time.Minute,
		MaxHeaderBytes: 1 << 20,
	}

	srv.logger.Info("starting server", "bind", bind)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				srv.logger.Error("HTTP server shutting down unexpectedly", "err", err)
			}
		}
	}()

	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-exitSignals
	srv.logger.Info("received OS exit signal", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.httpd.Shutdown(ctx); err != nil {
		srv.logger.Error("HTTP server shutdown error", "err", err)
	}
	srv.logger.Info("graceful shutdown complete")
	return nil
}

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(200, GenericStatus{Status: "ok", Daemon: "modgated"})
}
