package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/josh-kwaku/tradebooks/internal/app"
	"github.com/josh-kwaku/tradebooks/internal/config"
	"github.com/josh-kwaku/tradebooks/internal/handler"
	"github.com/josh-kwaku/tradebooks/internal/logging"
	"github.com/josh-kwaku/tradebooks/internal/middleware"
	"github.com/josh-kwaku/tradebooks/internal/migration"
	"github.com/josh-kwaku/tradebooks/internal/repository"
)

var version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("tradebooks-api", cfg.LogLevel, cfg.AppEnv)

	ctx := context.Background()
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, app.PoolConfig(cfg))
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := migration.Run(ctx, db); err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := app.New(db, cfg, reg)
	if err != nil {
		slog.Error("failed to wire services", "error", err)
		os.Exit(1)
	}

	httpMetrics := middleware.NewHTTPMetrics(reg)

	mux := http.NewServeMux()
	registerRoutes(mux, a)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	chain := middleware.Tracing(
		middleware.Logging(logger)(
			middleware.Recovery(
				httpMetrics.Instrument(
					middleware.Idempotency(a.Idempotency)(mux),
				),
			),
		),
	)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           chain,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func registerRoutes(mux *http.ServeMux, a *app.App) {
	health := handler.NewHealthHandler(version,
		handler.Check{Name: "database", Fn: a.DB.PingContext},
		handler.Check{Name: "schema", Fn: func(ctx context.Context) error { return migration.Ready(ctx, a.DB) }},
	)
	ledger := handler.NewLedgerHandler(a.Ledger)
	invoices := handler.NewInvoiceHandler(a.Invoices)
	summaries := handler.NewSummaryHandler(a.Summary)
	transfers := handler.NewTransferHandler(a.Transfers)

	mux.HandleFunc("GET /health", health.Liveness)
	mux.HandleFunc("GET /ready", health.Readiness)

	mux.HandleFunc("GET /api/v1/bank-accounts/{id}/balance", ledger.Balance)
	mux.HandleFunc("POST /api/v1/bank-accounts/{id}/balance/refresh", ledger.RefreshBalance)
	mux.HandleFunc("POST /api/v1/bank-accounts/{id}/transactions", ledger.RecordTransaction)
	mux.HandleFunc("POST /api/v1/transactions/{id}/cancel", ledger.CancelTransaction)
	mux.HandleFunc("POST /api/v1/transactions/{id}/reverse", ledger.ReverseTransaction)

	mux.HandleFunc("GET /api/v1/invoices/{id}/reconciliation", invoices.Reconciliation)
	mux.HandleFunc("POST /api/v1/invoices/{id}/reconciliation/refresh", invoices.Refresh)
	mux.HandleFunc("POST /api/v1/invoices/{id}/payments", invoices.RecordPayment)

	mux.HandleFunc("GET /api/v1/invoices/{id}/transfer-eligibility", transfers.Eligibility)
	mux.HandleFunc("POST /api/v1/invoices/{id}/transfers", transfers.Record)

	mux.HandleFunc("GET /api/v1/summary", summaries.Get)
}

