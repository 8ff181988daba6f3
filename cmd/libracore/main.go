// Command libracore starts the library-catalog backend.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"libracore/internal/accounts"
	"libracore/internal/catalog"
	"libracore/internal/clock"
	"libracore/internal/config"
	"libracore/internal/lending"
	"libracore/internal/memory"
	"libracore/internal/notify"
	"libracore/internal/postgres"
	"libracore/internal/sweeper"
	"libracore/internal/telemetry"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "libracore", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("setup tracing", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// Stores. DATABASE_URL=memory runs everything in process for development.
	var (
		accountStore accounts.Store
		catalogStore catalog.Store
		loanStore    lending.Store
		transactor   lending.Transactor
	)
	if cfg.DatabaseURL == "memory" {
		db := memory.New()
		accountStore, catalogStore, loanStore, transactor = db.Accounts(), db.Catalog(), db.Loans(), db
		logger.Warn("using in-memory stores, data will not survive restart")
	} else {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("open database", zap.Error(err))
		}
		defer db.Close()
		accountStore = postgres.NewAccountStore(db)
		catalogStore = postgres.NewCatalogStore(db)
		loanStore = postgres.NewLoanStore(db)
		transactor = db
	}

	var notifier notify.Notifier
	if cfg.TwilioAccountSID != "" {
		notifier = notify.NewTwilioNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.CountryCode, logger)
	} else {
		notifier = notify.NewLogNotifier(logger)
		logger.Warn("no SMS provider configured, messages go to the log")
	}

	clk := clock.System{}
	engine := lending.Engine{FinePerDay: cfg.FinePerDay}

	catalogSvc := catalog.NewService(catalogStore, clk, logger)
	accountSvc := accounts.NewService(accountStore, notifier, clk, []byte(cfg.JWTKey), cfg.JWTTTL, cfg.OTPWindow, logger)
	lendingSvc := lending.NewService(loanStore, catalogStore, accountStore, engine, transactor, clk, logger)

	sw := sweeper.New(loanStore, accountStore, catalogStore, notifier, clk,
		cfg.ReminderLead, cfg.RetentionAge, cfg.SweepInterval, logger)
	go sw.Run(ctx)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Group(catalog.NewHandler(catalogSvc).Routes)
	router.Group(accounts.NewHandler(accountSvc).Routes)
	router.Group(lending.NewHandler(lendingSvc).Routes)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
