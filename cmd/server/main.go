package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/vidspark/vidspark/internal/api"
	"github.com/vidspark/vidspark/internal/auth"
	"github.com/vidspark/vidspark/internal/billing"
	"github.com/vidspark/vidspark/internal/config"
	"github.com/vidspark/vidspark/internal/generation"
	"github.com/vidspark/vidspark/internal/ledger"
	"github.com/vidspark/vidspark/internal/metrics"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(".")
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DatabaseURL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	m := metrics.New()

	repo := ledger.NewPostgresRepository(db)
	ledgerService := ledger.NewService(repo, cfg.StartingCredits, log, m)

	billingClient := billing.New(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	replicateClient := generation.NewClient(cfg.ReplicateAPIToken, cfg.ReplicateBaseURL)
	generationService := generation.NewService(replicateClient, ledgerService, log, m)

	jwtVerifier, err := auth.NewJWTVerifier(cfg.WorkOSClientID)
	if err != nil {
		log.WithError(err).Fatal("Failed to create JWT verifier")
	}
	defer jwtVerifier.Close()

	accountHandler := api.NewAccountHandler(ledgerService, log)
	paymentsHandler := api.NewPaymentsHandler(billingClient, ledgerService, log, m)
	generationHandler := api.NewGenerationHandler(generationService, log)

	router := api.SetupRoutes(
		accountHandler,
		paymentsHandler,
		generationHandler,
		auth.NewMiddleware(jwtVerifier),
		ledgerService,
		m,
		cfg.FrontendURL,
		log,
	)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Error("Server shutdown error")
		}
	}()

	log.WithField("addr", cfg.ServerAddr).Info("Server starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("Server failed to start")
	}

	log.Info("Server stopped")
}
