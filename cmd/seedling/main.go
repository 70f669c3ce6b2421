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

	"github.com/seedlinghq/seedling/internal/backup"
	"github.com/seedlinghq/seedling/internal/billing"
	"github.com/seedlinghq/seedling/internal/database"
	"github.com/seedlinghq/seedling/internal/email"
	"github.com/seedlinghq/seedling/internal/invite"
	"github.com/seedlinghq/seedling/internal/logging"
	"github.com/seedlinghq/seedling/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("SEEDLING_LOG_LEVEL"), os.Getenv("SEEDLING_LOG_FORMAT"))

	port := os.Getenv("SEEDLING_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("SEEDLING_DB_PATH")
	if dbPath == "" {
		dbPath = "seedling.db"
	}

	baseURL := os.Getenv("SEEDLING_BASE_URL")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%s", port)
	}

	secret := os.Getenv("SEEDLING_SECRET")
	if secret == "" {
		slog.Error("SEEDLING_SECRET is required")
		os.Exit(1)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	emailClient := email.NewClient(os.Getenv("SEEDLING_POSTMARK_TOKEN"), os.Getenv("SEEDLING_FROM_EMAIL"))

	billingClient := billing.NewClient(billing.Config{
		SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		PriceID:       os.Getenv("STRIPE_PRICE_ID"),
		AnnualPriceID: os.Getenv("STRIPE_ANNUAL_PRICE_ID"),
		SuccessURL:    baseURL + "/api/stripe/checkout?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     baseURL + "/pricing",
	})

	signer := invite.NewSigner(secret)

	srv := server.New(db, emailClient, billingClient, signer, baseURL, logger)

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("SEEDLING_S3_ENDPOINT"),
			Bucket:    os.Getenv("SEEDLING_S3_BUCKET"),
			Region:    os.Getenv("SEEDLING_S3_REGION"),
			AccessKey: os.Getenv("SEEDLING_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("SEEDLING_S3_SECRET_KEY"),
		},
		DBPath: dbPath,
	}, db, logging.Component(logger, "backup"))

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	backupMgr.Start(bgCtx)

	// Background cleanup goroutine
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					slog.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired sessions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-bgCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("seedling starting", "addr", ":"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	bgCancel()
	backupMgr.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
