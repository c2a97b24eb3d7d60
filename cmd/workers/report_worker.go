package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"greenride/certification-backend/internal/clients"
	"greenride/certification-backend/internal/config"
	"greenride/certification-backend/internal/reports"
)

// The report worker periodically recomputes the cross-service summary so that
// dashboard reads stay warm and upstream services see a steady, bounded read
// load instead of read bursts.
func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	verificationClient := clients.NewVerificationClient(cfg.Services.VerificationURL, cfg.Services.CallTimeout)
	auditClient := clients.NewAuditClient(cfg.Services.AuditURL, cfg.Services.CallTimeout)
	creditClient := clients.NewCreditClient(cfg.Services.CreditURL, cfg.Services.CallTimeout)

	service := reports.NewService(verificationClient, auditClient, creditClient, logger)
	defer service.Close()

	schedule := os.Getenv("REPORT_REFRESH_SCHEDULE")
	if schedule == "" {
		schedule = "@every 1m"
	}

	scheduler := cron.New()
	_, err = scheduler.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := service.RefreshSummary(ctx); err != nil {
			logger.Warn("Summary refresh failed", zap.Error(err))
			return
		}
		logger.Info("Summary refreshed")
	})
	if err != nil {
		logger.Fatal("Invalid refresh schedule", zap.String("schedule", schedule), zap.Error(err))
	}

	logger.Info("Starting report worker", zap.String("schedule", schedule))
	scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Stopping report worker")
	<-scheduler.Stop().Done()
}
