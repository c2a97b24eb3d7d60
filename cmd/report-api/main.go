package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"greenride/certification-backend/internal/clients"
	"greenride/certification-backend/internal/config"
	"greenride/certification-backend/internal/middleware"
	"greenride/certification-backend/internal/reports"
)

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
	handler := reports.NewHandler(service, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(logger))

	handler.RegisterRoutes(router.Group(""))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   "report-service",
			"timestamp": time.Now(),
		})
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Report service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down report service")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
}
