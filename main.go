package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"incident-reporter/config"
	"incident-reporter/service"
	"incident-reporter/version"

	"github.com/apex/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present; real deployments set env directly
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Set log level
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create service
	svc, err := service.NewService(cfg)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}

	// Start service
	if err := svc.Start(); err != nil {
		log.Fatalf("Failed to start service: %v", err)
	}

	// Setup HTTP server
	router := setupRouter(svc)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown the HTTP server first so open push channels drain before
	// the hub goes away
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	// Stop the service
	if err := svc.Stop(); err != nil {
		log.Errorf("Error stopping service: %v", err)
	}

	log.Info("Server exited")
}

func setupRouter(svc *service.Service) *gin.Engine {
	router := gin.Default()

	// Add gzip compression middleware
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Get handlers
	h := svc.GetHandlers()

	// Report lifecycle
	router.POST("/reports", h.CreateReport)
	router.PATCH("/reports/:id/status", h.AdvanceStatus)
	router.GET("/reports", h.ListAllReports)
	router.GET("/reports/grouped", h.ListGroupedReports)
	router.GET("/reports/user/:id", h.ListReportsByUser)
	router.GET("/reports/device/:id", h.ListReportsByDevice)
	router.GET("/reports/responder/:id", h.ListReportsByResponder)

	// Notifications
	router.GET("/notifications", h.ListNotifications)
	router.GET("/notifications/unread-count", h.UnreadCount)
	router.PATCH("/notifications/mark-all-read", h.MarkAllNotificationsRead)
	router.POST("/notifications/mark-all-read", h.MarkAllNotificationsRead)
	router.PATCH("/notifications/:id/read", h.MarkNotificationRead)
	router.DELETE("/notifications/:id", h.DeleteNotification)

	// Push channel
	router.GET("/events", h.StreamEvents)
	router.GET("/events/ws", h.ListenEvents)

	// Accounts
	router.GET("/responders", h.ListResponders)

	// Health and version
	router.GET("/health", h.HealthCheck)
	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, version.Get("incident-reporter"))
	})

	return router
}
