package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mossrock/bramble/internal/database"
	"github.com/mossrock/bramble/internal/email"
	"github.com/mossrock/bramble/internal/logging"
	"github.com/mossrock/bramble/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("BRAMBLE_LOG_LEVEL"))

	port := os.Getenv("BRAMBLE_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("BRAMBLE_DB_PATH")
	if dbPath == "" {
		dbPath = "bramble.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	emailClient := email.NewClient(
		os.Getenv("BRAMBLE_POSTMARK_TOKEN"),
		os.Getenv("BRAMBLE_FROM_EMAIL"),
	)
	if !emailClient.Configured() {
		logger.Warn("email not configured, scheduled notifications are in-app only")
	}

	srv := server.New(db, emailClient, logger)

	// Hourly scheduled-notification dispatch runs in-process.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched := srv.DispatchScheduler()
	sched.Start(ctx)
	defer sched.Stop()

	// Expired sessions are swept once a day.
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("delete expired sessions", "error", err)
				}
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Bramble running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
