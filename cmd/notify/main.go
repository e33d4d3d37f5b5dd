package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mossrock/bramble/internal/database"
	"github.com/mossrock/bramble/internal/dispatch"
	"github.com/mossrock/bramble/internal/email"
	"github.com/mossrock/bramble/internal/logging"
	"github.com/mossrock/bramble/internal/notify"
	"github.com/mossrock/bramble/internal/recommend"
	"github.com/mossrock/bramble/internal/store"
)

// notify runs one scheduled-notification dispatch tick and exits. It is
// meant for an external scheduler (cron, systemd timer) pointed at the
// same database as the web server.
func main() {
	dryRun := flag.Bool("dry-run", false, "count due notifications without sending anything")
	flag.Parse()

	logger := logging.Setup(os.Getenv("BRAMBLE_LOG_LEVEL"))

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

	userStore := store.NewUserStore(db)
	taskStore := store.NewTaskStore(db)
	preferenceStore := store.NewPreferenceStore(db)
	recommendationStore := store.NewRecommendationStore(db)
	notificationStore := store.NewNotificationStore(db)

	generator := recommend.NewGenerator(taskStore, recommendationStore)

	senders := []notify.Sender{notify.NewInAppSender(notificationStore, nil)}
	emailClient := email.NewClient(
		os.Getenv("BRAMBLE_POSTMARK_TOKEN"),
		os.Getenv("BRAMBLE_FROM_EMAIL"),
	)
	if emailClient.Configured() {
		senders = append(senders, notify.NewEmailSender(emailClient))
	}

	engine := dispatch.NewEngine(
		preferenceStore,
		userStore,
		store.NewLockStore(db),
		notify.NewFanout(senders...),
		logger.With("component", "dispatch"),
		dispatch.NewWeeklyDigestHandler(generator, recommendationStore, taskStore),
		dispatch.NewTaskReminderHandler(recommendationStore),
	)

	fmt.Println("Processing scheduled notifications...")

	summary, err := engine.Run(context.Background(), time.Now().UTC(), *dryRun)
	if errors.Is(err, dispatch.ErrTickRunning) {
		fmt.Println("Another dispatch tick is already running; skipping.")
		return
	}
	if err != nil {
		logger.Error("dispatch tick failed", "error", err)
		os.Exit(1)
	}

	if summary.DryRun {
		fmt.Printf("Dry run: %d notifications would be processed.\n", summary.Due)
		return
	}

	if summary.Failed > 0 {
		logger.Warn("some notifications failed",
			"due", summary.Due,
			"processed", summary.Processed,
			"failed", summary.Failed)
	}
	fmt.Println("Scheduled notifications processed successfully.")
}
