// Package dispatch runs the scheduled-notification tick: it scans for
// preferences whose cron schedule matches the current minute, composes a
// payload per entry through a kind handler, and hands it to the delivery
// fanout.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mossrock/bramble/internal/model"
	"github.com/mossrock/bramble/internal/notify"
	"github.com/mossrock/bramble/internal/store"
)

// ErrTickRunning is returned when a tick is triggered while a previous
// tick is still in flight, in this process or another one sharing the
// database. The trigger is skipped, not queued.
var ErrTickRunning = errors.New("dispatch tick already running")

const (
	// tickLockName identifies the tick in the cross-process lock table.
	tickLockName = "dispatch_tick"
	// tickLockTTL bounds how long a crashed holder blocks the next tick.
	tickLockTTL = time.Hour
)

// FatalScanError wraps a failure to enumerate due preferences. Unlike
// per-entry failures it aborts the whole run.
type FatalScanError struct {
	Err error
}

func (e *FatalScanError) Error() string {
	return fmt.Sprintf("scan due notifications: %v", e.Err)
}

func (e *FatalScanError) Unwrap() error {
	return e.Err
}

// Handler composes the payload for one notification kind.
type Handler interface {
	Kind() string
	Compose(ctx context.Context, user *model.User, now time.Time) (notify.Payload, error)
}

// Summary reports what a single tick did.
type Summary struct {
	EvaluatedAt time.Time
	Due         int
	Processed   int
	Failed      int
	DryRun      bool
}

// Engine evaluates due notification preferences and dispatches them.
type Engine struct {
	mu          sync.Mutex
	preferences *store.PreferenceStore
	users       *store.UserStore
	locks       *store.LockStore
	sender      notify.Sender
	handlers    map[string]Handler
	logger      *slog.Logger
}

func NewEngine(prefs *store.PreferenceStore, users *store.UserStore, locks *store.LockStore, sender notify.Sender, logger *slog.Logger, handlers ...Handler) *Engine {
	byKind := make(map[string]Handler, len(handlers))
	for _, h := range handlers {
		byKind[h.Kind()] = h
	}
	return &Engine{
		preferences: prefs,
		users:       users,
		locks:       locks,
		sender:      sender,
		handlers:    byKind,
		logger:      logger,
	}
}

// Run executes one dispatch tick against a single captured now. With
// dryRun set it only counts the entries that would fire; nothing is
// delivered and no bookkeeping changes.
func (e *Engine) Run(ctx context.Context, now time.Time, dryRun bool) (Summary, error) {
	if !e.mu.TryLock() {
		return Summary{}, ErrTickRunning
	}
	defer e.mu.Unlock()

	if !dryRun {
		acquired, err := e.locks.Acquire(tickLockName, now, tickLockTTL)
		if err != nil {
			return Summary{}, fmt.Errorf("acquire tick lock: %w", err)
		}
		if !acquired {
			return Summary{}, ErrTickRunning
		}
		defer func() {
			if err := e.locks.Release(tickLockName); err != nil {
				e.logger.Error("release tick lock", "error", err)
			}
		}()
	}

	summary := Summary{EvaluatedAt: now, DryRun: dryRun}

	due, err := e.preferences.ListEnabledDue(now)
	if err != nil {
		return summary, &FatalScanError{Err: err}
	}
	summary.Due = len(due)

	if dryRun {
		return summary, nil
	}

	for _, pref := range due {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := e.process(ctx, pref, now); err != nil {
			summary.Failed++
			e.logger.Error("dispatch notification",
				"user_id", pref.UserID,
				"kind", pref.Kind,
				"error", err)
			continue
		}
		summary.Processed++
	}

	return summary, nil
}

func (e *Engine) process(ctx context.Context, pref model.NotificationPreference, now time.Time) error {
	handler, ok := e.handlers[pref.Kind]
	if !ok {
		return fmt.Errorf("no handler for kind %q", pref.Kind)
	}

	user, err := e.users.GetByID(pref.UserID)
	if err != nil {
		return fmt.Errorf("load user %d: %w", pref.UserID, err)
	}
	if user == nil {
		return fmt.Errorf("user %d not found", pref.UserID)
	}

	payload, err := handler.Compose(ctx, user, now)
	if err != nil {
		return fmt.Errorf("compose %s: %w", pref.Kind, err)
	}

	if err := e.sender.Send(user, pref.Kind, payload); err != nil {
		return fmt.Errorf("deliver %s: %w", pref.Kind, err)
	}

	if err := e.preferences.MarkSent(pref.ID, now); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}
