package notify

import (
	"errors"
	"testing"

	"github.com/mossrock/bramble/internal/database"
	"github.com/mossrock/bramble/internal/model"
	"github.com/mossrock/bramble/internal/store"
)

type senderFunc func(user *model.User, kind string, p Payload) error

func (f senderFunc) Send(user *model.User, kind string, p Payload) error {
	return f(user, kind, p)
}

func TestInAppSenderCreatesInboxEntry(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	user, err := users.Create("frodo@shire.test", "Frodo", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	notifications := store.NewNotificationStore(db)
	sender := NewInAppSender(notifications, nil)

	err = sender.Send(user, model.KindWeeklyDigest, Payload{
		Subject: "Your weekly digest",
		Body:    "3 tasks recommended this week.",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	list, err := notifications.ListByUser(user.ID, false)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(list))
	}
	if list[0].Kind != model.KindWeeklyDigest {
		t.Errorf("Kind = %q, want %q", list[0].Kind, model.KindWeeklyDigest)
	}
	if list[0].Subject != "Your weekly digest" {
		t.Errorf("Subject = %q", list[0].Subject)
	}
	if list[0].Read {
		t.Error("new notification should be unread")
	}
}

func TestFanoutContinuesAfterFailure(t *testing.T) {
	var delivered []string
	failing := senderFunc(func(user *model.User, kind string, p Payload) error {
		return errors.New("smtp down")
	})
	working := senderFunc(func(user *model.User, kind string, p Payload) error {
		delivered = append(delivered, p.Subject)
		return nil
	})

	fanout := NewFanout(failing, working)
	err := fanout.Send(&model.User{ID: 1}, model.KindTaskReminder, Payload{Subject: "Reminder"})
	if err == nil {
		t.Fatal("expected joined error from failing sender")
	}
	if len(delivered) != 1 || delivered[0] != "Reminder" {
		t.Errorf("delivered = %v, want [Reminder]", delivered)
	}
}

func TestFanoutAllSucceed(t *testing.T) {
	var count int
	ok := senderFunc(func(user *model.User, kind string, p Payload) error {
		count++
		return nil
	})

	fanout := NewFanout(ok, ok)
	if err := fanout.Send(&model.User{ID: 1}, model.KindWeeklyDigest, Payload{}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
