// Package notify delivers composed notifications to users over one or
// more channels: email via Postmark and the in-app inbox with a live
// WebSocket push.
package notify

import (
	"errors"
	"fmt"

	"github.com/mossrock/bramble/internal/email"
	"github.com/mossrock/bramble/internal/model"
	"github.com/mossrock/bramble/internal/store"
	"github.com/mossrock/bramble/internal/websocket"
)

// Payload is a composed notification ready for delivery. Data carries
// kind-specific details for channels that can render them.
type Payload struct {
	Subject string
	Body    string
	Data    map[string]any
}

// Sender delivers a payload to a user over one channel.
type Sender interface {
	Send(user *model.User, kind string, p Payload) error
}

// EmailSender delivers notifications by email.
type EmailSender struct {
	client *email.Client
}

func NewEmailSender(client *email.Client) *EmailSender {
	return &EmailSender{client: client}
}

func (s *EmailSender) Send(user *model.User, kind string, p Payload) error {
	if !s.client.Configured() {
		return fmt.Errorf("email sender not configured")
	}
	if err := s.client.Send(user.Email, p.Subject, p.Body); err != nil {
		return fmt.Errorf("send %s email to %s: %w", kind, user.Email, err)
	}
	return nil
}

// InAppSender writes notifications to the inbox and pushes them to any
// open WebSocket connections.
type InAppSender struct {
	notifications *store.NotificationStore
	hub           *websocket.Hub
}

func NewInAppSender(notifications *store.NotificationStore, hub *websocket.Hub) *InAppSender {
	return &InAppSender{notifications: notifications, hub: hub}
}

func (s *InAppSender) Send(user *model.User, kind string, p Payload) error {
	n, err := s.notifications.Create(user.ID, kind, p.Subject, p.Body)
	if err != nil {
		return fmt.Errorf("create %s notification: %w", kind, err)
	}
	if s.hub != nil {
		s.hub.SendToUser(user.ID, websocket.Message{
			Type:    "notification",
			ID:      n.ID,
			Subject: n.Subject,
			Extra:   p.Data,
		})
	}
	return nil
}

// Fanout delivers a payload over every configured channel. A channel
// failure does not stop delivery on the others; all errors are joined.
type Fanout struct {
	senders []Sender
}

func NewFanout(senders ...Sender) *Fanout {
	return &Fanout{senders: senders}
}

func (f *Fanout) Send(user *model.User, kind string, p Payload) error {
	var errs []error
	for _, s := range f.senders {
		if err := s.Send(user, kind, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
