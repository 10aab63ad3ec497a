package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/appointment-booking/internal/user"
)

// UserLookup resolves recipients of a booking.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type Worker struct {
	rdb     *redis.Client
	channel string
	users   UserLookup
	mailer  Mailer
}

func NewWorker(rdb *redis.Client, channel string, users UserLookup, mailer Mailer) *Worker {
	return &Worker{rdb: rdb, channel: channel, users: users, mailer: mailer}
}

// Run consumes booking events until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	sub := w.rdb.Subscribe(ctx, w.channel)
	defer sub.Close()

	// wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", w.channel, err)
	}
	log.Printf("notify worker listening channel=%s", w.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Println("notify worker stopping")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("subscription channel closed")
			}
			if err := w.Handle(ctx, msg.Payload); err != nil {
				log.Printf("notify worker: %v", err)
			}
		}
	}
}

// Handle decodes one booking event and mails the booking user.
func (w *Worker) Handle(ctx context.Context, payload string) error {
	var ev BookingEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return fmt.Errorf("decode booking event: %w", err)
	}

	recipient, err := w.users.GetUserByID(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("resolve user %s: %w", ev.UserID, err)
	}

	staffName := ""
	if staff, err := w.users.GetUserByID(ctx, ev.StaffID); err == nil {
		staffName = staff.FullName
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	msg := ConfirmationMessage(recipient.Email, recipient.FullName, staffName, ev)
	if err := w.mailer.Send(sendCtx, msg); err != nil {
		return fmt.Errorf("send confirmation for %s: %w", ev.AppointmentID, err)
	}

	log.Printf("confirmation sent appointment_id=%s to=%s", ev.AppointmentID, recipient.Email)
	return nil
}
