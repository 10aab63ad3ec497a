// Package notify delivers booking confirmations. The api-server publishes
// booking events to Redis; the notify-worker consumes them and sends mail.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/appointment-booking/internal/appointment"
)

// BookingEvent is the payload published for every confirmed booking.
type BookingEvent struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	UserID        uuid.UUID `json:"userId"`
	StaffID       uuid.UUID `json:"staffId"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	BookedAt      time.Time `json:"bookedAt"`
}

func NewBookingEvent(appt appointment.Appointment) BookingEvent {
	return BookingEvent{
		AppointmentID: appt.ID,
		UserID:        appt.UserID,
		StaffID:       appt.StaffID,
		StartTime:     appt.StartTime.UTC(),
		EndTime:       appt.EndTime.UTC(),
		BookedAt:      appt.CreatedAt.UTC(),
	}
}

type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

// AppointmentBooked publishes the booking to the notification channel.
func (p *RedisPublisher) AppointmentBooked(ctx context.Context, appt appointment.Appointment) error {
	data, err := json.Marshal(NewBookingEvent(appt))
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish booking event: %w", err)
	}
	return nil
}

var _ appointment.Notifier = (*RedisPublisher)(nil)
