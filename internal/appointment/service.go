package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/availability"
	redisclient "github.com/hackgods/appointment-booking/internal/redis"
	"github.com/hackgods/appointment-booking/internal/user"
)

const (
	EventAppointmentBooked        = "APPOINTMENT_BOOKED"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
	EventAppointmentCancelled     = "APPOINTMENT_CANCELLED"
)

var (
	ErrSlotNotFound    = availability.ErrSlotNotFound
	ErrSlotMismatch    = errors.New("the selected slot does not belong to the specified staff member")
	ErrConflict        = errors.New("appointment time conflicts with existing appointments")
	ErrSlotBeingBooked = fmt.Errorf("%w: staff schedule is being booked, please retry", ErrConflict)
	ErrInvalidStatus   = errors.New("invalid appointment status")
	ErrForbidden       = errors.New("not allowed to modify this appointment")
)

// Notifier is told about bookings after they commit. It must not block for long.
type Notifier interface {
	AppointmentBooked(ctx context.Context, appt Appointment) error
}

type Service struct {
	repo          Repository
	locker        redisclient.Locker
	notifier      Notifier
	notifyTimeout time.Duration
}

func NewService(repo Repository, locker redisclient.Locker, notifier Notifier, notifyTimeout time.Duration) *Service {
	if notifyTimeout <= 0 {
		notifyTimeout = 5 * time.Second
	}
	return &Service{
		repo:          repo,
		locker:        locker,
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
	}
}

// Book converts an availability slot into a confirmed appointment.
//
// The distributed staff lock keeps bookings for one staff member from piling
// up on Postgres. The repository's per-staff lock and serializable transaction
// are what enforce the no-overlap rule, so when the lock backend is down the
// booking runs on them alone.
func (s *Service) Book(ctx context.Context, userID, staffID, slotID uuid.UUID) (*Appointment, error) {
	var created *Appointment

	book := func(ctx context.Context) error {
		return s.repo.InStaffTx(ctx, staffID, func(ctx context.Context, tx Tx) error {
			slot, err := tx.GetSlotByID(ctx, slotID)
			if err != nil {
				if errors.Is(err, ErrSlotNotFound) {
					return err
				}
				return fmt.Errorf("load slot: %w", err)
			}
			if slot.StaffID != staffID {
				return ErrSlotMismatch
			}

			conflicts, err := tx.FindOverlapping(ctx, staffID, slot.StartTime, slot.EndTime)
			if err != nil {
				return fmt.Errorf("check conflicts: %w", err)
			}
			if len(conflicts) > 0 {
				return ErrConflict
			}

			appt, err := tx.CreateAppointment(ctx, &Appointment{
				ID:        uuid.New(),
				UserID:    userID,
				StaffID:   staffID,
				StartTime: slot.StartTime,
				EndTime:   slot.EndTime,
				Status:    StatusConfirmed,
			})
			if err != nil {
				return fmt.Errorf("create appointment: %w", err)
			}

			if err := tx.DeleteSlot(ctx, slot.ID); err != nil {
				return fmt.Errorf("consume slot: %w", err)
			}

			created = appt
			return nil
		})
	}

	err := s.locker.WithStaffLock(ctx, staffID, book)
	if errors.Is(err, redisclient.ErrLockUnavailable) {
		log.Printf("staff lock unavailable, booking staff=%s on database lock only: %v", staffID, err)
		err = book(ctx)
	}
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.logEvent(ctx, created.ID, EventAppointmentBooked, map[string]any{
		"slot_id":    slotID.String(),
		"user_id":    userID.String(),
		"staff_id":   staffID.String(),
		"start_time": created.StartTime,
		"end_time":   created.EndTime,
	})
	s.notifyBooked(ctx, *created)

	return created, nil
}

// notifyBooked hands the booking to the notifier without waiting for it.
func (s *Service) notifyBooked(ctx context.Context, appt Appointment) {
	if s.notifier == nil {
		return
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	go func() {
		defer cancel()
		if err := s.notifier.AppointmentBooked(notifyCtx, appt); err != nil {
			log.Printf("notify booking %s: %v", appt.ID, err)
		}
	}()
}

// UpdateStatus overwrites the status. Any known status may follow any other.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentStatusChanged, map[string]any{
		"status": updated.Status,
	})
	return updated, nil
}

// Cancel deletes the appointment and returns it as it was before deletion.
// Only the booking user or an admin may cancel.
func (s *Service) Cancel(ctx context.Context, actor user.Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if !actor.IsAdmin() && appt.UserID != actor.ID {
		return nil, ErrForbidden
	}

	deleted, err := s.repo.DeleteAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete appointment: %w", err)
	}

	s.logEvent(ctx, deleted.ID, EventAppointmentCancelled, map[string]any{
		"cancelled_by": actor.ID.String(),
	})
	return deleted, nil
}

// Get returns the appointment if actor booked it, is assigned to it, or is an
// admin. Everyone else gets ErrAppointmentNotFound.
func (s *Service) Get(ctx context.Context, actor user.Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}

	if !actor.IsAdmin() && appt.UserID != actor.ID && appt.StaffID != actor.ID {
		return nil, ErrAppointmentNotFound
	}
	return appt, nil
}

// ListForActor returns the appointments actor booked or is assigned to.
func (s *Service) ListForActor(ctx context.Context, actor user.Actor) ([]Appointment, error) {
	appts, err := s.repo.ListAppointmentsForParticipant(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for appointment %s: %v", eventType, appointmentID, err)
	}
}
