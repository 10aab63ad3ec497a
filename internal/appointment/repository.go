package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/availability"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// InStaffTx runs fn in a serializable transaction while holding an
	// exclusive per-staff lock. The lock is granted before the transaction
	// snapshot is taken. fn may be invoked more than once when the
	// transaction has to be retried.
	InStaffTx(ctx context.Context, staffID uuid.UUID, fn func(ctx context.Context, tx Tx) error) error

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// ListAppointmentsForParticipant returns appointments booked by or assigned
	// to the given user, ordered by start time.
	ListAppointmentsForParticipant(ctx context.Context, userID uuid.UUID) ([]Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error)
	// DeleteAppointment removes the appointment and returns it as it was.
	DeleteAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}

// Tx is the booking view of the store inside a transaction.
type Tx interface {
	GetSlotByID(ctx context.Context, id uuid.UUID) (*availability.Slot, error)
	// FindOverlapping returns non-cancelled appointments of the staff member
	// intersecting [start,end).
	FindOverlapping(ctx context.Context, staffID uuid.UUID, start, end time.Time) ([]Appointment, error)
	CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	DeleteSlot(ctx context.Context, id uuid.UUID) error
}
