package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound  = errors.New("availability slot not found")
	ErrStaffNotFound = errors.New("staff member not found")
)

type Repository interface {
	CreateSlot(ctx context.Context, staffID uuid.UUID, start, end time.Time) (*Slot, error)
	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	UpdateSlot(ctx context.Context, id uuid.UUID, start, end time.Time) (*Slot, error)
	// DeleteSlot removes the slot and returns it as it was.
	DeleteSlot(ctx context.Context, id uuid.UUID) (*Slot, error)
	// ListSlotsByStaff returns slots ordered by start time.
	ListSlotsByStaff(ctx context.Context, staffID uuid.UUID) ([]Slot, error)
}
