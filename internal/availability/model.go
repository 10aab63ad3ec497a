package availability

import (
	"time"

	"github.com/google/uuid"
)

// Slot is an offered, not yet booked interval of a staff member.
// A slot is removed the moment it is booked.
type Slot struct {
	ID        uuid.UUID
	StaffID   uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
