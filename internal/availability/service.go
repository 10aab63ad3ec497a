package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/user"
)

var (
	ErrInvalidInterval = errors.New("endTime must be later than startTime")
	ErrForbidden       = errors.New("slot belongs to another staff member")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Precision is the resolution slot times are stored and reported with.
const Precision = time.Millisecond

func normalize(start, end time.Time) (time.Time, time.Time, error) {
	start = start.UTC().Truncate(Precision)
	end = end.UTC().Truncate(Precision)
	if !start.Before(end) {
		return time.Time{}, time.Time{}, ErrInvalidInterval
	}
	return start, end, nil
}

func (s *Service) CreateSlot(ctx context.Context, staffID uuid.UUID, start, end time.Time) (*Slot, error) {
	start, end, err := normalize(start, end)
	if err != nil {
		return nil, err
	}

	slot, err := s.repo.CreateSlot(ctx, staffID, start, end)
	if err != nil {
		if errors.Is(err, ErrStaffNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("create slot: %w", err)
	}
	return slot, nil
}

// authorize loads the slot and checks that actor may modify it:
// staff only their own slots, admins any.
func (s *Service) authorize(ctx context.Context, actor user.Actor, id uuid.UUID) (*Slot, error) {
	slot, err := s.repo.GetSlotByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load slot: %w", err)
	}

	switch actor.Role {
	case user.RoleAdmin:
		return slot, nil
	case user.RoleStaff:
		if slot.StaffID == actor.ID {
			return slot, nil
		}
		return nil, ErrForbidden
	case user.RoleUser:
		return nil, ErrForbidden
	}
	return nil, ErrForbidden
}

func (s *Service) UpdateSlot(ctx context.Context, actor user.Actor, id uuid.UUID, start, end time.Time) (*Slot, error) {
	start, end, err := normalize(start, end)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, actor, id); err != nil {
		return nil, err
	}

	slot, err := s.repo.UpdateSlot(ctx, id, start, end)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update slot: %w", err)
	}
	return slot, nil
}

func (s *Service) DeleteSlot(ctx context.Context, actor user.Actor, id uuid.UUID) (*Slot, error) {
	if _, err := s.authorize(ctx, actor, id); err != nil {
		return nil, err
	}

	slot, err := s.repo.DeleteSlot(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete slot: %w", err)
	}
	return slot, nil
}

func (s *Service) ListSlots(ctx context.Context, staffID uuid.UUID) ([]Slot, error) {
	slots, err := s.repo.ListSlotsByStaff(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}
