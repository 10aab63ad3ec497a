package availability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/availability"
	"github.com/hackgods/appointment-booking/internal/memstore"
	"github.com/hackgods/appointment-booking/internal/user"
)

func newActor(t *testing.T, store *memstore.Store, role user.Role) user.Actor {
	t.Helper()
	u, err := store.Users().CreateUser(context.Background(), &user.User{
		ID:    uuid.New(),
		Email: uuid.NewString() + "@example.com",
		Role:  role,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.Actor()
}

var start = time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

func TestCreateSlot(t *testing.T) {
	store := memstore.New()
	svc := availability.NewService(store.Slots())
	staff := newActor(t, store, user.RoleStaff)
	ctx := context.Background()

	local := time.FixedZone("UTC+2", 2*60*60)
	slot, err := svc.CreateSlot(ctx, staff.ID, start.In(local).Add(123456789), start.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("CreateSlot() error = %v", err)
	}
	if slot.StartTime.Location() != time.UTC {
		t.Errorf("start not normalized to UTC: %v", slot.StartTime)
	}
	if slot.StartTime.Nanosecond()%int(time.Millisecond) != 0 {
		t.Errorf("start not truncated to milliseconds: %v", slot.StartTime)
	}

	tests := []struct {
		name       string
		staffID    uuid.UUID
		start, end time.Time
		want       error
	}{
		{"end before start", staff.ID, start, start.Add(-time.Minute), availability.ErrInvalidInterval},
		{"empty interval", staff.ID, start, start, availability.ErrInvalidInterval},
		{"sub-millisecond interval", staff.ID, start, start.Add(time.Microsecond), availability.ErrInvalidInterval},
		{"unknown staff", uuid.New(), start, start.Add(time.Hour), availability.ErrStaffNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateSlot(ctx, tt.staffID, tt.start, tt.end); !errors.Is(err, tt.want) {
				t.Errorf("CreateSlot() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUpdateAndDeleteOwnership(t *testing.T) {
	store := memstore.New()
	svc := availability.NewService(store.Slots())
	owner := newActor(t, store, user.RoleStaff)
	other := newActor(t, store, user.RoleStaff)
	admin := newActor(t, store, user.RoleAdmin)
	customer := newActor(t, store, user.RoleUser)
	ctx := context.Background()

	slot, err := svc.CreateSlot(ctx, owner.ID, start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("CreateSlot() error = %v", err)
	}

	for _, actor := range []user.Actor{other, customer} {
		if _, err := svc.UpdateSlot(ctx, actor, slot.ID, start, start.Add(2*time.Hour)); !errors.Is(err, availability.ErrForbidden) {
			t.Errorf("UpdateSlot() as %s error = %v, want ErrForbidden", actor.Role, err)
		}
		if _, err := svc.DeleteSlot(ctx, actor, slot.ID); !errors.Is(err, availability.ErrForbidden) {
			t.Errorf("DeleteSlot() as %s error = %v, want ErrForbidden", actor.Role, err)
		}
	}

	updated, err := svc.UpdateSlot(ctx, owner, slot.ID, start.Add(time.Hour), start.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("UpdateSlot() error = %v", err)
	}
	if !updated.StartTime.Equal(start.Add(time.Hour)) {
		t.Errorf("start = %v, want %v", updated.StartTime, start.Add(time.Hour))
	}
	if _, err := svc.UpdateSlot(ctx, owner, slot.ID, start, start); !errors.Is(err, availability.ErrInvalidInterval) {
		t.Errorf("UpdateSlot() empty interval error = %v, want ErrInvalidInterval", err)
	}
	if _, err := svc.UpdateSlot(ctx, admin, uuid.New(), start, start.Add(time.Hour)); !errors.Is(err, availability.ErrSlotNotFound) {
		t.Errorf("UpdateSlot() missing error = %v, want ErrSlotNotFound", err)
	}

	deleted, err := svc.DeleteSlot(ctx, admin, slot.ID)
	if err != nil {
		t.Fatalf("DeleteSlot() as admin error = %v", err)
	}
	if deleted.ID != slot.ID {
		t.Errorf("deleted %s, want %s", deleted.ID, slot.ID)
	}
	if _, err := svc.DeleteSlot(ctx, admin, slot.ID); !errors.Is(err, availability.ErrSlotNotFound) {
		t.Errorf("second DeleteSlot() error = %v, want ErrSlotNotFound", err)
	}
}

func TestListSlotsOrdered(t *testing.T) {
	store := memstore.New()
	svc := availability.NewService(store.Slots())
	staff := newActor(t, store, user.RoleStaff)
	other := newActor(t, store, user.RoleStaff)
	ctx := context.Background()

	for _, offset := range []time.Duration{2 * time.Hour, 0, time.Hour} {
		if _, err := svc.CreateSlot(ctx, staff.ID, start.Add(offset), start.Add(offset+30*time.Minute)); err != nil {
			t.Fatalf("CreateSlot() error = %v", err)
		}
	}
	if _, err := svc.CreateSlot(ctx, other.ID, start, start.Add(time.Hour)); err != nil {
		t.Fatalf("CreateSlot() error = %v", err)
	}

	slots, err := svc.ListSlots(ctx, staff.ID)
	if err != nil {
		t.Fatalf("ListSlots() error = %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("got %d slots, want 3", len(slots))
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i-1].StartTime.Before(slots[i].StartTime) {
			t.Errorf("slots not ascending at %d: %v then %v", i, slots[i-1].StartTime, slots[i].StartTime)
		}
	}

	empty, err := svc.ListSlots(ctx, uuid.New())
	if err != nil {
		t.Fatalf("ListSlots() error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("ListSlots() for unknown staff = %#v, want empty slice", empty)
	}
}
