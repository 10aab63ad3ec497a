package appointment_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/appointment"
	"github.com/hackgods/appointment-booking/internal/availability"
	"github.com/hackgods/appointment-booking/internal/memstore"
	redisclient "github.com/hackgods/appointment-booking/internal/redis"
	"github.com/hackgods/appointment-booking/internal/user"
)

type fixture struct {
	store    *memstore.Store
	svc      *appointment.Service
	slots    *availability.Service
	customer user.Actor
	staff    user.Actor
	admin    user.Actor
}

func newFixture(t *testing.T, notifier appointment.Notifier) *fixture {
	t.Helper()
	return newFixtureWithLocker(t, memstore.NewLocker(time.Second), notifier)
}

func newFixtureWithLocker(t *testing.T, locker redisclient.Locker, notifier appointment.Notifier) *fixture {
	t.Helper()

	store := memstore.New()
	f := &fixture{
		store: store,
		svc:   appointment.NewService(store.Appointments(), locker, notifier, time.Second),
		slots: availability.NewService(store.Slots()),
	}
	f.customer = f.addUser(t, "customer@example.com", user.RoleUser)
	f.staff = f.addUser(t, "staff@example.com", user.RoleStaff)
	f.admin = f.addUser(t, "admin@example.com", user.RoleAdmin)
	return f
}

func (f *fixture) addUser(t *testing.T, email string, role user.Role) user.Actor {
	t.Helper()
	u, err := f.store.Users().CreateUser(context.Background(), &user.User{
		ID:       uuid.New(),
		FullName: email,
		Email:    email,
		Role:     role,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.Actor()
}

func (f *fixture) addSlot(t *testing.T, staffID uuid.UUID, start time.Time, d time.Duration) *availability.Slot {
	t.Helper()
	slot, err := f.slots.CreateSlot(context.Background(), staffID, start, start.Add(d))
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return slot
}

var tomorrow9 = time.Date(2030, 1, 2, 9, 0, 0, 0, time.UTC)

func TestBookConfirmsAndConsumesSlot(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	slot := f.addSlot(t, f.staff.ID, tomorrow9, 30*time.Minute)

	appt, err := f.svc.Book(ctx, f.customer.ID, f.staff.ID, slot.ID)
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}

	if appt.Status != appointment.StatusConfirmed {
		t.Errorf("status = %s, want CONFIRMED", appt.Status)
	}
	if !appt.StartTime.Equal(slot.StartTime) || !appt.EndTime.Equal(slot.EndTime) {
		t.Errorf("interval = %v-%v, want %v-%v", appt.StartTime, appt.EndTime, slot.StartTime, slot.EndTime)
	}
	if appt.UserID != f.customer.ID || appt.StaffID != f.staff.ID {
		t.Errorf("participants = %s/%s, want %s/%s", appt.UserID, appt.StaffID, f.customer.ID, f.staff.ID)
	}

	remaining, err := f.slots.ListSlots(ctx, f.staff.ID)
	if err != nil {
		t.Fatalf("ListSlots() error = %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("slot still listed after booking: %+v", remaining)
	}

	events := f.store.Events()
	if len(events) != 1 || events[0].EventType != appointment.EventAppointmentBooked {
		t.Errorf("events = %+v, want one %s", events, appointment.EventAppointmentBooked)
	}
}

func TestBookErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	other := f.addUser(t, "other-staff@example.com", user.RoleStaff)
	slot := f.addSlot(t, f.staff.ID, tomorrow9, 30*time.Minute)

	if _, err := f.svc.Book(ctx, f.customer.ID, f.staff.ID, uuid.New()); !errors.Is(err, appointment.ErrSlotNotFound) {
		t.Errorf("unknown slot error = %v, want ErrSlotNotFound", err)
	}
	if _, err := f.svc.Book(ctx, f.customer.ID, other.ID, slot.ID); !errors.Is(err, appointment.ErrSlotMismatch) {
		t.Errorf("wrong staff error = %v, want ErrSlotMismatch", err)
	}

	// the mismatched attempt must leave the slot bookable
	if _, err := f.svc.Book(ctx, f.customer.ID, f.staff.ID, slot.ID); err != nil {
		t.Fatalf("Book() after mismatch error = %v", err)
	}
	if _, err := f.svc.Book(ctx, f.customer.ID, f.staff.ID, slot.ID); !errors.Is(err, appointment.ErrSlotNotFound) {
		t.Errorf("rebook error = %v, want ErrSlotNotFound", err)
	}
}

func TestBookOverlappingSlotsConflict(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	first := f.addSlot(t, f.staff.ID, tomorrow9, 60*time.Minute)
	second := f.addSlot(t, f.staff.ID, tomorrow9.Add(30*time.Minute), 60*time.Minute)
	adjacent := f.addSlot(t, f.staff.ID, tomorrow9.Add(60*time.Minute), 30*time.Minute)

	if _, err := f.svc.Book(ctx, f.customer.ID, f.staff.ID, first.ID); err != nil {
		t.Fatalf("first Book() error = %v", err)
	}

	_, err := f.svc.Book(ctx, f.customer.ID, f.staff.ID, second.ID)
	if !errors.Is(err, appointment.ErrConflict) {
		t.Fatalf("overlapping Book() error = %v, want ErrConflict", err)
	}

	// a rejected booking keeps its slot
	if _, err := f.store.Slots().GetSlotByID(ctx, second.ID); err != nil {
		t.Errorf("conflicting slot was removed: %v", err)
	}

	if _, err := f.svc.Book(ctx, f.customer.ID, f.staff.ID, adjacent.ID); err != nil {
		t.Errorf("adjacent Book() error = %v, want nil", err)
	}
}

func TestBookIgnoresCancelledAndOtherStaff(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	other := f.addUser(t, "other-staff@example.com", user.RoleStaff)

	mine := f.addSlot(t, f.staff.ID, tomorrow9, 30*time.Minute)
	theirs := f.addSlot(t, other.ID, tomorrow9, 30*time.Minute)

	appt, err := f.svc.Book(ctx, f.customer.ID, f.staff.ID, mine.ID)
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}
	if _, err := f.svc.Book(ctx, f.customer.ID, other.ID, theirs.ID); err != nil {
		t.Errorf("same time with other staff error = %v, want nil", err)
	}

	if _, err := f.svc.UpdateStatus(ctx, appt.ID, appointment.StatusCancelled); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	again := f.addSlot(t, f.staff.ID, tomorrow9, 30*time.Minute)
	if _, err := f.svc.Book(ctx, f.customer.ID, f.staff.ID, again.ID); err != nil {
		t.Errorf("Book() over cancelled appointment error = %v, want nil", err)
	}
}

func TestConcurrentBookingSameSlot(t *testing.T) {
	f := newFixture(t, nil)
	slot := f.addSlot(t, f.staff.ID, tomorrow9, 30*time.Minute)

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Book(context.Background(), f.customer.ID, f.staff.ID, slot.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
	for _, err := range failures {
		if !errors.Is(err, appointment.ErrSlotNotFound) && !errors.Is(err, appointment.ErrConflict) {
			t.Errorf("unexpected failure: %v", err)
		}
	}

	appts, _ := f.svc.ListForActor(context.Background(), f.staff)
	if len(appts) != 1 {
		t.Errorf("staff has %d appointments, want 1", len(appts))
	}
}

// downLocker behaves like the Redis locker when the server cannot be reached.
type downLocker struct{}

func (downLocker) WithStaffLock(ctx context.Context, staffID uuid.UUID, fn func(ctx context.Context) error) error {
	return fmt.Errorf("%w: dial tcp 127.0.0.1:6379: connect: connection refused", redisclient.ErrLockUnavailable)
}

func TestConcurrentBookingOverlappingSlots(t *testing.T) {
	tests := []struct {
		name   string
		locker redisclient.Locker
	}{
		{"staff lock", memstore.NewLocker(time.Second)},
		{"staff lock unavailable", downLocker{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixtureWithLocker(t, tt.locker, nil)
			first := f.addSlot(t, f.staff.ID, tomorrow9, 60*time.Minute)
			second := f.addSlot(t, f.staff.ID, tomorrow9.Add(30*time.Minute), 60*time.Minute)

			const rounds = 10
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
				failures  []error
			)

			for i := 0; i < rounds; i++ {
				for _, slotID := range []uuid.UUID{first.ID, second.ID} {
					wg.Add(1)
					go func(slotID uuid.UUID) {
						defer wg.Done()
						_, err := f.svc.Book(context.Background(), f.customer.ID, f.staff.ID, slotID)
						mu.Lock()
						defer mu.Unlock()
						if err == nil {
							successes++
							return
						}
						failures = append(failures, err)
					}(slotID)
				}
			}
			wg.Wait()

			if successes != 1 {
				t.Fatalf("successes = %d, want exactly 1", successes)
			}
			for _, err := range failures {
				if !errors.Is(err, appointment.ErrSlotNotFound) && !errors.Is(err, appointment.ErrConflict) {
					t.Errorf("unexpected failure: %v", err)
				}
			}

			appts, err := f.svc.ListForActor(context.Background(), f.staff)
			if err != nil {
				t.Fatalf("ListForActor() error = %v", err)
			}
			if len(appts) != 1 {
				t.Fatalf("staff has %d appointments, want 1", len(appts))
			}
			remaining, err := f.slots.ListSlots(context.Background(), f.staff.ID)
			if err != nil {
				t.Fatalf("ListSlots() error = %v", err)
			}
			if len(remaining) != 1 {
				t.Errorf("remaining slots = %d, want the losing slot kept", len(remaining))
			}
		})
	}
}

func TestBookWithoutStaffLockBackend(t *testing.T) {
	f := newFixtureWithLocker(t, downLocker{}, nil)
	slot := f.addSlot(t, f.staff.ID, tomorrow9, 30*time.Minute)

	appt, err := f.svc.Book(context.Background(), f.customer.ID, f.staff.ID, slot.ID)
	if err != nil {
		t.Fatalf("Book() error = %v, want booking on the database lock", err)
	}
	if appt.Status != appointment.StatusConfirmed {
		t.Errorf("status = %s, want CONFIRMED", appt.Status)
	}

	_, err = f.svc.Book(context.Background(), f.customer.ID, f.staff.ID, slot.ID)
	if !errors.Is(err, appointment.ErrSlotNotFound) {
		t.Errorf("rebook error = %v, want ErrSlotNotFound", err)
	}
}

type blockingLocker struct{}

func (blockingLocker) WithStaffLock(ctx context.Context, staffID uuid.UUID, fn func(ctx context.Context) error) error {
	return errLockBusy
}

var errLockBusy = errors.New("busy")

func TestBookLockTimeout(t *testing.T) {
	store := memstore.New()
	locker := memstore.NewLocker(20 * time.Millisecond)
	svc := appointment.NewService(store.Appointments(), locker, nil, time.Second)

	staffID := uuid.New()
	held := make(chan struct{})
	release := make(chan struct{})
	go locker.WithStaffLock(context.Background(), staffID, func(ctx context.Context) error {
		close(held)
		<-release
		return nil
	})
	<-held
	defer close(release)

	_, err := svc.Book(context.Background(), uuid.New(), staffID, uuid.New())
	if !errors.Is(err, appointment.ErrSlotBeingBooked) {
		t.Fatalf("Book() error = %v, want ErrSlotBeingBooked", err)
	}
	if !errors.Is(err, appointment.ErrConflict) {
		t.Errorf("ErrSlotBeingBooked should match ErrConflict")
	}

	other := appointment.NewService(store.Appointments(), blockingLocker{}, nil, time.Second)
	if _, err := other.Book(context.Background(), uuid.New(), staffID, uuid.New()); !errors.Is(err, errLockBusy) {
		t.Errorf("locker error = %v, want passthrough", err)
	}
}

type recordingNotifier struct {
	err  error
	done chan appointment.Appointment
}

func (n *recordingNotifier) AppointmentBooked(ctx context.Context, appt appointment.Appointment) error {
	n.done <- appt
	return n.err
}

func TestBookNotifiesAfterCommit(t *testing.T) {
	notifier := &recordingNotifier{
		err:  errors.New("smtp down"),
		done: make(chan appointment.Appointment, 1),
	}
	f := newFixture(t, notifier)
	slot := f.addSlot(t, f.staff.ID, tomorrow9, 30*time.Minute)

	appt, err := f.svc.Book(context.Background(), f.customer.ID, f.staff.ID, slot.ID)
	if err != nil {
		t.Fatalf("Book() error = %v, notifier failures must not fail booking", err)
	}

	select {
	case got := <-notifier.done:
		if got.ID != appt.ID {
			t.Errorf("notified %s, want %s", got.ID, appt.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was not called")
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	slot := f.addSlot(t, f.staff.ID, tomorrow9, 30*time.Minute)
	appt, err := f.svc.Book(ctx, f.customer.ID, f.staff.ID, slot.ID)
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}

	for _, st := range []appointment.Status{
		appointment.StatusCompleted,
		appointment.StatusPending,
		appointment.StatusCancelled,
		appointment.StatusConfirmed,
	} {
		got, err := f.svc.UpdateStatus(ctx, appt.ID, st)
		if err != nil {
			t.Fatalf("UpdateStatus(%s) error = %v", st, err)
		}
		if got.Status != st {
			t.Errorf("status = %s, want %s", got.Status, st)
		}
	}

	if _, err := f.svc.UpdateStatus(ctx, appt.ID, "ARCHIVED"); !errors.Is(err, appointment.ErrInvalidStatus) {
		t.Errorf("invalid status error = %v, want ErrInvalidStatus", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, uuid.New(), appointment.StatusCompleted); !errors.Is(err, appointment.ErrAppointmentNotFound) {
		t.Errorf("missing id error = %v, want ErrAppointmentNotFound", err)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	stranger := f.addUser(t, "stranger@example.com", user.RoleUser)
	slot := f.addSlot(t, f.staff.ID, tomorrow9, 30*time.Minute)
	appt, err := f.svc.Book(ctx, f.customer.ID, f.staff.ID, slot.ID)
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}

	if _, err := f.svc.Cancel(ctx, stranger, appt.ID); !errors.Is(err, appointment.ErrForbidden) {
		t.Errorf("stranger Cancel() error = %v, want ErrForbidden", err)
	}

	deleted, err := f.svc.Cancel(ctx, f.customer, appt.ID)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if deleted.ID != appt.ID || deleted.Status != appointment.StatusConfirmed {
		t.Errorf("snapshot = %+v, want pre-deletion record", deleted)
	}

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Cancel(ctx, f.customer, appt.ID); !errors.Is(err, appointment.ErrAppointmentNotFound) {
			t.Errorf("repeat Cancel() #%d error = %v, want ErrAppointmentNotFound", i+1, err)
		}
	}

	missing := uuid.New()
	for i := 0; i < 2; i++ {
		if _, err := f.svc.Cancel(ctx, f.admin, missing); !errors.Is(err, appointment.ErrAppointmentNotFound) {
			t.Errorf("missing Cancel() #%d error = %v, want ErrAppointmentNotFound", i+1, err)
		}
	}
}

func TestGetAndListVisibility(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	stranger := f.addUser(t, "stranger@example.com", user.RoleUser)

	later := f.addSlot(t, f.staff.ID, tomorrow9.Add(2*time.Hour), 30*time.Minute)
	earlier := f.addSlot(t, f.staff.ID, tomorrow9, 30*time.Minute)
	a1, err := f.svc.Book(ctx, f.customer.ID, f.staff.ID, later.ID)
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}
	a2, err := f.svc.Book(ctx, f.customer.ID, f.staff.ID, earlier.ID)
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}

	for _, actor := range []user.Actor{f.customer, f.staff, f.admin} {
		if _, err := f.svc.Get(ctx, actor, a1.ID); err != nil {
			t.Errorf("Get() as %s error = %v", actor.Role, err)
		}
	}
	if _, err := f.svc.Get(ctx, stranger, a1.ID); !errors.Is(err, appointment.ErrAppointmentNotFound) {
		t.Errorf("stranger Get() error = %v, want ErrAppointmentNotFound", err)
	}

	for _, actor := range []user.Actor{f.customer, f.staff} {
		list, err := f.svc.ListForActor(ctx, actor)
		if err != nil {
			t.Fatalf("ListForActor() error = %v", err)
		}
		if len(list) != 2 || list[0].ID != a2.ID || list[1].ID != a1.ID {
			t.Errorf("ListForActor(%s) = %+v, want [%s %s]", actor.Role, list, a2.ID, a1.ID)
		}
	}

	list, err := f.svc.ListForActor(ctx, stranger)
	if err != nil {
		t.Fatalf("ListForActor() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("stranger sees %d appointments, want 0", len(list))
	}
}
