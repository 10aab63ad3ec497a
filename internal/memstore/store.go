// Package memstore keeps users, slots and appointments in process memory.
// It backs the unit tests of the services and the HTTP layer.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/appointment"
	"github.com/hackgods/appointment-booking/internal/availability"
	"github.com/hackgods/appointment-booking/internal/user"
)

type Store struct {
	mu     sync.Mutex
	users  map[uuid.UUID]user.User
	emails map[string]uuid.UUID
	slots  map[uuid.UUID]availability.Slot
	appts  map[uuid.UUID]appointment.Appointment
	events []appointment.EventLog
}

func New() *Store {
	return &Store{
		users:  make(map[uuid.UUID]user.User),
		emails: make(map[string]uuid.UUID),
		slots:  make(map[uuid.UUID]availability.Slot),
		appts:  make(map[uuid.UUID]appointment.Appointment),
	}
}

func (s *Store) Users() *UserRepository               { return &UserRepository{s: s} }
func (s *Store) Slots() *SlotRepository               { return &SlotRepository{s: s} }
func (s *Store) Appointments() *AppointmentRepository { return &AppointmentRepository{s: s} }

// Events returns a copy of the event log.
func (s *Store) Events() []appointment.EventLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]appointment.EventLog(nil), s.events...)
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Users

type UserRepository struct {
	s *Store
}

func (r *UserRepository) CreateUser(ctx context.Context, u *user.User) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.emails[u.Email]; ok {
		return nil, user.ErrEmailTaken
	}
	created := *u
	if created.ID == uuid.Nil {
		created.ID = uuid.New()
	}
	created.CreatedAt = now()
	created.UpdatedAt = created.CreatedAt
	r.s.users[created.ID] = created
	r.s.emails[created.Email] = created.ID

	out := created
	return &out, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.emails[email]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	u := r.s.users[id]
	return &u, nil
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	if token != nil {
		t := *token
		u.RefreshToken = &t
	} else {
		u.RefreshToken = nil
	}
	u.UpdatedAt = now()
	r.s.users[id] = u
	return nil
}

// DeleteUser removes a user. The production store never does this; tests use
// it to model an account that vanished while its tokens are still valid.
func (r *UserRepository) DeleteUser(id uuid.UUID) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if u, ok := r.s.users[id]; ok {
		delete(r.s.emails, u.Email)
		delete(r.s.users, id)
	}
}

// Slots

type SlotRepository struct {
	s *Store
}

func (r *SlotRepository) CreateSlot(ctx context.Context, staffID uuid.UUID, start, end time.Time) (*availability.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[staffID]; !ok {
		return nil, availability.ErrStaffNotFound
	}
	ts := now()
	slot := availability.Slot{
		ID:        uuid.New(),
		StaffID:   staffID,
		StartTime: start,
		EndTime:   end,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	r.s.slots[slot.ID] = slot
	return &slot, nil
}

func (r *SlotRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*availability.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	slot, ok := r.s.slots[id]
	if !ok {
		return nil, availability.ErrSlotNotFound
	}
	return &slot, nil
}

func (r *SlotRepository) UpdateSlot(ctx context.Context, id uuid.UUID, start, end time.Time) (*availability.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	slot, ok := r.s.slots[id]
	if !ok {
		return nil, availability.ErrSlotNotFound
	}
	slot.StartTime = start
	slot.EndTime = end
	slot.UpdatedAt = now()
	r.s.slots[id] = slot
	return &slot, nil
}

func (r *SlotRepository) DeleteSlot(ctx context.Context, id uuid.UUID) (*availability.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	slot, ok := r.s.slots[id]
	if !ok {
		return nil, availability.ErrSlotNotFound
	}
	delete(r.s.slots, id)
	return &slot, nil
}

func (r *SlotRepository) ListSlotsByStaff(ctx context.Context, staffID uuid.UUID) ([]availability.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	result := []availability.Slot{}
	for _, slot := range r.s.slots {
		if slot.StaffID == staffID {
			result = append(result, slot)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

// Appointments

type AppointmentRepository struct {
	s *Store
}

// InStaffTx holds the store lock for the whole of fn, which covers the
// per-staff lock. Writes made through tx are applied only when fn succeeds.
func (r *AppointmentRepository) InStaffTx(ctx context.Context, staffID uuid.UUID, fn func(ctx context.Context, tx appointment.Tx) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx := &memTx{s: r.s, deletedSlots: make(map[uuid.UUID]bool)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	for _, a := range tx.created {
		r.s.appts[a.ID] = a
	}
	for id := range tx.deletedSlots {
		delete(r.s.slots, id)
	}
	return nil
}

func (r *AppointmentRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.appts[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *AppointmentRepository) ListAppointmentsForParticipant(ctx context.Context, userID uuid.UUID) ([]appointment.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	result := []appointment.Appointment{}
	for _, a := range r.s.appts {
		if a.UserID == userID || a.StaffID == userID {
			result = append(result, a)
		}
	}
	sortAppointments(result)
	return result, nil
}

func (r *AppointmentRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status appointment.Status) (*appointment.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.appts[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	a.Status = status
	a.UpdatedAt = now()
	r.s.appts[id] = a
	return &a, nil
}

func (r *AppointmentRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.appts[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	delete(r.s.appts, id)
	return &a, nil
}

func (r *AppointmentRepository) InsertEvent(ctx context.Context, ev appointment.EventLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ev.ID = int64(len(r.s.events) + 1)
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now()
	}
	r.s.events = append(r.s.events, ev)
	return nil
}

func sortAppointments(appts []appointment.Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		if appts[i].StartTime.Equal(appts[j].StartTime) {
			return appts[i].ID.String() < appts[j].ID.String()
		}
		return appts[i].StartTime.Before(appts[j].StartTime)
	})
}

// memTx runs with Store.mu already held and must not lock it again.
type memTx struct {
	s            *Store
	created      []appointment.Appointment
	deletedSlots map[uuid.UUID]bool
}

func (t *memTx) GetSlotByID(ctx context.Context, id uuid.UUID) (*availability.Slot, error) {
	slot, ok := t.s.slots[id]
	if !ok || t.deletedSlots[id] {
		return nil, availability.ErrSlotNotFound
	}
	return &slot, nil
}

func (t *memTx) FindOverlapping(ctx context.Context, staffID uuid.UUID, start, end time.Time) ([]appointment.Appointment, error) {
	result := []appointment.Appointment{}
	check := func(a appointment.Appointment) {
		if a.StaffID != staffID || a.Status == appointment.StatusCancelled {
			return
		}
		if appointment.Overlaps(a.StartTime, a.EndTime, start, end) {
			result = append(result, a)
		}
	}
	for _, a := range t.s.appts {
		check(a)
	}
	for _, a := range t.created {
		check(a)
	}
	sortAppointments(result)
	return result, nil
}

func (t *memTx) CreateAppointment(ctx context.Context, a *appointment.Appointment) (*appointment.Appointment, error) {
	created := *a
	ts := now()
	created.CreatedAt = ts
	created.UpdatedAt = ts
	t.created = append(t.created, created)
	return &created, nil
}

func (t *memTx) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	if _, ok := t.s.slots[id]; !ok || t.deletedSlots[id] {
		return availability.ErrSlotNotFound
	}
	t.deletedSlots[id] = true
	return nil
}
