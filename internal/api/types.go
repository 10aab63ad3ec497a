package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/appointment"
	"github.com/hackgods/appointment-booking/internal/availability"
	"github.com/hackgods/appointment-booking/internal/user"
)

// TimeLayout is ISO-8601 in UTC with exactly millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp marshals as TimeLayout and accepts any RFC 3339 string.
type Timestamp time.Time

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(TimeLayout))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("timestamp %q is not ISO-8601: %w", s, err)
	}
	*t = Timestamp(parsed)
	return nil
}

func (t Timestamp) Time() time.Time { return time.Time(t) }

// Requests

type SignupRequest struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateAppointmentRequest struct {
	StaffID            string `json:"staffId"`
	AvailabilitySlotID string `json:"availabilitySlotId"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status"`
}

type CreateSlotRequest struct {
	StaffID   string     `json:"staffId,omitempty"`
	StartTime *Timestamp `json:"startTime"`
	EndTime   *Timestamp `json:"endTime"`
}

type UpdateSlotRequest struct {
	ID        string     `json:"id"`
	StartTime *Timestamp `json:"startTime"`
	EndTime   *Timestamp `json:"endTime"`
}

// Responses

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Role      user.Role `json:"role"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

func newUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: Timestamp(u.CreatedAt),
		UpdatedAt: Timestamp(u.UpdatedAt),
	}
}

type AppointmentResponse struct {
	ID        uuid.UUID          `json:"id"`
	UserID    uuid.UUID          `json:"userId"`
	StaffID   uuid.UUID          `json:"staffId"`
	StartTime Timestamp          `json:"startTime"`
	EndTime   Timestamp          `json:"endTime"`
	Status    appointment.Status `json:"status"`
	CreatedAt Timestamp          `json:"createdAt"`
	UpdatedAt Timestamp          `json:"updatedAt"`
}

func newAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		UserID:    a.UserID,
		StaffID:   a.StaffID,
		StartTime: Timestamp(a.StartTime),
		EndTime:   Timestamp(a.EndTime),
		Status:    a.Status,
		CreatedAt: Timestamp(a.CreatedAt),
		UpdatedAt: Timestamp(a.UpdatedAt),
	}
}

type SlotResponse struct {
	ID        uuid.UUID `json:"id"`
	StaffID   uuid.UUID `json:"staffId"`
	StartTime Timestamp `json:"startTime"`
	EndTime   Timestamp `json:"endTime"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

func newSlotResponse(s *availability.Slot) SlotResponse {
	return SlotResponse{
		ID:        s.ID,
		StaffID:   s.StaffID,
		StartTime: Timestamp(s.StartTime),
		EndTime:   Timestamp(s.EndTime),
		CreatedAt: Timestamp(s.CreatedAt),
		UpdatedAt: Timestamp(s.UpdatedAt),
	}
}

type DeleteSlotResponse struct {
	Message     string       `json:"message"`
	DeletedSlot SlotResponse `json:"deletedSlot"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Helpers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

func parseUUID(w http.ResponseWriter, raw, field string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+field, field+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
