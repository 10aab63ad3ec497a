package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/availability"
	"github.com/hackgods/appointment-booking/internal/user"
)

func slotTimes(w http.ResponseWriter, start, end *Timestamp) bool {
	if start == nil || end == nil {
		writeError(w, http.StatusBadRequest, "missing_fields", "startTime and endTime are required")
		return false
	}
	return true
}

// STAFF create slots for themselves; ADMIN may name any staff member.
func createSlotHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())

		var req CreateSlotRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if !slotTimes(w, req.StartTime, req.EndTime) {
			return
		}

		staffID := actor.ID
		if req.StaffID != "" {
			id, ok := parseUUID(w, req.StaffID, "staffId")
			if !ok {
				return
			}
			if id != actor.ID && actor.Role != user.RoleAdmin {
				writeError(w, http.StatusForbidden, "forbidden", "staff may only create their own slots")
				return
			}
			staffID = id
		}

		slot, err := svc.CreateSlot(r.Context(), staffID, req.StartTime.Time(), req.EndTime.Time())
		if err != nil {
			handleSlotError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, newSlotResponse(slot))
	}
}

func updateSlotHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())

		var req UpdateSlotRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		id, ok := parseUUID(w, req.ID, "id")
		if !ok {
			return
		}
		if !slotTimes(w, req.StartTime, req.EndTime) {
			return
		}

		slot, err := svc.UpdateSlot(r.Context(), actor, id, req.StartTime.Time(), req.EndTime.Time())
		if err != nil {
			handleSlotError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, newSlotResponse(slot))
	}
}

func listSlotsHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())

		staffID := actor.ID
		if raw := r.URL.Query().Get("staffId"); raw != "" {
			id, ok := parseUUID(w, raw, "staffId")
			if !ok {
				return
			}
			staffID = id
		}

		slots, err := svc.ListSlots(r.Context(), staffID)
		if err != nil {
			handleSlotError(w, r, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for i := range slots {
			resp = append(resp, newSlotResponse(&slots[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func deleteSlotHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_id", "id must be a valid UUID")
			return
		}

		slot, err := svc.DeleteSlot(r.Context(), actor, id)
		if err != nil {
			handleSlotError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, DeleteSlotResponse{
			Message:     "Availability slot deleted successfully",
			DeletedSlot: newSlotResponse(slot),
		})
	}
}
