package api

import (
	"net/http"

	"github.com/hackgods/appointment-booking/internal/auth"
	"github.com/hackgods/appointment-booking/internal/user"
)

type userHandlers struct {
	users        *user.Service
	tokens       *auth.TokenService
	cookieSecure bool
}

// startSession issues a token pair for u and sets both cookies.
func (h *userHandlers) startSession(w http.ResponseWriter, r *http.Request, u *user.User) bool {
	pair, err := h.tokens.IssueTokens(r.Context(), u.ID)
	if err != nil {
		internalError(w, r, err)
		return false
	}
	auth.SetTokenCookies(w, pair, h.tokens.AccessTTL(), h.tokens.RefreshTTL(), h.cookieSecure)
	return true
}

func (h *userHandlers) signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.users.Signup(r.Context(), user.SignupInput{
		FullName:        req.FullName,
		Email:           req.Email,
		Role:            req.Role,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		handleUserError(w, r, err)
		return
	}

	if !h.startSession(w, r, u) {
		return
	}
	writeJSON(w, http.StatusCreated, newUserResponse(u))
}

func (h *userHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleUserError(w, r, err)
		return
	}

	if !h.startSession(w, r, u) {
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}

func (h *userHandlers) logout(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	if err := h.tokens.Revoke(r.Context(), actor.ID); err != nil {
		internalError(w, r, err)
		return
	}

	auth.ClearTokenCookies(w, h.cookieSecure)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

func (h *userHandlers) me(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}
