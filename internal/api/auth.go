package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/auth"
	"github.com/hackgods/appointment-booking/internal/user"
)

const (
	actorKey contextKey = "actor"
	userKey  contextKey = "user"
)

// UserGetter loads the account behind a verified token.
type UserGetter interface {
	GetUser(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Gate resolves the caller from the token cookies.
type Gate struct {
	tokens       *auth.TokenService
	users        UserGetter
	cookieSecure bool
}

func NewGate(tokens *auth.TokenService, users UserGetter, cookieSecure bool) *Gate {
	return &Gate{tokens: tokens, users: users, cookieSecure: cookieSecure}
}

// resolve returns the user id behind the request cookies. When only the
// refresh token is valid a new access cookie is written to w.
func (g *Gate) resolve(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	access, refresh := auth.TokensFromRequest(r)
	if access == "" && refresh == "" {
		return uuid.Nil, false
	}

	if access != "" {
		if uid, err := g.tokens.VerifyAccess(access); err == nil {
			return uid, true
		}
	}

	if refresh == "" {
		return uuid.Nil, false
	}

	grant, err := g.tokens.RotateFromRefresh(refresh)
	if err != nil {
		return uuid.Nil, false
	}
	auth.SetAccessCookie(w, grant.Token, g.tokens.AccessTTL(), g.cookieSecure)
	return grant.UserID, true
}

// Authenticate rejects requests without a usable token pair with 401 and
// attaches the caller to the request context otherwise.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := g.resolve(w, r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}

		u, err := g.users.GetUser(r.Context(), uid)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized", "user no longer exists")
				return
			}
			log.Printf("gate: load user %s: %v request_id=%s", uid, err, GetRequestID(r.Context()))
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, u.Actor())
		ctx = context.WithValue(ctx, userKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles answers 403 unless the authenticated caller has one of roles.
func RequireRoles(roles ...user.Role) func(http.Handler) http.Handler {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	details := "requires role " + strings.Join(names, " or ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			if !actor.Role.In(roles...) {
				writeError(w, http.StatusForbidden, "forbidden", details)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ActorFromContext(ctx context.Context) (user.Actor, bool) {
	a, ok := ctx.Value(actorKey).(user.Actor)
	return a, ok
}

func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userKey).(*user.User)
	return u, ok
}
