package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/model"
	"github.com/sakif/miniblog/internal/repository"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue keys are compared by type and value. A package-private
// key type means no other package can read or shadow the resolved identity —
// only this package can mint keys of type contextKey.
type contextKey string

const currentUserKey contextKey = "currentUser"

// Resolver is the identity-resolution middleware. It runs once per request,
// before any route logic, and attaches the resolved *model.User (or nothing,
// for anonymous requests) to the request context.
//
// RESOLUTION ALGORITHM:
//  1. Read the session cookie. Absent → anonymous, zero DB lookups.
//  2. Invalid/expired token → clear the cookie, anonymous.
//  3. Valid token → exactly one user lookup by id.
//  4. User vanished → clear the cookie, anonymous. This self-heals stale
//     sessions instead of leaving the client stuck with a dead cookie.
//  5. Store failure → anonymous, logged. A broken database should not turn
//     every public page view into a 500; routes that truly need identity
//     fail later at their guard.
func Resolver(
	users repository.UserRepository,
	sessions *SessionService,
	logger *slog.Logger,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := sessions.Read(r)
			if err != nil {
				if !errors.Is(err, ErrNoSession) {
					// Tampered or expired token — drop it so the client
					// doesn't keep presenting it.
					sessions.Clear(w)
					logger.Debug("discarding invalid session cookie",
						slog.String("error", err.Error()),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					sessions.Clear(w)
					logger.Warn("session referenced a missing user, session cleared",
						slog.Int64("userID", userID),
					)
				} else {
					logger.Error("identity lookup failed, continuing as anonymous",
						slog.Int64("userID", userID),
						slog.String("error", err.Error()),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), currentUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUser returns the identity the Resolver attached to the context.
// Returns (nil, false) for anonymous requests.
func CurrentUser(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(currentUserKey).(*model.User)
	return user, ok && user != nil
}
