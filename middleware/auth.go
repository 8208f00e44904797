package middleware

import (
	"context"
	"errors"
	"issuehub/apperr"
	"issuehub/auth"
	"issuehub/models"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

type contextKey string

const UserContextKey contextKey = "user"

// Authenticator resolves a bearer token to the user it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// RequireUser rejects requests without a valid bearer token and stores the
// resolved user in the request context.
func RequireUser(authenticator Authenticator, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeErr(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			user, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				if !errors.Is(err, apperr.ErrUnauthorized) {
					log.Error().Err(err).Msg("authenticate")
					writeErr(w, http.StatusInternalServerError, "Internal server error")
					return
				}
				if auth.IsInvalidToken(err) {
					writeErr(w, http.StatusUnauthorized, "Invalid token")
					return
				}
				log.Debug().Err(err).Msg("token subject rejected")
				writeErr(w, http.StatusUnauthorized, apperr.Message(err, "Not authenticated"))
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
