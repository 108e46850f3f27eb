package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"campusshare.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

// authenticate verifies the bearer token and resolves the acting user.
func (a *API) authenticate(r *http.Request) (*auth.User, error) {
	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		return nil, err
	}
	userID, err := a.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := a.users.FindByID(r.Context(), userID)
	if errors.Is(err, auth.ErrNotFound) {
		return nil, auth.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// requireUser rejects unauthenticated requests with 401 and passes the
// resolved user through the request context.
func (a *API) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := a.authenticate(r)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				writeError(w, r, http.StatusUnauthorized, kindUnauthenticated, "token expired")
			case errors.Is(err, auth.ErrInvalidToken):
				writeError(w, r, http.StatusUnauthorized, kindUnauthenticated, "invalid token")
			default:
				writeError(w, r, http.StatusUnauthorized, kindUnauthenticated, err.Error())
			}
			return
		}
		next(w, r.WithContext(auth.ContextWithUser(r.Context(), user)))
	}
}

// optionalUser resolves an identity when a valid token is supplied and stays
// anonymous otherwise; it never rejects.
func (a *API) optionalUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if user, err := a.authenticate(r); err == nil {
			r = r.WithContext(auth.ContextWithUser(r.Context(), user))
		}
		next(w, r)
	}
}

// requireAdmin composes requireUser with a role check (403 on non-admins).
func (a *API) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return a.requireUser(func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.UserFromContext(r.Context())
		if user == nil || !user.IsAdmin() {
			writeError(w, r, http.StatusForbidden, kindForbidden, "admin role required")
			return
		}
		next(w, r)
	})
}
