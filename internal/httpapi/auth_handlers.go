package httpapi

import (
	"net/http"
	"time"

	"campusshare.org/internal/audit"
	"campusshare.org/internal/auth"
)

type registerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Department string `json:"department"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      map[string]any `json:"user"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, err.Error())
		return
	}

	user, err := auth.NewUser(req.Name, req.Email, req.Password, req.Department)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	if err := a.users.Create(r.Context(), user); err != nil {
		handleAuthError(w, r, err)
		return
	}

	token, expiresAt, err := a.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, kindInternal, "token issuance failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.user.registered", map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})

	writeJSON(w, http.StatusCreated, sessionResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.Public(),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, err.Error())
		return
	}

	user, err := a.users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		// Report invalid credentials for unknown emails too, the
		// response must not reveal which accounts exist.
		handleAuthError(w, r, auth.ErrInvalidCredentials)
		return
	}
	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		handleAuthError(w, r, auth.ErrInvalidCredentials)
		return
	}

	token, expiresAt, err := a.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, kindInternal, "token issuance failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.user.login", map[string]any{
		"user_id": user.ID,
	})

	writeJSON(w, http.StatusOK, sessionResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.Public(),
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"user": user.Public()})
}
