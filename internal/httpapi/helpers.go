package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"campusshare.org/internal/audit"
	"campusshare.org/internal/auth"
	"campusshare.org/internal/resource"
)

// Stable machine-readable error kinds carried in every error payload.
const (
	kindNotFound        = "not_found"
	kindInvalidArgument = "invalid_argument"
	kindUnauthenticated = "unauthenticated"
	kindForbidden       = "forbidden"
	kindConflict        = "conflict"
	kindInternal        = "internal"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, kind, msg string) {
	payload := map[string]any{
		"error": msg,
		"kind":  kind,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	if val < min || val > max {
		return 0, errors.New("must be between " + strconv.Itoa(min) + " and " + strconv.Itoa(max))
	}
	return val, nil
}

func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, r, http.StatusConflict, kindConflict, "email is already registered")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, kindUnauthenticated, "invalid email or password")
	case errors.Is(err, auth.ErrExpiredToken):
		writeError(w, r, http.StatusUnauthorized, kindUnauthenticated, "token expired")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, kindUnauthenticated, "invalid token")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, kindNotFound, "user not found")
	default:
		writeError(w, r, http.StatusInternalServerError, kindInternal, "internal error")
	}
}

func handleResourceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, resource.ErrInvalidInput), errors.Is(err, resource.ErrInvalidVote),
		errors.Is(err, resource.ErrNoSearchQuery):
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, err.Error())
	case errors.Is(err, resource.ErrNotFound):
		writeError(w, r, http.StatusNotFound, kindNotFound, "resource not found")
	default:
		writeError(w, r, http.StatusInternalServerError, kindInternal, "internal error")
	}
}
