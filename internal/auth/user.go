package auth

import (
	"fmt"
	"strings"
	"time"

	"campusshare.org/internal/ids"
)

const (
	minNameLen       = 2
	maxNameLen       = 100
	minPasswordLen   = 6
	maxDepartmentLen = 100
)

// NewUser validates and normalizes registration input and returns a User ready
// for persistence. The password is hashed here; a User carrying plaintext
// credentials never exists.
func NewUser(name, email, password, department string) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	department = strings.TrimSpace(department)

	if len(name) < minNameLen || len(name) > maxNameLen {
		return nil, fmt.Errorf("%w: name must be %d-%d characters", ErrInvalidInput, minNameLen, maxNameLen)
	}
	if !validEmail(email) {
		return nil, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	if department == "" || len(department) > maxDepartmentLen {
		return nil, fmt.Errorf("%w: department must be 1-%d characters", ErrInvalidInput, maxDepartmentLen)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return &User{
		ID:           ids.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Department:   department,
		Role:         RoleUser,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// validEmail applies the same loose shape check the registration form uses:
// non-empty local part, "@", non-empty domain containing a dot.
func validEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " \t") {
		return false
	}
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return false
	}
	domain := email[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
