package auth

import "context"

// ListParams narrows and pages a user listing.
type ListParams struct {
	Role  string // empty means any role
	Page  int    // 1-indexed
	Limit int
}

// Store describes persistence operations for user accounts.
type Store interface {
	// Create persists a new user. Returns ErrEmailTaken when the email is
	// already registered (case-insensitive).
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// List returns users newest-first along with the total matching count.
	List(ctx context.Context, params ListParams) ([]*User, int, error)
	UpdateRole(ctx context.Context, id, role string) (*User, error)
	Count(ctx context.Context) (int, error)
}
