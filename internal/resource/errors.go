package resource

import "errors"

var (
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidVote   = errors.New("invalid vote type (must be \"up\" or \"down\")")
	ErrInvalidInput  = errors.New("invalid resource input")
	ErrNoSearchQuery = errors.New("search query is required")
)
