package resource

import "time"

// Uploader is the owner summary embedded in resource responses.
type Uploader struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

// Resource is an uploaded academic file with its vote sets and download
// counter. Upvoters and Downvoters hold user IDs and are disjoint.
type Resource struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Department  string    `json:"department"`
	Subject     string    `json:"subject"`
	Semester    int       `json:"semester"`
	FileKey     string    `json:"fileKey"`
	ExternalKey string    `json:"externalKey,omitempty"`
	UploadedBy  Uploader  `json:"uploadedBy"`
	Upvoters    []string  `json:"-"`
	Downvoters  []string  `json:"-"`
	Downloads   int64     `json:"downloads"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HasUpvoted reports membership of userID in the upvoter set.
func (r *Resource) HasUpvoted(userID string) bool { return contains(r.Upvoters, userID) }

// HasDownvoted reports membership of userID in the downvoter set.
func (r *Resource) HasDownvoted(userID string) bool { return contains(r.Downvoters, userID) }

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Direction is a vote direction.
type Direction string

const (
	VoteUp   Direction = "up"
	VoteDown Direction = "down"
)

// Valid reports whether d is a recognized direction.
func (d Direction) Valid() bool { return d == VoteUp || d == VoteDown }

// VoteResult reports the aggregate counts and the caller's membership after a
// vote was applied. UserHasUpvoted and UserHasDownvoted are never both true.
type VoteResult struct {
	Upvotes          int  `json:"upvotes"`
	Downvotes        int  `json:"downvotes"`
	UserHasUpvoted   bool `json:"userHasUpvoted"`
	UserHasDownvoted bool `json:"userHasDownvoted"`
}

// Sort keys accepted by List.
const (
	SortNew       = "new"
	SortOld       = "old"
	SortTop       = "top"
	SortDownloads = "downloads"
)

// ListParams filters, sorts and pages the resource feed.
type ListParams struct {
	Department string // case-insensitive substring
	Subject    string // case-insensitive substring
	Semester   int    // 0 means any
	Sort       string // one of the Sort constants, default SortNew
	Page       int    // 1-indexed
	Limit      int    // capped at MaxPageSize
}

// SearchParams pages a free-text relevance search.
type SearchParams struct {
	Query string
	Page  int
	Limit int
}

// MaxPageSize bounds every paginated listing.
const MaxPageSize = 50

// DefaultPageSize is used when no limit is supplied.
const DefaultPageSize = 10

// Pagination describes a result page.
type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalItems   int  `json:"totalItems"`
	ItemsPerPage int  `json:"itemsPerPage"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
}

// NewPagination derives the page descriptor from totals.
func NewPagination(page, limit, total int) Pagination {
	totalPages := (total + limit - 1) / limit
	return Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: limit,
		HasNextPage:  page < totalPages,
		HasPrevPage:  page > 1,
	}
}

// DashboardStats is the admin dashboard aggregate view.
type DashboardStats struct {
	TotalResources int         `json:"totalResources"`
	TotalDownloads int64       `json:"totalDownloads"`
	Recent         []*Resource `json:"recent"`
	TopDownloaded  []*Resource `json:"topDownloaded"`
}

// ContributorTotals aggregates per-uploader activity.
type ContributorTotals struct {
	UserID    string `json:"-"`
	Downloads int64  `json:"downloads"`
	Upvotes   int    `json:"upvotes"`
	Downvotes int    `json:"downvotes"`
	Net       int    `json:"net"`
}

// Contributor ranking keys.
const (
	ByDownloads = "downloads"
	ByUpvotes   = "upvotes"
	ByNet       = "net"
)

// DownloadPoint is one day of download volume.
type DownloadPoint struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Downloads int64  `json:"downloads"`
}
