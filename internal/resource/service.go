package resource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"campusshare.org/internal/ids"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 2000
	maxDepartmentLen  = 100
	maxSubjectLen     = 100
	minSemester       = 1
	maxSemester       = 20
)

// Service defines resource persistence and the vote/download mutations.
// Implementations must apply ApplyVote and IncrementDownloads atomically:
// two concurrent calls on the same resource must not lose either update.
type Service interface {
	Create(ctx context.Context, r *Resource) error
	Get(ctx context.Context, id string) (*Resource, error)
	Delete(ctx context.Context, id string) error

	// ApplyVote runs the toggle-exclusive vote state machine for
	// (resourceID, userID): repeating the active direction clears it,
	// the opposite direction flips in one step.
	ApplyVote(ctx context.Context, resourceID, userID string, direction Direction) (VoteResult, error)

	// IncrementDownloads adds one to the download counter and returns the
	// new value.
	IncrementDownloads(ctx context.Context, resourceID string) (int64, error)

	List(ctx context.Context, params ListParams) ([]*Resource, int, error)
	Search(ctx context.Context, params SearchParams) ([]*Resource, int, error)

	Count(ctx context.Context) (int, error)
	TotalDownloads(ctx context.Context) (int64, error)
	TopContributors(ctx context.Context, by string, limit int) ([]ContributorTotals, error)
	DownloadsOverTime(ctx context.Context, since time.Time) ([]DownloadPoint, error)
}

// New validates and normalizes upload input and returns a Resource ready for
// persistence.
func New(title, description, department, subject string, semester int, fileKey, externalKey string, uploadedBy Uploader) (*Resource, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	department = strings.TrimSpace(department)
	subject = strings.TrimSpace(subject)
	fileKey = strings.TrimSpace(fileKey)

	switch {
	case title == "" || len(title) > maxTitleLen:
		return nil, fmt.Errorf("%w: title must be 1-%d characters", ErrInvalidInput, maxTitleLen)
	case description == "" || len(description) > maxDescriptionLen:
		return nil, fmt.Errorf("%w: description must be 1-%d characters", ErrInvalidInput, maxDescriptionLen)
	case department == "" || len(department) > maxDepartmentLen:
		return nil, fmt.Errorf("%w: department must be 1-%d characters", ErrInvalidInput, maxDepartmentLen)
	case subject == "" || len(subject) > maxSubjectLen:
		return nil, fmt.Errorf("%w: subject must be 1-%d characters", ErrInvalidInput, maxSubjectLen)
	case semester < minSemester || semester > maxSemester:
		return nil, fmt.Errorf("%w: semester must be between %d and %d", ErrInvalidInput, minSemester, maxSemester)
	case fileKey == "":
		return nil, fmt.Errorf("%w: fileKey is required", ErrInvalidInput)
	case uploadedBy.ID == "":
		return nil, fmt.Errorf("%w: uploader is required", ErrInvalidInput)
	}

	return &Resource{
		ID:          ids.New(),
		Title:       title,
		Description: description,
		Department:  department,
		Subject:     subject,
		Semester:    semester,
		FileKey:     fileKey,
		ExternalKey: strings.TrimSpace(externalKey),
		UploadedBy:  uploadedBy,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// NormalizeListParams applies defaults and caps shared by all backends.
func NormalizeListParams(p ListParams) ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	switch p.Sort {
	case SortNew, SortOld, SortTop, SortDownloads:
	default:
		p.Sort = SortNew
	}
	return p
}
