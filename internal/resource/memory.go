package resource

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// InMemory implements Service with in-process concurrency safety. It backs
// tests and local development; production configurations use the Postgres
// store.
type InMemory struct {
	mu    sync.RWMutex
	items map[string]*Resource
}

var _ Service = (*InMemory)(nil)

// NewInMemory creates an empty in-memory resource store.
func NewInMemory() *InMemory {
	return &InMemory{items: make(map[string]*Resource)}
}

func (s *InMemory) Create(ctx context.Context, r *Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := cloneResource(r)
	s.items[r.ID] = clone
	return nil
}

func (s *InMemory) Get(ctx context.Context, id string) (*Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneResource(r), nil
}

func (s *InMemory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// ApplyVote mutates the vote sets under the store lock, so concurrent votes
// on the same resource serialize and neither membership change is lost.
func (s *InMemory) ApplyVote(ctx context.Context, resourceID, userID string, direction Direction) (VoteResult, error) {
	if !direction.Valid() {
		return VoteResult{}, ErrInvalidVote
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[resourceID]
	if !ok {
		return VoteResult{}, ErrNotFound
	}

	hasUp := r.HasUpvoted(userID)
	hasDown := r.HasDownvoted(userID)

	switch direction {
	case VoteUp:
		if hasUp {
			r.Upvoters = remove(r.Upvoters, userID)
		} else {
			r.Upvoters = append(r.Upvoters, userID)
			r.Downvoters = remove(r.Downvoters, userID)
		}
	case VoteDown:
		if hasDown {
			r.Downvoters = remove(r.Downvoters, userID)
		} else {
			r.Downvoters = append(r.Downvoters, userID)
			r.Upvoters = remove(r.Upvoters, userID)
		}
	}

	return VoteResult{
		Upvotes:          len(r.Upvoters),
		Downvotes:        len(r.Downvoters),
		UserHasUpvoted:   r.HasUpvoted(userID),
		UserHasDownvoted: r.HasDownvoted(userID),
	}, nil
}

func (s *InMemory) IncrementDownloads(ctx context.Context, resourceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[resourceID]
	if !ok {
		return 0, ErrNotFound
	}
	r.Downloads++
	return r.Downloads, nil
}

func (s *InMemory) List(ctx context.Context, params ListParams) ([]*Resource, int, error) {
	params = NormalizeListParams(params)

	s.mu.RLock()
	var matched []*Resource
	for _, r := range s.items {
		if params.Department != "" && !containsFold(r.Department, params.Department) {
			continue
		}
		if params.Subject != "" && !containsFold(r.Subject, params.Subject) {
			continue
		}
		if params.Semester != 0 && r.Semester != params.Semester {
			continue
		}
		matched = append(matched, cloneResource(r))
	}
	s.mu.RUnlock()

	sortResources(matched, params.Sort)
	total := len(matched)
	return pageOf(matched, params.Page, params.Limit), total, nil
}

func (s *InMemory) Search(ctx context.Context, params SearchParams) ([]*Resource, int, error) {
	terms := searchTerms(params.Query)
	if len(terms) == 0 {
		return nil, 0, ErrNoSearchQuery
	}
	norm := NormalizeListParams(ListParams{Page: params.Page, Limit: params.Limit})

	type scored struct {
		r     *Resource
		score int
	}

	s.mu.RLock()
	var matched []scored
	for _, r := range s.items {
		sc := relevance(r, terms)
		if sc > 0 {
			matched = append(matched, scored{r: cloneResource(r), score: sc})
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		return matched[i].r.CreatedAt.After(matched[j].r.CreatedAt)
	})

	res := make([]*Resource, len(matched))
	for i, m := range matched {
		res[i] = m.r
	}
	total := len(res)
	return pageOf(res, norm.Page, norm.Limit), total, nil
}

func (s *InMemory) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

func (s *InMemory) TotalDownloads(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, r := range s.items {
		total += r.Downloads
	}
	return total, nil
}

func (s *InMemory) TopContributors(ctx context.Context, by string, limit int) ([]ContributorTotals, error) {
	if limit < 1 {
		limit = 10
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	s.mu.RLock()
	totals := make(map[string]*ContributorTotals)
	for _, r := range s.items {
		t, ok := totals[r.UploadedBy.ID]
		if !ok {
			t = &ContributorTotals{UserID: r.UploadedBy.ID}
			totals[r.UploadedBy.ID] = t
		}
		t.Downloads += r.Downloads
		t.Upvotes += len(r.Upvoters)
		t.Downvotes += len(r.Downvoters)
	}
	s.mu.RUnlock()

	res := make([]ContributorTotals, 0, len(totals))
	for _, t := range totals {
		t.Net = t.Upvotes - t.Downvotes
		res = append(res, *t)
	}
	sort.Slice(res, func(i, j int) bool {
		switch by {
		case ByUpvotes:
			if res[i].Upvotes != res[j].Upvotes {
				return res[i].Upvotes > res[j].Upvotes
			}
		case ByNet:
			if res[i].Net != res[j].Net {
				return res[i].Net > res[j].Net
			}
		default:
			if res[i].Downloads != res[j].Downloads {
				return res[i].Downloads > res[j].Downloads
			}
		}
		return res[i].UserID < res[j].UserID
	})
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (s *InMemory) DownloadsOverTime(ctx context.Context, since time.Time) ([]DownloadPoint, error) {
	s.mu.RLock()
	byDay := make(map[string]int64)
	for _, r := range s.items {
		if r.CreatedAt.Before(since) {
			continue
		}
		day := r.CreatedAt.UTC().Format("2006-01-02")
		byDay[day] += r.Downloads
	}
	s.mu.RUnlock()

	res := make([]DownloadPoint, 0, len(byDay))
	for day, n := range byDay {
		res = append(res, DownloadPoint{Date: day, Downloads: n})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date < res[j].Date })
	return res, nil
}

// --- helpers ---

func cloneResource(r *Resource) *Resource {
	clone := *r
	clone.Upvoters = append([]string(nil), r.Upvoters...)
	clone.Downvoters = append([]string(nil), r.Downvoters...)
	return &clone
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func sortResources(items []*Resource, key string) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch key {
		case SortOld:
			return a.CreatedAt.Before(b.CreatedAt)
		case SortTop:
			if len(a.Upvoters) != len(b.Upvoters) {
				return len(a.Upvoters) > len(b.Upvoters)
			}
		case SortDownloads:
			if a.Downloads != b.Downloads {
				return a.Downloads > b.Downloads
			}
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func pageOf(items []*Resource, page, limit int) []*Resource {
	start := (page - 1) * limit
	if start >= len(items) {
		return nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func searchTerms(q string) []string {
	var terms []string
	for _, t := range strings.Fields(strings.ToLower(strings.TrimSpace(q))) {
		if t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// Field weights mirror the search index the feed was originally built on:
// title 10, description 5, subject 4, department 2.
func relevance(r *Resource, terms []string) int {
	title := strings.ToLower(r.Title)
	desc := strings.ToLower(r.Description)
	subject := strings.ToLower(r.Subject)
	dept := strings.ToLower(r.Department)

	score := 0
	for _, t := range terms {
		score += 10 * strings.Count(title, t)
		score += 5 * strings.Count(desc, t)
		score += 4 * strings.Count(subject, t)
		score += 2 * strings.Count(dept, t)
	}
	return score
}
