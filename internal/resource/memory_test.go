package resource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newStoreWith(t *testing.T, items ...*Resource) *InMemory {
	t.Helper()
	s := NewInMemory()
	for _, r := range items {
		if err := s.Create(context.Background(), r); err != nil {
			t.Fatalf("create %s: %v", r.ID, err)
		}
	}
	return s
}

func testResource(id string, createdAt time.Time) *Resource {
	return &Resource{
		ID:          id,
		Title:       "Operating Systems Notes",
		Description: "Full semester notes",
		Department:  "Computer Science",
		Subject:     "Operating Systems",
		Semester:    5,
		FileKey:     "1700000000000-os-notes.pdf",
		UploadedBy:  Uploader{ID: "uploader-1", Name: "Alice"},
		CreatedAt:   createdAt,
	}
}

func TestApplyVoteToggleScenario(t *testing.T) {
	ctx := context.Background()
	s := newStoreWith(t, testResource("r1", time.Now()))

	res, err := s.ApplyVote(ctx, "r1", "u1", VoteUp)
	if err != nil {
		t.Fatalf("vote up: %v", err)
	}
	want := VoteResult{Upvotes: 1, Downvotes: 0, UserHasUpvoted: true, UserHasDownvoted: false}
	if res != want {
		t.Fatalf("after vote up: got %+v, want %+v", res, want)
	}

	// Repeating the active vote clears it.
	res, err = s.ApplyVote(ctx, "r1", "u1", VoteUp)
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	want = VoteResult{}
	if res != want {
		t.Fatalf("after toggle off: got %+v, want %+v", res, want)
	}

	res, err = s.ApplyVote(ctx, "r1", "u1", VoteDown)
	if err != nil {
		t.Fatalf("vote down: %v", err)
	}
	want = VoteResult{Upvotes: 0, Downvotes: 1, UserHasUpvoted: false, UserHasDownvoted: true}
	if res != want {
		t.Fatalf("after vote down: got %+v, want %+v", res, want)
	}
}

func TestApplyVoteFlipIsOneStep(t *testing.T) {
	ctx := context.Background()
	s := newStoreWith(t, testResource("r1", time.Now()))

	if _, err := s.ApplyVote(ctx, "r1", "u1", VoteUp); err != nil {
		t.Fatalf("vote up: %v", err)
	}
	res, err := s.ApplyVote(ctx, "r1", "u1", VoteDown)
	if err != nil {
		t.Fatalf("flip: %v", err)
	}
	if res.Upvotes != 0 || res.Downvotes != 1 || res.UserHasUpvoted || !res.UserHasDownvoted {
		t.Fatalf("flip result: %+v", res)
	}
}

func TestApplyVoteMutualExclusion(t *testing.T) {
	ctx := context.Background()
	s := newStoreWith(t, testResource("r1", time.Now()))

	// An arbitrary vote sequence never leaves a user in both sets.
	seq := []Direction{VoteUp, VoteDown, VoteDown, VoteUp, VoteUp, VoteDown, VoteUp}
	for i, d := range seq {
		res, err := s.ApplyVote(ctx, "r1", "u1", d)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if res.UserHasUpvoted && res.UserHasDownvoted {
			t.Fatalf("step %d: user in both sets: %+v", i, res)
		}
		r, err := s.Get(ctx, "r1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if r.HasUpvoted("u1") && r.HasDownvoted("u1") {
			t.Fatalf("step %d: stored sets overlap", i)
		}
	}
}

func TestApplyVoteErrors(t *testing.T) {
	ctx := context.Background()
	s := newStoreWith(t, testResource("r1", time.Now()))

	if _, err := s.ApplyVote(ctx, "missing", "u1", VoteUp); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing resource: got %v", err)
	}
	if _, err := s.ApplyVote(ctx, "r1", "u1", Direction("sideways")); !errors.Is(err, ErrInvalidVote) {
		t.Fatalf("bad direction: got %v", err)
	}
}

func TestApplyVoteConcurrentUsers(t *testing.T) {
	ctx := context.Background()
	s := newStoreWith(t, testResource("r1", time.Now()))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.ApplyVote(ctx, "r1", fmt.Sprintf("u%d", i), VoteUp); err != nil {
				t.Errorf("vote u%d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	r, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(r.Upvoters) != n {
		t.Fatalf("lost votes: got %d upvoters, want %d", len(r.Upvoters), n)
	}
}

func TestIncrementDownloadsConcurrent(t *testing.T) {
	ctx := context.Background()
	s := newStoreWith(t, testResource("r1", time.Now()))

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.IncrementDownloads(ctx, "r1"); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()

	r, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if r.Downloads != n {
		t.Fatalf("downloads = %d, want %d", r.Downloads, n)
	}
}

func TestListSortDownloads(t *testing.T) {
	ctx := context.Background()
	base := time.Now()
	a := testResource("a", base)
	a.Downloads = 5
	b := testResource("b", base.Add(time.Second))
	b.Downloads = 50
	c := testResource("c", base.Add(2*time.Second))
	c.Downloads = 10
	s := newStoreWith(t, a, b, c)

	items, total, err := s.List(ctx, ListParams{Sort: SortDownloads})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d", total)
	}
	got := []int64{items[0].Downloads, items[1].Downloads, items[2].Downloads}
	if got[0] != 50 || got[1] != 10 || got[2] != 5 {
		t.Fatalf("order = %v, want [50 10 5]", got)
	}
}

func TestListSortTopTiebreakNewest(t *testing.T) {
	ctx := context.Background()
	base := time.Now()
	older := testResource("older", base)
	newer := testResource("newer", base.Add(time.Minute))
	popular := testResource("popular", base.Add(-time.Hour))
	popular.Upvoters = []string{"u1", "u2"}
	s := newStoreWith(t, older, newer, popular)

	items, _, err := s.List(ctx, ListParams{Sort: SortTop})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if items[0].ID != "popular" {
		t.Fatalf("first = %s, want popular", items[0].ID)
	}
	if items[1].ID != "newer" || items[2].ID != "older" {
		t.Fatalf("tiebreak order: %s, %s", items[1].ID, items[2].ID)
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	base := time.Now()
	cs := testResource("cs", base)
	math := testResource("math", base.Add(time.Second))
	math.Department = "Mathematics"
	math.Subject = "Linear Algebra"
	math.Semester = 3
	s := newStoreWith(t, cs, math)

	items, total, err := s.List(ctx, ListParams{Department: "mathemat"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || items[0].ID != "math" {
		t.Fatalf("department filter: total=%d", total)
	}

	items, total, err = s.List(ctx, ListParams{Semester: 5})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || items[0].ID != "cs" {
		t.Fatalf("semester filter: total=%d", total)
	}
}

func TestListPagination(t *testing.T) {
	ctx := context.Background()
	base := time.Now()
	s := NewInMemory()
	for i := 0; i < 25; i++ {
		r := testResource(fmt.Sprintf("r%02d", i), base.Add(time.Duration(i)*time.Second))
		if err := s.Create(ctx, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	items, total, err := s.List(ctx, ListParams{Page: 3, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 25 {
		t.Fatalf("total = %d", total)
	}
	if len(items) != 5 {
		t.Fatalf("last page size = %d, want 5", len(items))
	}

	items, _, err = s.List(ctx, ListParams{Page: 4, Limit: 10})
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("past-end page size = %d, want 0", len(items))
	}
}

func TestSearchRanksTitleAboveDescription(t *testing.T) {
	ctx := context.Background()
	base := time.Now()
	inTitle := testResource("in-title", base)
	inTitle.Title = "Graph Theory Primer"
	inTitle.Description = "Introductory notes"
	inDesc := testResource("in-desc", base.Add(time.Second))
	inDesc.Title = "Discrete Mathematics"
	inDesc.Description = "Covers graph algorithms in depth"
	s := newStoreWith(t, inTitle, inDesc)

	items, total, err := s.Search(ctx, SearchParams{Query: "graph"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d", total)
	}
	if items[0].ID != "in-title" {
		t.Fatalf("first = %s, want in-title", items[0].ID)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	s := NewInMemory()
	if _, _, err := s.Search(context.Background(), SearchParams{Query: "   "}); !errors.Is(err, ErrNoSearchQuery) {
		t.Fatalf("got %v, want ErrNoSearchQuery", err)
	}
}

func TestTopContributors(t *testing.T) {
	ctx := context.Background()
	base := time.Now()
	a := testResource("a", base)
	a.UploadedBy = Uploader{ID: "alice"}
	a.Downloads = 100
	a.Upvoters = []string{"u1"}
	b := testResource("b", base.Add(time.Second))
	b.UploadedBy = Uploader{ID: "bob"}
	b.Downloads = 10
	b.Upvoters = []string{"u1", "u2", "u3"}
	b.Downvoters = []string{"u4"}
	s := newStoreWith(t, a, b)

	byDownloads, err := s.TopContributors(ctx, ByDownloads, 10)
	if err != nil {
		t.Fatalf("by downloads: %v", err)
	}
	if byDownloads[0].UserID != "alice" {
		t.Fatalf("downloads leader = %s", byDownloads[0].UserID)
	}

	byUpvotes, err := s.TopContributors(ctx, ByUpvotes, 10)
	if err != nil {
		t.Fatalf("by upvotes: %v", err)
	}
	if byUpvotes[0].UserID != "bob" {
		t.Fatalf("upvotes leader = %s", byUpvotes[0].UserID)
	}
	if byUpvotes[0].Net != 2 {
		t.Fatalf("bob net = %d, want 2", byUpvotes[0].Net)
	}
}

func TestDownloadsOverTime(t *testing.T) {
	ctx := context.Background()
	day1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)

	a := testResource("a", day1)
	a.Downloads = 3
	b := testResource("b", day1.Add(time.Hour))
	b.Downloads = 2
	c := testResource("c", day2)
	c.Downloads = 7
	old := testResource("old", day1.AddDate(0, -2, 0))
	old.Downloads = 99
	s := newStoreWith(t, a, b, c, old)

	points, err := s.DownloadsOverTime(ctx, day1.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("downloads over time: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2", len(points))
	}
	if points[0].Date != "2026-08-01" || points[0].Downloads != 5 {
		t.Fatalf("day1 point: %+v", points[0])
	}
	if points[1].Date != "2026-08-02" || points[1].Downloads != 7 {
		t.Fatalf("day2 point: %+v", points[1])
	}
}

func TestNewValidation(t *testing.T) {
	uploader := Uploader{ID: "u1", Name: "Alice"}
	cases := []struct {
		name string
		fn   func() (*Resource, error)
	}{
		{"empty title", func() (*Resource, error) {
			return New("", "d", "CS", "OS", 5, "key", "", uploader)
		}},
		{"semester too high", func() (*Resource, error) {
			return New("t", "d", "CS", "OS", 21, "key", "", uploader)
		}},
		{"semester too low", func() (*Resource, error) {
			return New("t", "d", "CS", "OS", 0, "key", "", uploader)
		}},
		{"missing file key", func() (*Resource, error) {
			return New("t", "d", "CS", "OS", 5, "", "", uploader)
		}},
		{"missing uploader", func() (*Resource, error) {
			return New("t", "d", "CS", "OS", 5, "key", "", Uploader{})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.fn(); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("got %v, want ErrInvalidInput", err)
			}
		})
	}

	r, err := New("  Notes  ", "desc", "CS", "OS", 5, "key", "", uploader)
	if err != nil {
		t.Fatalf("valid input: %v", err)
	}
	if r.Title != "Notes" {
		t.Fatalf("title not trimmed: %q", r.Title)
	}
	if r.ID == "" || r.CreatedAt.IsZero() {
		t.Fatalf("identity not assigned: %+v", r)
	}
}
