package pg

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"campusshare.org/internal/resource"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestApplyVoteFirstUpvote(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from resources where id = (.+) for update").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery("select direction from resource_votes").
		WithArgs("r1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"direction"}))
	mock.ExpectExec("insert into resource_votes").
		WithArgs("r1", "u1", "up").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("from resource_votes where resource_id").
		WithArgs("r1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"up", "down", "has_up", "has_down"}).
			AddRow(1, 0, true, false))
	mock.ExpectCommit()

	got, err := s.ApplyVote(context.Background(), "r1", "u1", resource.VoteUp)
	if err != nil {
		t.Fatalf("apply vote: %v", err)
	}
	want := resource.VoteResult{Upvotes: 1, Downvotes: 0, UserHasUpvoted: true}
	if got != want {
		t.Fatalf("result = %+v, want %+v", got, want)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyVoteToggleOffDeletesRow(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from resources where id = (.+) for update").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery("select direction from resource_votes").
		WithArgs("r1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"direction"}).AddRow("up"))
	mock.ExpectExec("delete from resource_votes").
		WithArgs("r1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("from resource_votes where resource_id").
		WithArgs("r1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"up", "down", "has_up", "has_down"}).
			AddRow(0, 0, nil, nil))
	mock.ExpectCommit()

	got, err := s.ApplyVote(context.Background(), "r1", "u1", resource.VoteUp)
	if err != nil {
		t.Fatalf("apply vote: %v", err)
	}
	if got != (resource.VoteResult{}) {
		t.Fatalf("result = %+v, want cleared state", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyVoteFlipUpsertsOpposite(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from resources where id = (.+) for update").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery("select direction from resource_votes").
		WithArgs("r1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"direction"}).AddRow("up"))
	mock.ExpectExec("insert into resource_votes").
		WithArgs("r1", "u1", "down").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("from resource_votes where resource_id").
		WithArgs("r1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"up", "down", "has_up", "has_down"}).
			AddRow(0, 1, false, true))
	mock.ExpectCommit()

	got, err := s.ApplyVote(context.Background(), "r1", "u1", resource.VoteDown)
	if err != nil {
		t.Fatalf("apply vote: %v", err)
	}
	if got.Downvotes != 1 || !got.UserHasDownvoted || got.UserHasUpvoted {
		t.Fatalf("flip result = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyVoteMissingResource(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from resources where id = (.+) for update").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectRollback()

	_, err := s.ApplyVote(context.Background(), "missing", "u1", resource.VoteUp)
	if !errors.Is(err, resource.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyVoteInvalidDirection(t *testing.T) {
	s, _ := newMock(t)
	if _, err := s.ApplyVote(context.Background(), "r1", "u1", resource.Direction("sideways")); !errors.Is(err, resource.ErrInvalidVote) {
		t.Fatalf("got %v, want ErrInvalidVote", err)
	}
}

func TestIncrementDownloads(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery("update resources set downloads = downloads").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"downloads"}).AddRow(6))

	n, err := s.IncrementDownloads(context.Background(), "r1")
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if n != 6 {
		t.Fatalf("downloads = %d, want 6", n)
	}

	mock.ExpectQuery("update resources set downloads = downloads").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"downloads"}))
	if _, err := s.IncrementDownloads(context.Background(), "missing"); !errors.Is(err, resource.ErrNotFound) {
		t.Fatalf("missing resource: got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec("delete from resources").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.Delete(context.Background(), "missing"); !errors.Is(err, resource.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	s, _ := newMock(t)
	if _, _, err := s.Search(context.Background(), resource.SearchParams{Query: "  "}); !errors.Is(err, resource.ErrNoSearchQuery) {
		t.Fatalf("got %v, want ErrNoSearchQuery", err)
	}
}
