// Package pg implements resource.Service on PostgreSQL. Vote toggles run in
// a transaction that locks the resource row, and the download counter is a
// single in-place increment, so concurrent mutations on the same resource
// never lose an update.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"campusshare.org/internal/resource"
)

const resourceColumns = `r.id, r.title, r.description, r.department, r.subject, r.semester,
	r.file_key, coalesce(r.external_key, ''), r.downloads, r.created_at,
	u.id, u.name, u.email, u.department`

type Store struct {
	db *sql.DB
}

var _ resource.Service = (*Store)(nil)

// Open connects to PostgreSQL through the pgx stdlib driver with pooled
// defaults tuned for a small API fleet.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing database handle (used by tests and cmd wiring).
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Create(ctx context.Context, r *resource.Resource) error {
	var external any
	if r.ExternalKey != "" {
		external = r.ExternalKey
	}
	_, err := s.db.ExecContext(ctx, `
		insert into resources(id, title, description, department, subject, semester,
			file_key, external_key, uploaded_by, downloads, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		r.ID, r.Title, r.Description, r.Department, r.Subject, r.Semester,
		r.FileKey, external, r.UploadedBy.ID, r.Downloads, r.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (*resource.Resource, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		select %s from resources r
		join users u on u.id = r.uploaded_by
		where r.id = $1`, resourceColumns), id)
	r, err := scanResource(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadVoters(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from resources where id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return resource.ErrNotFound
	}
	return nil
}

// ApplyVote locks the resource row for the duration of the toggle so two
// concurrent votes on the same resource serialize; the vote row's primary
// key (resource_id, user_id) enforces at most one reaction per user.
func (s *Store) ApplyVote(ctx context.Context, resourceID, userID string, direction resource.Direction) (resource.VoteResult, error) {
	if !direction.Valid() {
		return resource.VoteResult{}, resource.ErrInvalidVote
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return resource.VoteResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var dummy int
	err = tx.QueryRowContext(ctx, `select 1 from resources where id = $1 for update`, resourceID).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return resource.VoteResult{}, resource.ErrNotFound
	}
	if err != nil {
		return resource.VoteResult{}, err
	}

	var current string
	err = tx.QueryRowContext(ctx,
		`select direction from resource_votes where resource_id = $1 and user_id = $2`,
		resourceID, userID).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return resource.VoteResult{}, err
	}

	switch {
	case current == string(direction):
		// Re-issuing the active vote clears it.
		if _, err := tx.ExecContext(ctx,
			`delete from resource_votes where resource_id = $1 and user_id = $2`,
			resourceID, userID); err != nil {
			return resource.VoteResult{}, err
		}
	default:
		// First vote or direct flip; the upsert covers both.
		if _, err := tx.ExecContext(ctx, `
			insert into resource_votes(resource_id, user_id, direction)
			values ($1,$2,$3)
			on conflict (resource_id, user_id) do update set direction = excluded.direction`,
			resourceID, userID, string(direction)); err != nil {
			return resource.VoteResult{}, err
		}
	}

	var result resource.VoteResult
	err = tx.QueryRowContext(ctx, `
		select
			count(*) filter (where direction = 'up'),
			count(*) filter (where direction = 'down'),
			bool_or(direction = 'up' and user_id = $2),
			bool_or(direction = 'down' and user_id = $2)
		from resource_votes where resource_id = $1`,
		resourceID, userID).Scan(
		&result.Upvotes, &result.Downvotes,
		nullBool{&result.UserHasUpvoted}, nullBool{&result.UserHasDownvoted})
	if err != nil {
		return resource.VoteResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return resource.VoteResult{}, err
	}
	return result, nil
}

func (s *Store) IncrementDownloads(ctx context.Context, resourceID string) (int64, error) {
	var downloads int64
	err := s.db.QueryRowContext(ctx,
		`update resources set downloads = downloads + 1 where id = $1 returning downloads`,
		resourceID).Scan(&downloads)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, resource.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return downloads, nil
}

func (s *Store) List(ctx context.Context, params resource.ListParams) ([]*resource.Resource, int, error) {
	params = resource.NormalizeListParams(params)

	var conditions []string
	var args []any
	if params.Department != "" {
		args = append(args, "%"+params.Department+"%")
		conditions = append(conditions, fmt.Sprintf("r.department ilike $%d", len(args)))
	}
	if params.Subject != "" {
		args = append(args, "%"+params.Subject+"%")
		conditions = append(conditions, fmt.Sprintf("r.subject ilike $%d", len(args)))
	}
	if params.Semester != 0 {
		args = append(args, params.Semester)
		conditions = append(conditions, fmt.Sprintf("r.semester = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = "where " + strings.Join(conditions, " and ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select count(*) from resources r %s`, where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		select %s from resources r
		join users u on u.id = r.uploaded_by
		%s %s limit $%d offset $%d`,
		resourceColumns, where, orderBy(params.Sort), len(args)+1, len(args)+2)
	args = append(args, params.Limit, (params.Page-1)*params.Limit)

	items, err := s.queryResources(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) Search(ctx context.Context, params resource.SearchParams) ([]*resource.Resource, int, error) {
	terms := strings.Fields(strings.ToLower(strings.TrimSpace(params.Query)))
	if len(terms) == 0 {
		return nil, 0, resource.ErrNoSearchQuery
	}
	norm := resource.NormalizeListParams(resource.ListParams{Page: params.Page, Limit: params.Limit})

	// Weighted relevance over title/description/subject/department; a term
	// contributes its field weight when the field contains it.
	var scoreParts []string
	var args []any
	for _, t := range terms {
		args = append(args, "%"+t+"%")
		n := len(args)
		scoreParts = append(scoreParts, fmt.Sprintf(
			`(case when r.title ilike $%d then 10 else 0 end
			+ case when r.description ilike $%d then 5 else 0 end
			+ case when r.subject ilike $%d then 4 else 0 end
			+ case when r.department ilike $%d then 2 else 0 end)`, n, n, n, n))
	}
	score := strings.Join(scoreParts, " + ")

	var total int
	countQuery := fmt.Sprintf(`select count(*) from resources r where (%s) > 0`, score)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		select %s from resources r
		join users u on u.id = r.uploaded_by
		where (%s) > 0
		order by (%s) desc, r.created_at desc
		limit $%d offset $%d`,
		resourceColumns, score, score, len(args)+1, len(args)+2)
	args = append(args, norm.Limit, (norm.Page-1)*norm.Limit)

	items, err := s.queryResources(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `select count(*) from resources`).Scan(&total)
	return total, err
}

func (s *Store) TotalDownloads(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`select coalesce(sum(downloads), 0) from resources`).Scan(&total)
	return total, err
}

func (s *Store) TopContributors(ctx context.Context, by string, limit int) ([]resource.ContributorTotals, error) {
	if limit < 1 {
		limit = 10
	}
	if limit > resource.MaxPageSize {
		limit = resource.MaxPageSize
	}

	order := "total_downloads desc"
	switch by {
	case resource.ByUpvotes:
		order = "total_upvotes desc"
	case resource.ByNet:
		order = "(total_upvotes - total_downvotes) desc"
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		select uploaded_by, total_downloads, total_upvotes, total_downvotes
		from (
			select r.uploaded_by,
				coalesce(sum(r.downloads), 0) as total_downloads,
				coalesce(sum((select count(*) from resource_votes v
					where v.resource_id = r.id and v.direction = 'up')), 0) as total_upvotes,
				coalesce(sum((select count(*) from resource_votes v
					where v.resource_id = r.id and v.direction = 'down')), 0) as total_downvotes
			from resources r
			group by r.uploaded_by
		) agg
		order by %s, uploaded_by asc
		limit $1`, order), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []resource.ContributorTotals
	for rows.Next() {
		var t resource.ContributorTotals
		if err := rows.Scan(&t.UserID, &t.Downloads, &t.Upvotes, &t.Downvotes); err != nil {
			return nil, err
		}
		t.Net = t.Upvotes - t.Downvotes
		res = append(res, t)
	}
	return res, rows.Err()
}

func (s *Store) DownloadsOverTime(ctx context.Context, since time.Time) ([]resource.DownloadPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		select to_char(created_at, 'YYYY-MM-DD') as day, coalesce(sum(downloads), 0)
		from resources
		where created_at >= $1
		group by day
		order by day asc`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []resource.DownloadPoint
	for rows.Next() {
		var p resource.DownloadPoint
		if err := rows.Scan(&p.Date, &p.Downloads); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// --- helpers ---

func orderBy(sortKey string) string {
	switch sortKey {
	case resource.SortOld:
		return "order by r.created_at asc"
	case resource.SortTop:
		return `order by (select count(*) from resource_votes v
			where v.resource_id = r.id and v.direction = 'up') desc, r.created_at desc`
	case resource.SortDownloads:
		return "order by r.downloads desc, r.created_at desc"
	default:
		return "order by r.created_at desc"
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*resource.Resource, error) {
	var r resource.Resource
	err := row.Scan(
		&r.ID, &r.Title, &r.Description, &r.Department, &r.Subject, &r.Semester,
		&r.FileKey, &r.ExternalKey, &r.Downloads, &r.CreatedAt,
		&r.UploadedBy.ID, &r.UploadedBy.Name, &r.UploadedBy.Email, &r.UploadedBy.Department,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, resource.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) queryResources(ctx context.Context, query string, args ...any) ([]*resource.Resource, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*resource.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, r := range res {
		if err := s.loadVoters(ctx, r); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *Store) loadVoters(ctx context.Context, r *resource.Resource) error {
	rows, err := s.db.QueryContext(ctx,
		`select user_id, direction from resource_votes where resource_id = $1`, r.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	r.Upvoters = nil
	r.Downvoters = nil
	for rows.Next() {
		var userID, direction string
		if err := rows.Scan(&userID, &direction); err != nil {
			return err
		}
		if direction == string(resource.VoteUp) {
			r.Upvoters = append(r.Upvoters, userID)
		} else {
			r.Downvoters = append(r.Downvoters, userID)
		}
	}
	return rows.Err()
}

// nullBool scans a possibly-NULL boolean aggregate into a plain bool.
type nullBool struct{ dest *bool }

func (n nullBool) Scan(src any) error {
	b, ok := src.(bool)
	if !ok {
		*n.dest = false
		return nil
	}
	*n.dest = b
	return nil
}
