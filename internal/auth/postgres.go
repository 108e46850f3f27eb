package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, name, email, password_hash, department, role, created_at)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Department, u.Role, u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, email, password_hash, department, role, created_at
		 from users where id=$1`, id)
	return scanUser(row)
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, email, password_hash, department, role, created_at
		 from users where email = lower($1)`, email)
	return scanUser(row)
}

func (s *PGStore) List(ctx context.Context, params ListParams) ([]*User, int, error) {
	page, limit := normalizePage(params.Page, params.Limit)
	offset := (page - 1) * limit

	where := ``
	args := []any{}
	if params.Role != "" {
		where = `where role=$1`
		args = append(args, params.Role)
	}
	countQuery := `select count(*) from users ` + where
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`select id, name, email, password_hash, department, role, created_at
		from users %s order by created_at desc, id desc limit $%d offset $%d`, where, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var res []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Department, &u.Role, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		res = append(res, &u)
	}
	return res, total, rows.Err()
}

func (s *PGStore) UpdateRole(ctx context.Context, id, role string) (*User, error) {
	if !ValidRole(role) {
		return nil, ErrInvalidInput
	}
	row := s.db.QueryRowContext(ctx,
		`update users set role=$2 where id=$1
		 returning id, name, email, password_hash, department, role, created_at`, id, role)
	return scanUser(row)
}

func (s *PGStore) Count(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&total)
	return total, err
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Department, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
