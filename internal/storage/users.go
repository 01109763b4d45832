package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// errUserIDRequired is the validation message for a missing user id.
const errUserIDRequired = "user id is required"

// CreateUser creates a new user record and sets u.ID.
func (s *SQLiteStore) CreateUser(ctx context.Context, u *User) error {
	return createUser(ctx, s.db, u)
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*User, error) {
	return getUser(ctx, s.db, id)
}

// GetUserByEmail retrieves a user by email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, errors.New("email is required")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, created_at_unix_ms
		FROM users WHERE email = ?
	`, email)
	return scanUser(row)
}

// ListUsers returns every user ordered by id.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, created_at_unix_ms
		FROM users ORDER BY id
	`)
	if err != nil {
		return nil, wrapReadErr("query users", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAtUnixMs); err != nil {
			return nil, wrapReadErr("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapReadErr("iterate users", err)
	}
	return users, nil
}

func createUser(ctx context.Context, q querier, u *User) error {
	if u == nil {
		return errors.New("user cannot be nil")
	}
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.TrimSpace(u.Email)
	if u.Name == "" {
		return errors.New("name is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.CreatedAtUnixMs == 0 {
		u.CreatedAtUnixMs = time.Now().UnixMilli()
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO users (name, email, created_at_unix_ms)
		VALUES (?, ?, ?)
	`, u.Name, u.Email, u.CreatedAtUnixMs)
	if err != nil {
		return wrapWriteErr(fmt.Sprintf("create user %s", u.Email), err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return wrapReadErr("read user id", err)
	}
	u.ID = id
	return nil
}

func getUser(ctx context.Context, q querier, id int64) (*User, error) {
	if id <= 0 {
		return nil, errors.New(errUserIDRequired)
	}

	row := q.QueryRowContext(ctx, `
		SELECT id, name, email, created_at_unix_ms
		FROM users WHERE id = ?
	`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAtUnixMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, wrapReadErr("get user", err)
	}
	return &u, nil
}
