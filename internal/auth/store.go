package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates the admin user does not exist.
	ErrNotFound = errors.New("admin not found")
	// ErrUsernameTaken is returned when creating an admin with an existing username.
	ErrUsernameTaken = errors.New("username already exists")
)

// Admin is a back-office user.
type Admin struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Name      string     `json:"name,omitempty"`
	Role      string     `json:"role,omitempty"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Credentials pairs an admin with the stored password hash.
type Credentials struct {
	Admin        Admin
	PasswordHash string
}

// Store loads and updates admin users.
type Store interface {
	GetByUsername(ctx context.Context, username string) (Credentials, error)
	GetByID(ctx context.Context, id string) (Admin, error)
	RecordLogin(ctx context.Context, id string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	Create(ctx context.Context, username, name, role, passwordHash string) (Admin, error)
}

// PGStore implements Store on the admin_users table.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a Postgres-backed admin store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const adminColumns = `id::text, username, COALESCE(name, ''), COALESCE(role, ''), last_login, created_at`

func scanAdmin(row pgx.Row, extra ...any) (Admin, error) {
	var a Admin
	dest := append([]any{&a.ID, &a.Username, &a.Name, &a.Role, &a.LastLogin, &a.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Admin{}, ErrNotFound
		}
		return Admin{}, err
	}
	return a, nil
}

// GetByUsername loads an admin with its password hash.
func (s *PGStore) GetByUsername(ctx context.Context, username string) (Credentials, error) {
	var hash string
	a, err := scanAdmin(s.pool.QueryRow(ctx,
		`SELECT `+adminColumns+`, password_hash FROM admin_users WHERE username = $1`, username), &hash)
	if err != nil {
		return Credentials{}, fmt.Errorf("get admin by username: %w", err)
	}
	return Credentials{Admin: a, PasswordHash: hash}, nil
}

// GetByID loads an admin by id.
func (s *PGStore) GetByID(ctx context.Context, id string) (Admin, error) {
	a, err := scanAdmin(s.pool.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admin_users WHERE id::text = $1`, id))
	if err != nil {
		return Admin{}, fmt.Errorf("get admin: %w", err)
	}
	return a, nil
}

// RecordLogin stamps the last successful login.
func (s *PGStore) RecordLogin(ctx context.Context, id string, at time.Time) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE admin_users SET last_login = $2, updated_at = NOW() WHERE id::text = $1`, id, at); err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

// UpdatePasswordHash replaces the stored hash.
func (s *PGStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE admin_users SET password_hash = $2, updated_at = NOW() WHERE id::text = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Create inserts a new admin.
func (s *PGStore) Create(ctx context.Context, username, name, role, passwordHash string) (Admin, error) {
	a, err := scanAdmin(s.pool.QueryRow(ctx,
		`INSERT INTO admin_users (username, password_hash, name, role, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NOW(), NOW())
		RETURNING `+adminColumns,
		username, passwordHash, name, role))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Admin{}, ErrUsernameTaken
		}
		return Admin{}, fmt.Errorf("create admin: %w", err)
	}
	return a, nil
}
