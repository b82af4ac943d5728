package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role is a dashboard user's role.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleAgent      Role = "agent"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleAgent:
		return true
	}
	return false
}

// User is a dashboard account.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// ErrUserNotFound is returned when a username does not exist.
var ErrUserNotFound = errors.New("user not found")

// GetUser loads one user.
func (s *Store) GetUser(ctx context.Context, username string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password_hash, role, created_at FROM users WHERE username = ?`, username).
		Scan(&u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

// CreateUser inserts a user with a bcrypt-hashed password.
func (s *Store) CreateUser(ctx context.Context, username, password string, role Role) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO users (username, password_hash, role, created_at) VALUES (?,?,?,?)`,
		username, string(hash), role, time.Now().UTC())
	return err
}

// CheckPassword verifies a user's password, returning the user on success.
func (s *Store) CheckPassword(ctx context.Context, username, password string) (User, bool) {
	u, err := s.GetUser(ctx, username)
	if err != nil {
		return User{}, false
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, false
	}
	return u, true
}

// SeedAdmin creates the initial admin account when the user table is empty.
// A no-op once any user exists.
func (s *Store) SeedAdmin(ctx context.Context, password string) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.CreateUser(ctx, "admin", password, RoleAdmin)
}
