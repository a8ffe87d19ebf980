package store

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/vinsol/interviewsim/internal/model"
)

const userCols = `id, username, display_name, password_hash, role, active, created_at`

// CreateUser inserts a reviewer or admin account.
func (s *Store) CreateUser(u model.User) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO users (username, display_name, password_hash, role, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.Username, u.DisplayName, u.PasswordHash, u.Role, u.Active, time.Now(),
	)
	if err != nil {
		slog.Error("failed to create user", "username", u.Username, "error", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created user", "id", id, "username", u.Username, "role", u.Role)
	return id, nil
}

func (s *Store) userByQuery(query string, arg any) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(query, arg).Scan(
		&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByUsername returns a user by username, or nil if unknown.
func (s *Store) GetUserByUsername(username string) (*model.User, error) {
	return s.userByQuery(`SELECT `+userCols+` FROM users WHERE username = ?`, username)
}

// GetUserByID returns a user by ID, or nil if unknown.
func (s *Store) GetUserByID(id int64) (*model.User, error) {
	return s.userByQuery(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
}

// UserCount returns the total number of accounts.
func (s *Store) UserCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
