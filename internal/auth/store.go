package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/patente-app/backend/internal/database"
	"github.com/patente-app/backend/internal/models"
)

// ErrEmailTaken reports a registration for an address that already has an account.
var ErrEmailTaken = errors.New("email already registered")

const userCols = `id, email, name, username, password, is_admin, show_farsi, premium, premium_until, created_at, updated_at`

// usernameAttempts bounds regeneration after a username collision.
const usernameAttempts = 5

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// CreateUser inserts a user with a generated username, regenerating it when
// another account already holds the candidate.
func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash string) (*models.User, error) {
	now := time.Now().UTC()
	var err error
	for attempt := 0; attempt < usernameAttempts; attempt++ {
		u := models.User{
			Email:     email,
			Name:      name,
			Username:  database.GenerateUsername(name),
			Password:  passwordHash,
			ShowFarsi: true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = s.db.QueryRowxContext(ctx, s.db.Rebind(
			`INSERT INTO users (email, name, username, password, show_farsi, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 RETURNING id`),
			u.Email, u.Name, u.Username, u.Password, u.ShowFarsi, u.CreatedAt, u.UpdatedAt,
		).Scan(&u.ID)
		if err == nil {
			return &u, nil
		}
		if database.IsUniqueViolation(err, "email") {
			return nil, ErrEmailTaken
		}
		if !database.IsUniqueViolation(err, "username") {
			break
		}
	}
	return nil, fmt.Errorf("create user: %w", err)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.get(ctx, `email = ?`, email)
}

func (s *Store) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.get(ctx, `id = ?`, id)
}

func (s *Store) get(ctx context.Context, cond string, arg interface{}) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+userCols+` FROM users WHERE `+cond), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Store) SetShowFarsi(ctx context.Context, id int64, show bool) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE users SET show_farsi = ?, updated_at = ? WHERE id = ?`), show, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// SetAdmin grants or revokes the admin role.
func (s *Store) SetAdmin(ctx context.Context, email string, admin bool) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE users SET is_admin = ?, updated_at = ? WHERE email = ?`), admin, time.Now().UTC(), email)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", email, models.ErrNotFound)
	}
	return nil
}
