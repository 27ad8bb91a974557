package store

import (
	"context"
	"time"
)

type UserStore struct {
	db DB
}

type User struct {
	ID              int64     `db:"id"`
	KeycloakUserID  string    `db:"keycloak_user_id"`
	FirstName       string    `db:"first_name"`
	LastName        string    `db:"last_name"`
	Email           string    `db:"email"`
	EmailVerified   bool      `db:"email_verified"`
	IsSetupComplete bool      `db:"is_setup_complete"`
	CreatedAt       time.Time `db:"created_at"`
}

type UserInput struct {
	KeycloakUserID string
	FirstName      string
	LastName       string
	Email          string
	EmailVerified  bool
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, tx Execer, input UserInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (keycloak_user_id, first_name, last_name, email, email_verified)
		VALUES ($1, $2, $3, $4, $5)
	`, input.KeycloakUserID, input.FirstName, input.LastName, input.Email, input.EmailVerified)
	return err
}

func (s *UserStore) GetByKeycloakID(ctx context.Context, keycloakUserID string) (User, error) {
	var row User
	err := s.db.GetContext(ctx, &row, `
		SELECT id, keycloak_user_id, first_name, last_name, email, email_verified, is_setup_complete, created_at
		FROM users
		WHERE keycloak_user_id = $1
	`, keycloakUserID)
	if err != nil {
		return User{}, err
	}
	return row, nil
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (User, error) {
	var row User
	err := s.db.GetContext(ctx, &row, `
		SELECT id, keycloak_user_id, first_name, last_name, email, email_verified, is_setup_complete, created_at
		FROM users
		WHERE id = $1
	`, id)
	if err != nil {
		return User{}, err
	}
	return row, nil
}

func (s *UserStore) MarkEmailVerified(ctx context.Context, tx Execer, keycloakUserID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET email_verified = TRUE, updated_at = NOW()
		WHERE keycloak_user_id = $1
	`, keycloakUserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *UserStore) SetSetupComplete(ctx context.Context, tx Execer, id int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users
		SET is_setup_complete = TRUE, updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}
