package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"finagg/internal/cryptoutil"
	"finagg/internal/db"
	"finagg/internal/store"

	"github.com/jmoiron/sqlx"
)

var (
	ErrInvalidPAN      = errors.New("invalid pan format")
	ErrPANTaken        = errors.New("pan already linked to another user")
	ErrPANVerification = errors.New("pan verification failed")
	ErrUserNotFound    = errors.New("user not found")
)

var panPattern = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)

type UserStoreAPI interface {
	Create(ctx context.Context, tx store.Execer, input store.UserInput) error
	GetByKeycloakID(ctx context.Context, keycloakUserID string) (store.User, error)
	GetByID(ctx context.Context, id int64) (store.User, error)
	MarkEmailVerified(ctx context.Context, tx store.Execer, keycloakUserID string) (int64, error)
}

type PancardStoreAPI interface {
	Upsert(ctx context.Context, tx store.Tx, userID int64, encrypted []byte, hash, status string) (int64, error)
	GetByUser(ctx context.Context, userID int64) (store.Pancard, error)
	HashExistsForOtherUser(ctx context.Context, hash string, userID int64) (bool, error)
}

type PANVerifier interface {
	VerifyPAN(ctx context.Context, pan string) (bool, error)
}

type UserService struct {
	txRunner db.TxRunner
	users    UserStoreAPI
	pancards PancardStoreAPI
	verifier PANVerifier
	box      *cryptoutil.Box
}

func NewUserService(txRunner db.TxRunner, users UserStoreAPI, pancards PancardStoreAPI, verifier PANVerifier, box *cryptoutil.Box) *UserService {
	return &UserService{
		txRunner: txRunner,
		users:    users,
		pancards: pancards,
		verifier: verifier,
		box:      box,
	}
}

type RegisterInput struct {
	KeycloakUserID string
	FirstName      string
	LastName       string
	Email          string
	EmailVerified  bool
}

// Register mirrors a new identity-provider account into the local users
// table. Redelivered registration events for a known user are absorbed.
func (s *UserService) Register(ctx context.Context, input RegisterInput) error {
	_, err := s.users.GetByKeycloakID(ctx, input.KeycloakUserID)
	if err == nil {
		log.Printf("user %s already registered, ignoring", input.KeycloakUserID)
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lookup user %s: %w", input.KeycloakUserID, err)
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.users.Create(ctx, tx, store.UserInput{
			KeycloakUserID: input.KeycloakUserID,
			FirstName:      input.FirstName,
			LastName:       input.LastName,
			Email:          input.Email,
			EmailVerified:  input.EmailVerified,
		})
	})
	if err != nil {
		return fmt.Errorf("create user %s: %w", input.KeycloakUserID, err)
	}
	return nil
}

// MarkEmailVerified flips the verification flag from an identity-provider
// event. Unknown users are logged, not failed; the register event may simply
// not have arrived yet and the provider will redeliver.
func (s *UserService) MarkEmailVerified(ctx context.Context, keycloakUserID string) error {
	var updated int64
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var txErr error
		updated, txErr = s.users.MarkEmailVerified(ctx, tx, keycloakUserID)
		return txErr
	})
	if err != nil {
		return fmt.Errorf("mark email verified for %s: %w", keycloakUserID, err)
	}
	if updated == 0 {
		log.Printf("email-verified event for unknown user %s", keycloakUserID)
	}
	return nil
}

func (s *UserService) GetByKeycloakID(ctx context.Context, keycloakUserID string) (store.User, error) {
	user, err := s.users.GetByKeycloakID(ctx, keycloakUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, ErrUserNotFound
	}
	return user, err
}

type Profile struct {
	User      store.User
	PanMasked *string
	PanID     *int64
}

// Profile returns the user row with the masked PAN, if one is stored. The
// plaintext PAN never leaves this package.
func (s *UserService) Profile(ctx context.Context, userID int64) (Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrUserNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	profile := Profile{User: user}
	pancard, err := s.pancards.GetByUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return profile, nil
	}
	if err != nil {
		return Profile{}, err
	}
	pan, err := s.box.Decrypt(pancard.PanEncrypted)
	if err != nil {
		return Profile{}, fmt.Errorf("decrypt pan for user %d: %w", userID, err)
	}
	masked := maskPAN(pan)
	profile.PanMasked = &masked
	profile.PanID = &pancard.ID
	return profile, nil
}

// VerifyAndStorePAN validates the format, checks the PAN is not already
// claimed, verifies it upstream and stores it encrypted at rest. Only the
// deterministic hash is queryable afterwards.
func (s *UserService) VerifyAndStorePAN(ctx context.Context, userID int64, pan string) (int64, error) {
	pan = strings.ToUpper(strings.TrimSpace(pan))
	if !panPattern.MatchString(pan) {
		return 0, ErrInvalidPAN
	}
	hash := cryptoutil.HashPAN(pan)
	taken, err := s.pancards.HashExistsForOtherUser(ctx, hash, userID)
	if err != nil {
		return 0, fmt.Errorf("check pan uniqueness: %w", err)
	}
	if taken {
		return 0, ErrPANTaken
	}
	verified, err := s.verifier.VerifyPAN(ctx, pan)
	if err != nil {
		return 0, fmt.Errorf("verify pan: %w", err)
	}
	if !verified {
		return 0, ErrPANVerification
	}
	encrypted, err := s.box.Encrypt(pan)
	if err != nil {
		return 0, fmt.Errorf("encrypt pan: %w", err)
	}
	var pancardID int64
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var txErr error
		pancardID, txErr = s.pancards.Upsert(ctx, tx, userID, encrypted, hash, "VERIFIED")
		return txErr
	})
	if err != nil {
		return 0, fmt.Errorf("store pan for user %d: %w", userID, err)
	}
	return pancardID, nil
}

func maskPAN(pan string) string {
	if len(pan) != 10 {
		return strings.Repeat("X", len(pan))
	}
	return pan[:2] + "XXXXXX" + pan[8:]
}
