package store

import (
	"context"
	"time"
)

type PancardStore struct {
	db DB
}

type Pancard struct {
	ID           int64     `db:"id"`
	UserID       int64     `db:"user_id"`
	PanEncrypted []byte    `db:"pan_encrypted"`
	PanHash      string    `db:"pan_hash"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
}

func NewPancardStore(db DB) *PancardStore {
	return &PancardStore{db: db}
}

// Upsert stores one PAN per user; the deterministic hash column carries the
// uniqueness check since the ciphertext is not comparable.
func (s *PancardStore) Upsert(ctx context.Context, tx Tx, userID int64, encrypted []byte, hash, status string) (int64, error) {
	var id int64
	err := tx.GetContext(ctx, &id, `
		INSERT INTO pancards (user_id, pan_encrypted, pan_hash, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET pan_encrypted = EXCLUDED.pan_encrypted,
		    pan_hash = EXCLUDED.pan_hash,
		    status = EXCLUDED.status,
		    updated_at = NOW()
		RETURNING id
	`, userID, encrypted, hash, status)
	return id, err
}

func (s *PancardStore) GetByUser(ctx context.Context, userID int64) (Pancard, error) {
	var row Pancard
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, pan_encrypted, pan_hash, status, created_at
		FROM pancards
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return Pancard{}, err
	}
	return row, nil
}

func (s *PancardStore) HashExistsForOtherUser(ctx context.Context, hash string, userID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM pancards WHERE pan_hash = $1 AND user_id <> $2
		)
	`, hash, userID)
	return exists, err
}
