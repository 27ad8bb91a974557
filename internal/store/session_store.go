package store

import (
	"context"
	"time"

	"finagg/internal/models"
)

type SessionStore struct {
	db DB
}

type DataSession struct {
	ID               int64                `db:"id"`
	SessionID        string               `db:"session_id"`
	ConsentRequestID int64                `db:"consent_request_id"`
	Status           models.SessionStatus `db:"status"`
	DataRangeFrom    *time.Time           `db:"data_range_from"`
	DataRangeTo      *time.Time           `db:"data_range_to"`
	LastFetchedAt    *time.Time           `db:"last_fetched_at"`
	UsageCount       int                  `db:"usage_count"`
	FilePath         *string              `db:"file_path"`
	FileStatus       models.FileStatus    `db:"file_status"`
	CreatedAt        time.Time            `db:"created_at"`
}

type DataSessionInput struct {
	SessionID        string
	ConsentRequestID int64
	Status           models.SessionStatus
	DataRangeFrom    *time.Time
	DataRangeTo      *time.Time
}

func NewSessionStore(db DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, tx Tx, input DataSessionInput) (int64, error) {
	var id int64
	err := tx.GetContext(ctx, &id, `
		INSERT INTO data_sessions (session_id, consent_request_id, status, data_range_from, data_range_to, file_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, input.SessionID, input.ConsentRequestID, input.Status, input.DataRangeFrom, input.DataRangeTo, models.FileNone)
	return id, err
}

func (s *SessionStore) GetByID(ctx context.Context, id int64) (DataSession, error) {
	var row DataSession
	err := s.db.GetContext(ctx, &row, `
		SELECT id, session_id, consent_request_id, status, data_range_from, data_range_to,
		       last_fetched_at, usage_count, file_path, file_status, created_at
		FROM data_sessions
		WHERE id = $1
	`, id)
	if err != nil {
		return DataSession{}, err
	}
	return row, nil
}

// GetLatest returns the most recent session for a consent matching the
// external session id. Multiple sessions can exist per consent; the newest
// internal id wins.
func (s *SessionStore) GetLatest(ctx context.Context, consentRequestID int64, sessionID string) (DataSession, error) {
	var row DataSession
	err := s.db.GetContext(ctx, &row, `
		SELECT id, session_id, consent_request_id, status, data_range_from, data_range_to,
		       last_fetched_at, usage_count, file_path, file_status, created_at
		FROM data_sessions
		WHERE consent_request_id = $1 AND session_id = $2
		ORDER BY id DESC
		LIMIT 1
	`, consentRequestID, sessionID)
	if err != nil {
		return DataSession{}, err
	}
	return row, nil
}

func (s *SessionStore) UpdateStatus(ctx context.Context, tx Execer, id int64, status models.SessionStatus) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE data_sessions
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	return err
}

// AttachFile records the stored payload path and opens the claim check: the
// file is PENDING until exactly one ingestion run claims it.
func (s *SessionStore) AttachFile(ctx context.Context, tx Execer, id int64, path string, fetchedAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE data_sessions
		SET file_path = $1,
		    file_status = $2,
		    last_fetched_at = $3,
		    usage_count = usage_count + 1,
		    updated_at = NOW()
		WHERE id = $4
	`, path, models.FilePending, fetchedAt, id)
	return err
}

// ClaimFile atomically moves the claim check PENDING -> CLAIMED. Rows affected
// is zero when another run already holds or consumed the file.
func (s *SessionStore) ClaimFile(ctx context.Context, tx Execer, id int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE data_sessions
		SET file_status = $1, updated_at = NOW()
		WHERE id = $2 AND file_status = $3
	`, models.FileClaimed, id, models.FilePending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SessionStore) MarkFileConsumed(ctx context.Context, tx Execer, id int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE data_sessions
		SET file_status = $1, file_path = NULL, updated_at = NOW()
		WHERE id = $2
	`, models.FileConsumed, id)
	return err
}

// ReleaseFile rolls the claim check back to PENDING so an operator can retry
// a failed ingestion run without re-fetching the payload.
func (s *SessionStore) ReleaseFile(ctx context.Context, tx Execer, id int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE data_sessions
		SET file_status = $1, updated_at = NOW()
		WHERE id = $2 AND file_status = $3
	`, models.FilePending, id, models.FileClaimed)
	return err
}
