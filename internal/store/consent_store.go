package store

import (
	"context"
	"time"

	"finagg/internal/models"

	"github.com/lib/pq"
)

type ConsentStore struct {
	db DB
}

type ConsentRequest struct {
	ID             int64                `db:"id"`
	ConsentID      string               `db:"consent_id"`
	UserID         int64                `db:"user_id"`
	PanID          *int64               `db:"pan_id"`
	Status         models.ConsentStatus `db:"status"`
	FetchType      models.FetchType     `db:"fetch_type"`
	PurposeCode    string               `db:"purpose_code"`
	PurposeText    string               `db:"purpose_text"`
	DataRangeFrom  time.Time            `db:"data_range_from"`
	DataRangeTo    time.Time            `db:"data_range_to"`
	ConsentStart   *time.Time           `db:"consent_start"`
	ConsentExpiry  *time.Time           `db:"consent_expiry"`
	DataLifeUnit   string               `db:"data_life_unit"`
	DataLifeValue  int                  `db:"data_life_value"`
	FrequencyUnit  *string              `db:"frequency_unit"`
	FrequencyValue *int                 `db:"frequency_value"`
	RedirectURL    *string              `db:"redirect_url"`
	TraceID        *string              `db:"trace_id"`
	CreatedAt      time.Time            `db:"created_at"`
}

type ConsentRequestInput struct {
	ConsentID      string
	UserID         int64
	PanID          *int64
	Status         models.ConsentStatus
	FetchType      models.FetchType
	PurposeCode    string
	PurposeText    string
	DataRangeFrom  time.Time
	DataRangeTo    time.Time
	ConsentStart   *time.Time
	ConsentExpiry  *time.Time
	DataLifeUnit   string
	DataLifeValue  int
	FrequencyUnit  *string
	FrequencyValue *int
	RedirectURL    *string
	TraceID        *string
}

type ConsentFIType struct {
	ID               int64               `db:"id"`
	ConsentRequestID int64               `db:"consent_request_id"`
	FIType           models.FIType       `db:"fi_type"`
	Status           models.FITypeStatus `db:"status"`
}

func NewConsentStore(db DB) *ConsentStore {
	return &ConsentStore{db: db}
}

func (s *ConsentStore) Create(ctx context.Context, tx Tx, input ConsentRequestInput) (int64, error) {
	var id int64
	err := tx.GetContext(ctx, &id, `
		INSERT INTO consent_requests (
			consent_id, user_id, pan_id, status, fetch_type,
			purpose_code, purpose_text, data_range_from, data_range_to,
			consent_start, consent_expiry, data_life_unit, data_life_value,
			frequency_unit, frequency_value, redirect_url, trace_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`, input.ConsentID, input.UserID, input.PanID, input.Status, input.FetchType,
		input.PurposeCode, input.PurposeText, input.DataRangeFrom, input.DataRangeTo,
		input.ConsentStart, input.ConsentExpiry, input.DataLifeUnit, input.DataLifeValue,
		input.FrequencyUnit, input.FrequencyValue, input.RedirectURL, input.TraceID)
	return id, err
}

func (s *ConsentStore) GetByConsentID(ctx context.Context, consentID string) (ConsentRequest, error) {
	var row ConsentRequest
	err := s.db.GetContext(ctx, &row, `
		SELECT id, consent_id, user_id, pan_id, status, fetch_type,
		       purpose_code, purpose_text, data_range_from, data_range_to,
		       consent_start, consent_expiry, data_life_unit, data_life_value,
		       frequency_unit, frequency_value, redirect_url, trace_id, created_at
		FROM consent_requests
		WHERE consent_id = $1
	`, consentID)
	if err != nil {
		return ConsentRequest{}, err
	}
	return row, nil
}

func (s *ConsentStore) GetByID(ctx context.Context, id int64) (ConsentRequest, error) {
	var row ConsentRequest
	err := s.db.GetContext(ctx, &row, `
		SELECT id, consent_id, user_id, pan_id, status, fetch_type,
		       purpose_code, purpose_text, data_range_from, data_range_to,
		       consent_start, consent_expiry, data_life_unit, data_life_value,
		       frequency_unit, frequency_value, redirect_url, trace_id, created_at
		FROM consent_requests
		WHERE id = $1
	`, id)
	if err != nil {
		return ConsentRequest{}, err
	}
	return row, nil
}

func (s *ConsentStore) LatestByUser(ctx context.Context, userID int64) (ConsentRequest, error) {
	var row ConsentRequest
	err := s.db.GetContext(ctx, &row, `
		SELECT id, consent_id, user_id, pan_id, status, fetch_type,
		       purpose_code, purpose_text, data_range_from, data_range_to,
		       consent_start, consent_expiry, data_life_unit, data_life_value,
		       frequency_unit, frequency_value, redirect_url, trace_id, created_at
		FROM consent_requests
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT 1
	`, userID)
	if err != nil {
		return ConsentRequest{}, err
	}
	return row, nil
}

func (s *ConsentStore) ListPendingIDsByUser(ctx context.Context, tx Selecter, userID int64) ([]int64, error) {
	var ids []int64
	err := tx.SelectContext(ctx, &ids, `
		SELECT id
		FROM consent_requests
		WHERE user_id = $1 AND status = $2
		ORDER BY id
	`, userID, models.ConsentPending)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// TransitionStatus flips the consent status only when the stored status still
// matches from. Rows affected is zero when a concurrent delivery already moved
// the consent on.
func (s *ConsentStore) TransitionStatus(ctx context.Context, tx Execer, id int64, from, to models.ConsentStatus) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE consent_requests
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *ConsentStore) InsertFITypes(ctx context.Context, tx Execer, consentRequestID int64, types []models.FIType) error {
	query := `
		INSERT INTO consent_fi_types (consent_request_id, fi_type, status)
		VALUES ($1, $2, $3)
	`
	for _, fiType := range types {
		if _, err := tx.ExecContext(ctx, query, consentRequestID, fiType, models.FITypeStatusActive); err != nil {
			return err
		}
	}
	return nil
}

func (s *ConsentStore) ExpireFITypes(ctx context.Context, tx Execer, consentRequestID int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE consent_fi_types
		SET status = $1
		WHERE consent_request_id = $2
	`, models.FITypeStatusExpire, consentRequestID)
	return err
}

func (s *ConsentStore) ListFITypes(ctx context.Context, consentRequestID int64) ([]ConsentFIType, error) {
	var rows []ConsentFIType
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, consent_request_id, fi_type, status
		FROM consent_fi_types
		WHERE consent_request_id = $1
		ORDER BY id
	`, consentRequestID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ConsentStore) InsertCancellationLog(ctx context.Context, tx Execer, consentRequestID int64, reason string, cancelledBy models.CancelledBy) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO consent_cancellation_logs (consent_request_id, reason, cancelled_by)
		VALUES ($1, $2, $3)
	`, consentRequestID, reason, cancelledBy)
	return err
}

func (s *ConsentStore) ListCancellationReasons(ctx context.Context, consentRequestIDs []int64) ([]string, error) {
	var reasons []string
	err := s.db.SelectContext(ctx, &reasons, `
		SELECT reason
		FROM consent_cancellation_logs
		WHERE consent_request_id = ANY($1)
		ORDER BY id
	`, pq.Array(consentRequestIDs))
	if err != nil {
		return nil, err
	}
	return reasons, nil
}
