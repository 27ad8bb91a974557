package store

import (
	"context"

	"finagg/internal/models"

	"github.com/lib/pq"
)

type FIPStore struct {
	db DB
}

type FinancialInstitution struct {
	ID              int64            `db:"id"`
	Name            string           `db:"name"`
	FIPID           string           `db:"fip_id"`
	InstitutionType string           `db:"institution_type"`
	Status          models.FIPStatus `db:"status"`
}

func NewFIPStore(db DB) *FIPStore {
	return &FIPStore{db: db}
}

func (s *FIPStore) GetByFIPID(ctx context.Context, fipID string) (FinancialInstitution, error) {
	var row FinancialInstitution
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, fip_id, institution_type, status
		FROM financial_institutions
		WHERE fip_id = $1
	`, fipID)
	if err != nil {
		return FinancialInstitution{}, err
	}
	return row, nil
}

func (s *FIPStore) Upsert(ctx context.Context, tx Execer, name, fipID, institutionType string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO financial_institutions (name, fip_id, institution_type, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (fip_id) DO UPDATE
		SET name = EXCLUDED.name,
		    institution_type = EXCLUDED.institution_type,
		    status = EXCLUDED.status,
		    updated_at = NOW()
	`, name, fipID, institutionType, models.FIPActive)
	return err
}

// MarkMissingInactive flags every FIP absent from the aggregator's current
// master list as INACTIVE.
func (s *FIPStore) MarkMissingInactive(ctx context.Context, tx Execer, activeFIPIDs []string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE financial_institutions
		SET status = $1, updated_at = NOW()
		WHERE NOT (fip_id = ANY($2))
	`, models.FIPInactive, pq.Array(activeFIPIDs))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
