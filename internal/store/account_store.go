package store

import (
	"context"
	"time"

	"finagg/internal/models"

	"github.com/shopspring/decimal"
)

type AccountStore struct {
	db DB
}

type FinancialAccountInput struct {
	ConsentRequestID    int64
	FIPID               string
	LinkRefNumber       string
	MaskedAccountNumber string
	AccountType         models.FIType
}

type AccountHolderInput struct {
	AccountID      int64
	HolderType     string
	Name           string
	Address        *string
	CKYCCompliance *bool
	DateOfBirth    *time.Time
	Email          *string
	Mobile         *string
	NomineeStatus  *string
	PAN            *string
}

type AccountSummaryInput struct {
	AccountID   int64
	Branch      *string
	IFSCCode    *string
	OpeningDate *time.Time
}

type BankingDetailsInput struct {
	SummaryID              int64
	CurrentBalance         decimal.Decimal
	AvailableBalance       decimal.NullDecimal
	CurrentODLimit         decimal.NullDecimal
	DrawingLimit           decimal.NullDecimal
	Facility               *string
	Status                 string
	AccountSubType         string
	Currency               string
	BalanceDateTime        *time.Time
	MICRCode               *string
	PendingAmount          decimal.NullDecimal
	PendingTransactionType *string
}

type TermDepositDetailsInput struct {
	SummaryID                    int64
	AccountType                  string
	CurrentValue                 decimal.Decimal
	Description                  *string
	CompoundingFrequency         *string
	InterestComputation          *string
	InterestOnMaturity           *string
	InterestPayout               *string
	InterestPeriodicPayoutAmount decimal.NullDecimal
	InterestRate                 decimal.Decimal
	MaturityAmount               decimal.NullDecimal
	MaturityDate                 *time.Time
	PrincipalAmount              decimal.Decimal
	RecurringAmount              decimal.NullDecimal
	RecurringDepositDay          *int
	TenureDays                   *int
	TenureMonths                 *int
	TenureYears                  *int
}

// DepositAccountView is the joined shape served by the accounts API: one row
// per financial account with its summary and, for plain deposits, the current
// balance.
type DepositAccountView struct {
	ID                  int64               `db:"id"`
	FIPID               string              `db:"fip_id"`
	FIPName             *string             `db:"fip_name"`
	MaskedAccountNumber string              `db:"masked_account_number"`
	AccountType         models.FIType       `db:"account_type"`
	Branch              *string             `db:"branch"`
	IFSCCode            *string             `db:"ifsc_code"`
	OpeningDate         *time.Time          `db:"opening_date"`
	CurrentBalance      decimal.NullDecimal `db:"current_balance"`
	Currency            *string             `db:"currency"`
	CreatedAt           time.Time           `db:"created_at"`
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) InsertAccount(ctx context.Context, tx Tx, input FinancialAccountInput) (int64, error) {
	var id int64
	err := tx.GetContext(ctx, &id, `
		INSERT INTO financial_accounts (consent_request_id, fip_id, link_ref_number, masked_account_number, account_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, input.ConsentRequestID, input.FIPID, input.LinkRefNumber, input.MaskedAccountNumber, input.AccountType)
	return id, err
}

func (s *AccountStore) InsertHolder(ctx context.Context, tx Execer, input AccountHolderInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO account_holders (
			account_id, holder_type, name, address, ckyc_compliance,
			date_of_birth, email, mobile, nominee_status, pan
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, input.AccountID, input.HolderType, input.Name, input.Address, input.CKYCCompliance,
		input.DateOfBirth, input.Email, input.Mobile, input.NomineeStatus, input.PAN)
	return err
}

func (s *AccountStore) InsertSummary(ctx context.Context, tx Tx, input AccountSummaryInput) (int64, error) {
	var id int64
	err := tx.GetContext(ctx, &id, `
		INSERT INTO account_summaries (account_id, branch, ifsc_code, opening_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, input.AccountID, input.Branch, input.IFSCCode, input.OpeningDate)
	return id, err
}

func (s *AccountStore) InsertBankingDetails(ctx context.Context, tx Execer, input BankingDetailsInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO banking_account_details (
			summary_id, current_balance, available_balance, current_od_limit, drawing_limit,
			facility, status, account_sub_type, currency, balance_date_time,
			micr_code, pending_amount, pending_transaction_type
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, input.SummaryID, input.CurrentBalance, input.AvailableBalance, input.CurrentODLimit, input.DrawingLimit,
		input.Facility, input.Status, input.AccountSubType, input.Currency, input.BalanceDateTime,
		input.MICRCode, input.PendingAmount, input.PendingTransactionType)
	return err
}

func (s *AccountStore) InsertTermDepositDetails(ctx context.Context, tx Execer, input TermDepositDetailsInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO term_deposit_details (
			summary_id, account_type, current_value, description,
			compounding_frequency, interest_computation, interest_on_maturity, interest_payout,
			interest_periodic_payout_amount, interest_rate, maturity_amount, maturity_date,
			principal_amount, recurring_amount, recurring_deposit_day,
			tenure_days, tenure_months, tenure_years
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, input.SummaryID, input.AccountType, input.CurrentValue, input.Description,
		input.CompoundingFrequency, input.InterestComputation, input.InterestOnMaturity, input.InterestPayout,
		input.InterestPeriodicPayoutAmount, input.InterestRate, input.MaturityAmount, input.MaturityDate,
		input.PrincipalAmount, input.RecurringAmount, input.RecurringDepositDay,
		input.TenureDays, input.TenureMonths, input.TenureYears)
	return err
}

func (s *AccountStore) ListByUserAndType(ctx context.Context, userID int64, accountType models.FIType) ([]DepositAccountView, error) {
	var rows []DepositAccountView
	err := s.db.SelectContext(ctx, &rows, `
		SELECT fa.id,
		       fa.fip_id,
		       fi.name AS fip_name,
		       fa.masked_account_number,
		       fa.account_type,
		       asu.branch,
		       asu.ifsc_code,
		       asu.opening_date,
		       bad.current_balance,
		       bad.currency,
		       fa.created_at
		FROM financial_accounts fa
		JOIN consent_requests cr ON cr.id = fa.consent_request_id
		LEFT JOIN financial_institutions fi ON fi.fip_id = fa.fip_id
		LEFT JOIN account_summaries asu ON asu.account_id = fa.id
		LEFT JOIN banking_account_details bad ON bad.summary_id = asu.id
		WHERE cr.user_id = $1 AND fa.account_type = $2
		ORDER BY fa.created_at DESC
	`, userID, accountType)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// OwnedByUser reports whether the account was ingested under one of the
// user's consents. Transaction listing is gated on it.
func (s *AccountStore) OwnedByUser(ctx context.Context, accountID, userID int64) (bool, error) {
	var owned bool
	err := s.db.GetContext(ctx, &owned, `
		SELECT EXISTS(
			SELECT 1
			FROM financial_accounts fa
			JOIN consent_requests cr ON cr.id = fa.consent_request_id
			WHERE fa.id = $1 AND cr.user_id = $2
		)
	`, accountID, userID)
	return owned, err
}
