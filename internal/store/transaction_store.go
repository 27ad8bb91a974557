package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStore struct {
	db DB
}

type BankTransactionInput struct {
	AccountID     int64
	Amount        decimal.Decimal
	Balance       decimal.NullDecimal
	Mode          string
	Narration     *string
	Timestamp     time.Time
	TransactionID string
	Type          string
}

type BankTransaction struct {
	ID            int64               `db:"id"`
	AccountID     int64               `db:"account_id"`
	Amount        decimal.Decimal     `db:"amount"`
	Balance       decimal.NullDecimal `db:"balance"`
	Mode          string              `db:"mode"`
	Narration     *string             `db:"narration"`
	Timestamp     time.Time           `db:"transaction_timestamp"`
	TransactionID string              `db:"transaction_id"`
	Type          string              `db:"transaction_type"`
	CreatedAt     time.Time           `db:"created_at"`
}

type MonthlyStat struct {
	Month       time.Time       `db:"month"`
	CreditTotal decimal.Decimal `db:"credit_total"`
	DebitTotal  decimal.Decimal `db:"debit_total"`
	CreditCount int64           `db:"credit_count"`
	DebitCount  int64           `db:"debit_count"`
}

type ModeStat struct {
	Mode  string          `db:"mode"`
	Total decimal.Decimal `db:"total"`
	Count int64           `db:"count"`
}

var transactionSortFields = map[string]string{
	"transaction_timestamp": "transaction_timestamp",
	"amount":                "amount",
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// BulkInsert writes all entries in one multi-row INSERT. The ingestion
// pipeline batches per account, so the statement stays well under the
// positional-argument limit.
func (s *TransactionStore) BulkInsert(ctx context.Context, tx Execer, entries []BankTransactionInput) error {
	if len(entries) == 0 {
		return nil
	}
	const columns = 8
	placeholders := make([]string, 0, len(entries))
	args := make([]any, 0, len(entries)*columns)
	for i, entry := range entries {
		base := i * columns
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		args = append(args, entry.AccountID, entry.Amount, entry.Balance, entry.Mode,
			entry.Narration, entry.Timestamp, entry.TransactionID, entry.Type)
	}
	query := `
		INSERT INTO bank_transactions (account_id, amount, balance, mode, narration, transaction_timestamp, transaction_id, transaction_type)
		VALUES ` + strings.Join(placeholders, ", ")
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func (s *TransactionStore) ListByAccount(ctx context.Context, accountID int64, sortBy, sortOrder string, limit, offset int) ([]BankTransaction, error) {
	column, ok := transactionSortFields[sortBy]
	if !ok {
		column = "transaction_timestamp"
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}
	var rows []BankTransaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, account_id, amount, balance, mode, narration,
		       transaction_timestamp, transaction_id, transaction_type, created_at
		FROM bank_transactions
		WHERE account_id = $1
		ORDER BY `+column+` `+direction+`
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) MonthlyStatsByUser(ctx context.Context, userID int64) ([]MonthlyStat, error) {
	var rows []MonthlyStat
	err := s.db.SelectContext(ctx, &rows, `
		SELECT date_trunc('month', bt.transaction_timestamp) AS month,
		       COALESCE(SUM(bt.amount) FILTER (WHERE bt.transaction_type = 'CREDIT'), 0) AS credit_total,
		       COALESCE(SUM(bt.amount) FILTER (WHERE bt.transaction_type = 'DEBIT'), 0) AS debit_total,
		       COUNT(*) FILTER (WHERE bt.transaction_type = 'CREDIT') AS credit_count,
		       COUNT(*) FILTER (WHERE bt.transaction_type = 'DEBIT') AS debit_count
		FROM bank_transactions bt
		JOIN financial_accounts fa ON fa.id = bt.account_id
		JOIN consent_requests cr ON cr.id = fa.consent_request_id
		WHERE cr.user_id = $1
		GROUP BY 1
		ORDER BY 1 DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) ModeStatsByUser(ctx context.Context, userID int64) ([]ModeStat, error) {
	var rows []ModeStat
	err := s.db.SelectContext(ctx, &rows, `
		SELECT bt.mode,
		       COALESCE(SUM(bt.amount), 0) AS total,
		       COUNT(*) AS count
		FROM bank_transactions bt
		JOIN financial_accounts fa ON fa.id = bt.account_id
		JOIN consent_requests cr ON cr.id = fa.consent_request_id
		WHERE cr.user_id = $1
		GROUP BY bt.mode
		ORDER BY total DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
