package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTransactionStoreBulkInsertSingleStatement(t *testing.T) {
	ctx := context.Background()
	calls := 0
	var captured string
	var argCount int
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			calls++
			captured = query
			argCount = len(args)
			return stubResult{rows: int64(len(args) / 8)}, nil
		},
	}
	store := NewTransactionStore(stubDB{})
	entries := []BankTransactionInput{
		{AccountID: 1, Amount: decimal.NewFromInt(100), Mode: "UPI", Timestamp: time.Now(), TransactionID: "t-1", Type: "DEBIT"},
		{AccountID: 1, Amount: decimal.NewFromInt(200), Mode: "ATM", Timestamp: time.Now(), TransactionID: "t-2", Type: "CREDIT"},
		{AccountID: 1, Amount: decimal.NewFromInt(300), Mode: "UPI", Timestamp: time.Now(), TransactionID: "t-3", Type: "DEBIT"},
	}
	if err := store.BulkInsert(ctx, execer, entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single multi-row insert, got %d calls", calls)
	}
	if argCount != 24 {
		t.Fatalf("expected 24 args (3 rows x 8 columns), got %d", argCount)
	}
	if !strings.Contains(captured, "($17, $18, $19, $20, $21, $22, $23, $24)") {
		t.Fatalf("placeholders not numbered per row: %s", captured)
	}
}

func TestTransactionStoreBulkInsertEmpty(t *testing.T) {
	execer := stubExecer{
		execFn: func(context.Context, string, ...any) (sql.Result, error) {
			t.Fatal("empty batch must not hit the database")
			return stubResult{}, nil
		},
	}
	store := NewTransactionStore(stubDB{})
	if err := store.BulkInsert(context.Background(), execer, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransactionStoreListSortWhitelist(t *testing.T) {
	ctx := context.Background()
	var captured string
	store := NewTransactionStore(stubDB{
		selectFn: func(_ context.Context, _ any, query string, _ ...any) error {
			captured = query
			return nil
		},
	})
	if _, err := store.ListByAccount(ctx, 1, "narration; DROP TABLE users", "asc", 10, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(captured, "ORDER BY transaction_timestamp ASC") {
		t.Fatalf("unknown sort column must fall back to timestamp: %s", captured)
	}
	if _, err := store.ListByAccount(ctx, 1, "amount", "", 10, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(captured, "ORDER BY amount DESC") {
		t.Fatalf("expected amount DESC default order: %s", captured)
	}
}
