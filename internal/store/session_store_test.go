package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"finagg/internal/models"
)

func TestSessionStoreClaimFileGuarded(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "AND file_status = $3") {
				t.Fatalf("claim must be guarded on PENDING: %s", query)
			}
			if args[0] != models.FileClaimed || args[2] != models.FilePending {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewSessionStore(stubDB{})
	rows, err := store.ClaimFile(ctx, execer, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row, got %d", rows)
	}
}

func TestSessionStoreMarkFileConsumedClearsPath(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "file_path = NULL") {
				t.Fatalf("consume must drop the path: %s", query)
			}
			if args[0] != models.FileConsumed {
				t.Fatalf("unexpected status: %v", args[0])
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewSessionStore(stubDB{})
	if err := store.MarkFileConsumed(ctx, execer, 12); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSessionStoreAttachFileBumpsUsage(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "usage_count = usage_count + 1") {
				t.Fatalf("attach must bump usage count: %s", query)
			}
			if args[1] != models.FilePending {
				t.Fatalf("attach must open the claim check: %v", args[1])
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewSessionStore(stubDB{})
	if err := store.AttachFile(ctx, execer, 12, "/data/session.json", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSessionStoreReleaseFileGuarded(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "AND file_status = $3") {
				t.Fatalf("release must be guarded on CLAIMED: %s", query)
			}
			if args[0] != models.FilePending || args[2] != models.FileClaimed {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewSessionStore(stubDB{})
	if err := store.ReleaseFile(ctx, execer, 12); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
