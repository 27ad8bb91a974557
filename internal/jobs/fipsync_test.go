package jobs

import (
	"context"
	"errors"
	"testing"

	"finagg/internal/setu"
	"finagg/internal/store"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(_ context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

type stubDirectory struct {
	fips []setu.FIP
	err  error
}

func (d *stubDirectory) ListFIPs(context.Context) ([]setu.FIP, error) {
	return d.fips, d.err
}

type stubFIPStore struct {
	upserted    []string
	inactiveIDs []string
	upsertErr   error
}

func (s *stubFIPStore) Upsert(_ context.Context, _ store.Execer, _, fipID, _ string) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = append(s.upserted, fipID)
	return nil
}

func (s *stubFIPStore) MarkMissingInactive(_ context.Context, _ store.Execer, activeFIPIDs []string) (int64, error) {
	s.inactiveIDs = activeFIPIDs
	return 1, nil
}

func TestSyncOnceReconciles(t *testing.T) {
	directory := &stubDirectory{fips: []setu.FIP{
		{FIPID: "fip-1", Name: "One Bank", InstitutionType: "BANK"},
		{FIPID: "", Name: "no id"},
		{FIPID: "fip-2", Name: "Two Bank", InstitutionType: "BANK"},
	}}
	fips := &stubFIPStore{}
	sync := NewFIPSync(fakeTxRunner{}, directory, fips, "@hourly")

	if err := sync.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if len(fips.upserted) != 2 {
		t.Fatalf("upserted %v", fips.upserted)
	}
	if len(fips.inactiveIDs) != 2 || fips.inactiveIDs[0] != "fip-1" || fips.inactiveIDs[1] != "fip-2" {
		t.Fatalf("reconciled against %v", fips.inactiveIDs)
	}
}

func TestSyncOnceEmptyListSkipsReconcile(t *testing.T) {
	fips := &stubFIPStore{}
	sync := NewFIPSync(fakeTxRunner{}, &stubDirectory{}, fips, "@hourly")

	if err := sync.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if fips.inactiveIDs != nil {
		t.Fatal("an empty upstream list must not deactivate anything")
	}
}

func TestSyncOnceDirectoryError(t *testing.T) {
	directory := &stubDirectory{err: errors.New("upstream 503")}
	sync := NewFIPSync(fakeTxRunner{}, directory, &stubFIPStore{}, "@hourly")

	if err := sync.SyncOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestSyncOnceUpsertErrorAborts(t *testing.T) {
	directory := &stubDirectory{fips: []setu.FIP{{FIPID: "fip-1", Name: "One Bank"}}}
	fips := &stubFIPStore{upsertErr: errors.New("constraint")}
	sync := NewFIPSync(fakeTxRunner{}, directory, fips, "@hourly")

	if err := sync.SyncOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if fips.inactiveIDs != nil {
		t.Fatal("reconcile must not run after an upsert failure")
	}
}
