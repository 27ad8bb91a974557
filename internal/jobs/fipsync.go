package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"finagg/internal/db"
	"finagg/internal/setu"
	"finagg/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"
)

type FIPDirectory interface {
	ListFIPs(ctx context.Context) ([]setu.FIP, error)
}

type FIPStoreAPI interface {
	Upsert(ctx context.Context, tx store.Execer, name, fipID, institutionType string) error
	MarkMissingInactive(ctx context.Context, tx store.Execer, activeFIPIDs []string) (int64, error)
}

// FIPSync keeps the local financial-institutions table aligned with the
// aggregator's FIP master list on a cron schedule.
type FIPSync struct {
	txRunner  db.TxRunner
	directory FIPDirectory
	fips      FIPStoreAPI
	schedule  string
	cron      *cron.Cron
}

func NewFIPSync(txRunner db.TxRunner, directory FIPDirectory, fips FIPStoreAPI, schedule string) *FIPSync {
	return &FIPSync{
		txRunner:  txRunner,
		directory: directory,
		fips:      fips,
		schedule:  schedule,
		cron:      cron.New(),
	}
}

func (s *FIPSync) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := s.SyncOnce(ctx); err != nil {
			log.Printf("jobs: fip sync: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule fip sync %q: %w", s.schedule, err)
	}
	s.cron.Start()
	return nil
}

func (s *FIPSync) Stop() {
	<-s.cron.Stop().Done()
}

// SyncOnce pulls the master list and reconciles it in one transaction: known
// FIPs are upserted ACTIVE, anything no longer listed goes INACTIVE. An empty
// upstream list is treated as an outage, not a mass delisting.
func (s *FIPSync) SyncOnce(ctx context.Context) error {
	fips, err := s.directory.ListFIPs(ctx)
	if err != nil {
		return fmt.Errorf("list fips: %w", err)
	}
	if len(fips) == 0 {
		log.Print("jobs: fip sync: upstream returned no fips, skipping reconcile")
		return nil
	}
	activeIDs := make([]string, 0, len(fips))
	var deactivated int64
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		activeIDs = activeIDs[:0]
		for _, fip := range fips {
			if fip.FIPID == "" {
				continue
			}
			if txErr := s.fips.Upsert(ctx, tx, fip.Name, fip.FIPID, fip.InstitutionType); txErr != nil {
				return txErr
			}
			activeIDs = append(activeIDs, fip.FIPID)
		}
		var txErr error
		deactivated, txErr = s.fips.MarkMissingInactive(ctx, tx, activeIDs)
		return txErr
	})
	if err != nil {
		return fmt.Errorf("reconcile fips: %w", err)
	}
	log.Printf("jobs: fip sync: %d active, %d deactivated", len(activeIDs), deactivated)
	return nil
}
