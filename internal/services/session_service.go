package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"finagg/internal/db"
	"finagg/internal/models"
	"finagg/internal/setu"
	"finagg/internal/store"

	"github.com/jmoiron/sqlx"
)

type SessionStoreAPI interface {
	Create(ctx context.Context, tx store.Tx, input store.DataSessionInput) (int64, error)
	GetLatest(ctx context.Context, consentRequestID int64, sessionID string) (store.DataSession, error)
	UpdateStatus(ctx context.Context, tx store.Execer, id int64, status models.SessionStatus) error
	AttachFile(ctx context.Context, tx store.Execer, id int64, path string, fetchedAt time.Time) error
}

type ConsentLookup interface {
	GetByConsentID(ctx context.Context, consentID string) (store.ConsentRequest, error)
}

type SessionAPI interface {
	CreateDataSession(ctx context.Context, consentID string, from, to time.Time) (setu.SessionResponse, error)
	FetchSessionData(ctx context.Context, sessionID string) ([]byte, error)
}

// Enqueuer hands a completed session off to the ingestion worker.
type Enqueuer interface {
	Enqueue(sessionRowID int64)
}

type SessionService struct {
	txRunner   db.TxRunner
	sessions   SessionStoreAPI
	consents   ConsentLookup
	aggregator SessionAPI
	queue      Enqueuer
	storageDir string
}

func NewSessionService(txRunner db.TxRunner, sessions SessionStoreAPI, consents ConsentLookup, aggregator SessionAPI, queue Enqueuer, storageDir string) *SessionService {
	return &SessionService{
		txRunner:   txRunner,
		sessions:   sessions,
		consents:   consents,
		aggregator: aggregator,
		queue:      queue,
		storageDir: storageDir,
	}
}

// CreateDataSession opens a data-fetch session against the aggregator for a
// newly activated consent. Unlike lifecycle event handling, a failure here is
// a hard error: without a session the consent activation bought nothing.
func (s *SessionService) CreateDataSession(ctx context.Context, consent store.ConsentRequest) error {
	resp, err := s.aggregator.CreateDataSession(ctx, consent.ConsentID, consent.DataRangeFrom, consent.DataRangeTo)
	if err != nil {
		return fmt.Errorf("open data session for consent %s: %w", consent.ConsentID, err)
	}
	status, ok := models.ParseSessionStatus(resp.Status)
	if !ok {
		log.Printf("session %s: unknown initial status %q, recording as PENDING", resp.ID, resp.Status)
		status = models.SessionPending
	}
	from := consent.DataRangeFrom
	to := consent.DataRangeTo
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, txErr := s.sessions.Create(ctx, tx, store.DataSessionInput{
			SessionID:        resp.ID,
			ConsentRequestID: consent.ID,
			Status:           status,
			DataRangeFrom:    &from,
			DataRangeTo:      &to,
		})
		return txErr
	})
	if err != nil {
		return fmt.Errorf("persist data session %s: %w", resp.ID, err)
	}
	log.Printf("consent %s: opened data session %s (%s)", consent.ConsentID, resp.ID, status)
	return nil
}

// HandleSessionStatusEvent applies a session status notification. On
// COMPLETED the payload is fetched, parked on disk verbatim and handed to the
// ingestion worker; fetch or storage failures are logged but never bounce the
// webhook, the aggregator would only redeliver an event we already recorded.
func (s *SessionService) HandleSessionStatusEvent(ctx context.Context, event setu.WebhookEvent) error {
	status, ok := models.ParseSessionStatus(event.Data.Status)
	if !ok {
		log.Printf("session %s: ignoring unknown status %q", event.DataSessionID, event.Data.Status)
		return nil
	}
	consent, err := s.consents.GetByConsentID(ctx, event.ConsentID)
	if errors.Is(err, sql.ErrNoRows) {
		log.Printf("session %s: event for unknown consent %s", event.DataSessionID, event.ConsentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load consent %s: %w", event.ConsentID, err)
	}
	session, err := s.sessions.GetLatest(ctx, consent.ID, event.DataSessionID)
	if errors.Is(err, sql.ErrNoRows) {
		log.Printf("session %s: no recorded session for consent %s", event.DataSessionID, event.ConsentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session %s: %w", event.DataSessionID, err)
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.sessions.UpdateStatus(ctx, tx, session.ID, status)
	})
	if err != nil {
		return fmt.Errorf("update session %s status: %w", event.DataSessionID, err)
	}
	if status != models.SessionCompleted {
		if event.Error != nil {
			log.Printf("session %s: %s (%s: %s)", event.DataSessionID, status, event.Error.Code, event.Error.Message)
		}
		return nil
	}
	if err := s.fetchAndPark(ctx, consent, session); err != nil {
		log.Printf("session %s: fetch and store failed: %v", event.DataSessionID, err)
		return nil
	}
	s.queue.Enqueue(session.ID)
	return nil
}

// fetchAndPark downloads the session payload, writes it to the session
// storage directory untouched and opens the claim check on the session row.
func (s *SessionService) fetchAndPark(ctx context.Context, consent store.ConsentRequest, session store.DataSession) error {
	payload, err := s.aggregator.FetchSessionData(ctx, session.SessionID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.storageDir, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	name := fmt.Sprintf("session_%s_%s_%d.json", session.SessionID, consent.ConsentID, consent.UserID)
	path := filepath.Join(s.storageDir, name)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write payload file: %w", err)
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.sessions.AttachFile(ctx, tx, session.ID, path, time.Now().UTC())
	})
	if err != nil {
		return fmt.Errorf("record payload file: %w", err)
	}
	return nil
}
