package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"finagg/internal/models"
	"finagg/internal/setu"
	"finagg/internal/store"
)

type stubSessionStore struct {
	createFn       func(ctx context.Context, tx store.Tx, input store.DataSessionInput) (int64, error)
	getLatestFn    func(ctx context.Context, consentRequestID int64, sessionID string) (store.DataSession, error)
	updateStatusFn func(ctx context.Context, tx store.Execer, id int64, status models.SessionStatus) error
	attachFileFn   func(ctx context.Context, tx store.Execer, id int64, path string, fetchedAt time.Time) error
}

func (s stubSessionStore) Create(ctx context.Context, tx store.Tx, input store.DataSessionInput) (int64, error) {
	if s.createFn == nil {
		return 1, nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubSessionStore) GetLatest(ctx context.Context, consentRequestID int64, sessionID string) (store.DataSession, error) {
	return s.getLatestFn(ctx, consentRequestID, sessionID)
}

func (s stubSessionStore) UpdateStatus(ctx context.Context, tx store.Execer, id int64, status models.SessionStatus) error {
	if s.updateStatusFn == nil {
		return nil
	}
	return s.updateStatusFn(ctx, tx, id, status)
}

func (s stubSessionStore) AttachFile(ctx context.Context, tx store.Execer, id int64, path string, fetchedAt time.Time) error {
	if s.attachFileFn == nil {
		return nil
	}
	return s.attachFileFn(ctx, tx, id, path, fetchedAt)
}

type stubSessionAPI struct {
	createResp setu.SessionResponse
	createErr  error
	payload    []byte
	fetchErr   error
}

func (s stubSessionAPI) CreateDataSession(context.Context, string, time.Time, time.Time) (setu.SessionResponse, error) {
	return s.createResp, s.createErr
}

func (s stubSessionAPI) FetchSessionData(context.Context, string) ([]byte, error) {
	return s.payload, s.fetchErr
}

type stubQueue struct {
	enqueued []int64
}

func (s *stubQueue) Enqueue(sessionRowID int64) {
	s.enqueued = append(s.enqueued, sessionRowID)
}

func sessionEvent(consentID, sessionID, status string) setu.WebhookEvent {
	return setu.WebhookEvent{
		Type:          "SESSION_STATUS_UPDATE",
		ConsentID:     consentID,
		DataSessionID: sessionID,
		Data:          setu.EventData{Status: status},
	}
}

func TestCreateDataSessionPersists(t *testing.T) {
	var created store.DataSessionInput
	service := NewSessionService(fakeTxRunner{}, stubSessionStore{
		createFn: func(_ context.Context, _ store.Tx, input store.DataSessionInput) (int64, error) {
			created = input
			return 1, nil
		},
	}, stubConsentStore{}, stubSessionAPI{
		createResp: setu.SessionResponse{ID: "s-1", Status: "PENDING"},
	}, &stubQueue{}, t.TempDir())

	err := service.CreateDataSession(context.Background(), store.ConsentRequest{
		ID: 7, ConsentID: "c-1",
		DataRangeFrom: time.Now().AddDate(-1, 0, 0),
		DataRangeTo:   time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.SessionID != "s-1" || created.ConsentRequestID != 7 {
		t.Fatalf("unexpected session input: %#v", created)
	}
	if created.Status != models.SessionPending {
		t.Fatalf("expected PENDING, got %s", created.Status)
	}
}

func TestCreateDataSessionUnknownStatusDefaultsPending(t *testing.T) {
	var created store.DataSessionInput
	service := NewSessionService(fakeTxRunner{}, stubSessionStore{
		createFn: func(_ context.Context, _ store.Tx, input store.DataSessionInput) (int64, error) {
			created = input
			return 1, nil
		},
	}, stubConsentStore{}, stubSessionAPI{
		createResp: setu.SessionResponse{ID: "s-1", Status: "INITIATED"},
	}, &stubQueue{}, t.TempDir())

	if err := service.CreateDataSession(context.Background(), store.ConsentRequest{ID: 7}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Status != models.SessionPending {
		t.Fatalf("unknown status must default to PENDING, got %s", created.Status)
	}
}

func TestCreateDataSessionUpstreamFailureIsHard(t *testing.T) {
	service := NewSessionService(fakeTxRunner{}, stubSessionStore{}, stubConsentStore{}, stubSessionAPI{
		createErr: errors.New("503"),
	}, &stubQueue{}, t.TempDir())
	if err := service.CreateDataSession(context.Background(), store.ConsentRequest{ID: 7}); err == nil {
		t.Fatal("expected upstream failure to propagate")
	}
}

func TestSessionCompletedParksPayloadAndEnqueues(t *testing.T) {
	dir := t.TempDir()
	payload := []byte(`{"fips":[{"fipID":"FIP-1","accounts":[]}]}`)
	queue := &stubQueue{}
	var attachedPath string
	service := NewSessionService(fakeTxRunner{}, stubSessionStore{
		getLatestFn: func(context.Context, int64, string) (store.DataSession, error) {
			return store.DataSession{ID: 12, SessionID: "s-1", ConsentRequestID: 7}, nil
		},
		attachFileFn: func(_ context.Context, _ store.Execer, _ int64, path string, _ time.Time) error {
			attachedPath = path
			return nil
		},
	}, stubConsentStore{
		getByConsentIDFn: func(context.Context, string) (store.ConsentRequest, error) {
			return store.ConsentRequest{ID: 7, ConsentID: "c-1", UserID: 42}, nil
		},
	}, stubSessionAPI{payload: payload}, queue, dir)

	if err := service.HandleSessionStatusEvent(context.Background(), sessionEvent("c-1", "s-1", "COMPLETED")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantPath := filepath.Join(dir, "session_s-1_c-1_42.json")
	if attachedPath != wantPath {
		t.Fatalf("expected path %s, got %s", wantPath, attachedPath)
	}
	stored, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("payload file not written: %v", err)
	}
	if string(stored) != string(payload) {
		t.Fatal("payload must be stored verbatim")
	}
	if len(queue.enqueued) != 1 || queue.enqueued[0] != 12 {
		t.Fatalf("expected session row 12 enqueued, got %#v", queue.enqueued)
	}
}

func TestSessionFetchFailureDoesNotBounceWebhook(t *testing.T) {
	queue := &stubQueue{}
	service := NewSessionService(fakeTxRunner{}, stubSessionStore{
		getLatestFn: func(context.Context, int64, string) (store.DataSession, error) {
			return store.DataSession{ID: 12, SessionID: "s-1"}, nil
		},
	}, stubConsentStore{
		getByConsentIDFn: func(context.Context, string) (store.ConsentRequest, error) {
			return store.ConsentRequest{ID: 7, ConsentID: "c-1", UserID: 42}, nil
		},
	}, stubSessionAPI{fetchErr: errors.New("504")}, queue, t.TempDir())

	if err := service.HandleSessionStatusEvent(context.Background(), sessionEvent("c-1", "s-1", "COMPLETED")); err != nil {
		t.Fatalf("fetch failure must be absorbed, got %v", err)
	}
	if len(queue.enqueued) != 0 {
		t.Fatal("failed fetch must not enqueue ingestion")
	}
}

func TestSessionNonCompletedOnlyUpdatesStatus(t *testing.T) {
	queue := &stubQueue{}
	var updated models.SessionStatus
	service := NewSessionService(fakeTxRunner{}, stubSessionStore{
		getLatestFn: func(context.Context, int64, string) (store.DataSession, error) {
			return store.DataSession{ID: 12, SessionID: "s-1"}, nil
		},
		updateStatusFn: func(_ context.Context, _ store.Execer, _ int64, status models.SessionStatus) error {
			updated = status
			return nil
		},
	}, stubConsentStore{
		getByConsentIDFn: func(context.Context, string) (store.ConsentRequest, error) {
			return store.ConsentRequest{ID: 7}, nil
		},
	}, stubSessionAPI{
		fetchErr: errors.New("must not fetch"),
	}, queue, t.TempDir())

	if err := service.HandleSessionStatusEvent(context.Background(), sessionEvent("c-1", "s-1", "FAILED")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated != models.SessionFailed {
		t.Fatalf("expected FAILED recorded, got %s", updated)
	}
	if len(queue.enqueued) != 0 {
		t.Fatal("non-completed session must not enqueue ingestion")
	}
}

func TestSessionUnknownConsentAbsorbed(t *testing.T) {
	service := NewSessionService(fakeTxRunner{}, stubSessionStore{
		getLatestFn: func(context.Context, int64, string) (store.DataSession, error) {
			t.Fatal("unexpected session lookup")
			return store.DataSession{}, nil
		},
	}, stubConsentStore{}, stubSessionAPI{}, &stubQueue{}, t.TempDir())
	if err := service.HandleSessionStatusEvent(context.Background(), sessionEvent("missing", "s-1", "COMPLETED")); err != nil {
		t.Fatalf("unknown consent must be absorbed, got %v", err)
	}
}
