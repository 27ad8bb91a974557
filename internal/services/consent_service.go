package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"finagg/internal/db"
	"finagg/internal/models"
	"finagg/internal/setu"
	"finagg/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrConsentNotFound = errors.New("consent not found")
	ErrPanNotVerified  = errors.New("pan not verified")
)

// Error codes the aggregator uses to report that the user (or an FIP) killed
// the consent flow. Anything outside this set is a transient error, not a
// cancellation.
var cancellationCodes = map[string]struct{}{
	"UserCancelled":           {},
	"UserRejected":            {},
	"NoFIPAccountsDiscovered": {},
	"FIPDenied":               {},
}

// Fixed detail-code -> human-readable reason table. Unknown codes fall back
// to a generic message; a reason is never invented.
var cancellationReasons = map[string]string{
	"cancel_not_understand":     "User cancelled consent - did not understand",
	"cancel_will_share_later":   "User cancelled consent - I will share later",
	"cancel_not_want_to_share":  "User cancelled consent - do not want to share",
	"reject_not_understand":     "User rejected consent - did not understand why my data is being requested",
	"reject_not_want_to_share":  "User rejected consent - I do not want to share my data with FIU",
	"reject_accounts_not_found": "User rejected consent - no accounts found to share",
	"reject_other":              "User rejected consent - other reason",
	"NoFIPAccountsDiscovered":   "No FIP accounts discovered for the user",
	"FIPDenied":                 "FIP denied consent request",
}

const (
	unknownCancellationReason = "Unknown error during consent flow"
	supersededReason          = "superseded by new consent"
)

type ConsentStoreAPI interface {
	Create(ctx context.Context, tx store.Tx, input store.ConsentRequestInput) (int64, error)
	GetByConsentID(ctx context.Context, consentID string) (store.ConsentRequest, error)
	TransitionStatus(ctx context.Context, tx store.Execer, id int64, from, to models.ConsentStatus) (int64, error)
	InsertFITypes(ctx context.Context, tx store.Execer, consentRequestID int64, types []models.FIType) error
	ExpireFITypes(ctx context.Context, tx store.Execer, consentRequestID int64) error
	InsertCancellationLog(ctx context.Context, tx store.Execer, consentRequestID int64, reason string, cancelledBy models.CancelledBy) error
	ListPendingIDsByUser(ctx context.Context, tx store.Selecter, userID int64) ([]int64, error)
}

// SessionCreator is the piece of the payload fetcher the lifecycle controller
// drives on activation.
type SessionCreator interface {
	CreateDataSession(ctx context.Context, consent store.ConsentRequest) error
}

type ConsentIssuer interface {
	CreateConsent(ctx context.Context, params setu.ConsentParams) (setu.ConsentResponse, error)
}

type ConsentService struct {
	txRunner   db.TxRunner
	consents   ConsentStoreAPI
	fetcher    SessionCreator
	aggregator ConsentIssuer
}

func NewConsentService(txRunner db.TxRunner, consents ConsentStoreAPI, fetcher SessionCreator, aggregator ConsentIssuer) *ConsentService {
	return &ConsentService{
		txRunner:   txRunner,
		consents:   consents,
		fetcher:    fetcher,
		aggregator: aggregator,
	}
}

// HandleConsentStatusEvent applies one consent lifecycle notification.
// Lifecycle events are fire-and-forget from the aggregator's side: unknown
// consents, unparseable statuses and late deliveries are logged and absorbed,
// never surfaced as failures.
func (s *ConsentService) HandleConsentStatusEvent(ctx context.Context, event setu.WebhookEvent) error {
	if event.Error != nil {
		return s.HandleConsentCancellation(ctx, event.ConsentID, *event.Error)
	}
	status, ok := models.ParseConsentStatus(event.Data.Status)
	if !ok {
		log.Printf("consent %s: ignoring unknown status %q", event.ConsentID, event.Data.Status)
		return nil
	}
	consent, err := s.consents.GetByConsentID(ctx, event.ConsentID)
	if errors.Is(err, sql.ErrNoRows) {
		log.Printf("consent %s: status event for unknown consent", event.ConsentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load consent %s: %w", event.ConsentID, err)
	}
	if consent.Status == status {
		return nil
	}
	if !consent.Status.CanTransitionTo(status) {
		log.Printf("consent %s: ignoring %s -> %s (duplicate or out-of-order delivery)", event.ConsentID, consent.Status, status)
		return nil
	}
	var transitioned int64
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var txErr error
		transitioned, txErr = s.consents.TransitionStatus(ctx, tx, consent.ID, consent.Status, status)
		return txErr
	})
	if err != nil {
		return fmt.Errorf("update consent %s status: %w", event.ConsentID, err)
	}
	if transitioned == 0 {
		log.Printf("consent %s: lost status race, leaving row as is", event.ConsentID)
		return nil
	}
	// Session creation is gated on the PENDING -> ACTIVE transition, not on
	// every ACTIVE delivery, so a redelivered activation cannot spawn a
	// duplicate session.
	if status == models.ConsentActive && consent.Status == models.ConsentPending {
		consent.Status = models.ConsentActive
		if err := s.fetcher.CreateDataSession(ctx, consent); err != nil {
			return fmt.Errorf("create data session for consent %s: %w", event.ConsentID, err)
		}
	}
	return nil
}

// HandleConsentCancellation rejects the consent when the reported error code
// is a known cancellation. The status flip, FI-type expiry and the audit log
// row commit atomically.
func (s *ConsentService) HandleConsentCancellation(ctx context.Context, consentID string, eventErr setu.EventError) error {
	if _, ok := cancellationCodes[eventErr.Code]; !ok {
		log.Printf("consent %s: error code %q is not a cancellation, leaving consent untouched", consentID, eventErr.Code)
		return nil
	}
	consent, err := s.consents.GetByConsentID(ctx, consentID)
	if errors.Is(err, sql.ErrNoRows) {
		log.Printf("consent %s: cancellation event for unknown consent", consentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load consent %s: %w", consentID, err)
	}
	if consent.Status.IsTerminal() {
		log.Printf("consent %s: already %s, absorbing repeated cancellation", consentID, consent.Status)
		return nil
	}
	reason := cancellationReason(eventErr)
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		transitioned, txErr := s.consents.TransitionStatus(ctx, tx, consent.ID, consent.Status, models.ConsentRejected)
		if txErr != nil {
			return txErr
		}
		if transitioned == 0 {
			log.Printf("consent %s: lost cancellation race, leaving row as is", consentID)
			return nil
		}
		if txErr := s.consents.ExpireFITypes(ctx, tx, consent.ID); txErr != nil {
			return txErr
		}
		return s.consents.InsertCancellationLog(ctx, tx, consent.ID, reason, models.CancelledByUser)
	})
	if err != nil {
		return fmt.Errorf("cancel consent %s: %w", consentID, err)
	}
	return nil
}

// ExpirePendingConsents closes out every PENDING consent of the user before a
// new linking flow starts. Safe to call repeatedly: a second pass finds
// nothing PENDING and expires zero.
func (s *ConsentService) ExpirePendingConsents(ctx context.Context, userID int64) (int, error) {
	expired := 0
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		expired = 0
		ids, txErr := s.consents.ListPendingIDsByUser(ctx, tx, userID)
		if txErr != nil {
			return txErr
		}
		for _, id := range ids {
			transitioned, txErr := s.consents.TransitionStatus(ctx, tx, id, models.ConsentPending, models.ConsentExpired)
			if txErr != nil {
				return txErr
			}
			if transitioned == 0 {
				continue
			}
			if txErr := s.consents.ExpireFITypes(ctx, tx, id); txErr != nil {
				return txErr
			}
			if txErr := s.consents.InsertCancellationLog(ctx, tx, id, supersededReason, models.CancelledBySystem); txErr != nil {
				return txErr
			}
			expired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return expired, nil
}

type LinkBankRequest struct {
	UserID        int64
	PanID         *int64
	VUA           string
	FITypes       []models.FIType
	FetchType     models.FetchType
	DataRangeFrom time.Time
	DataRangeTo   time.Time
	ConsentExpiry time.Time
	DataLifeUnit  string
	DataLifeValue int
	FrequencyUnit *string
	FrequencyVal  *int
	PurposeCode   string
	PurposeText   string
}

type LinkBankResult struct {
	ConsentRequestID int64
	ConsentID        string
	RedirectURL      string
	GrantedTypes     []models.FIType
}

// CreateConsentURL supersedes the user's pending consents, asks the
// aggregator for a fresh consent grant and persists it with the granted FI
// types.
func (s *ConsentService) CreateConsentURL(ctx context.Context, req LinkBankRequest) (LinkBankResult, error) {
	expired, err := s.ExpirePendingConsents(ctx, req.UserID)
	if err != nil {
		return LinkBankResult{}, fmt.Errorf("expire pending consents: %w", err)
	}
	if expired > 0 {
		log.Printf("user %d: expired %d pending consent(s) before new link flow", req.UserID, expired)
	}

	traceID := uuid.NewString()
	fiTypes := make([]string, 0, len(req.FITypes))
	for _, fiType := range req.FITypes {
		fiTypes = append(fiTypes, string(fiType))
	}
	resp, err := s.aggregator.CreateConsent(ctx, setu.ConsentParams{
		VUA:           req.VUA,
		FITypes:       fiTypes,
		FetchType:     string(req.FetchType),
		DataRangeFrom: req.DataRangeFrom,
		DataRangeTo:   req.DataRangeTo,
		ConsentExpiry: req.ConsentExpiry,
		PurposeCode:   req.PurposeCode,
		PurposeText:   req.PurposeText,
		TraceID:       traceID,
	})
	if err != nil {
		return LinkBankResult{}, fmt.Errorf("create consent: %w", err)
	}

	granted := make([]models.FIType, 0, len(resp.FITypes))
	for _, raw := range resp.FITypes {
		granted = append(granted, models.NormalizeFIType(raw))
	}
	if len(granted) == 0 {
		granted = req.FITypes
	}

	var consentRequestID int64
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var txErr error
		consentRequestID, txErr = s.consents.Create(ctx, tx, store.ConsentRequestInput{
			ConsentID:      resp.ID,
			UserID:         req.UserID,
			PanID:          req.PanID,
			Status:         models.ConsentPending,
			FetchType:      req.FetchType,
			PurposeCode:    req.PurposeCode,
			PurposeText:    req.PurposeText,
			DataRangeFrom:  req.DataRangeFrom,
			DataRangeTo:    req.DataRangeTo,
			ConsentExpiry:  &req.ConsentExpiry,
			DataLifeUnit:   req.DataLifeUnit,
			DataLifeValue:  req.DataLifeValue,
			FrequencyUnit:  req.FrequencyUnit,
			FrequencyValue: req.FrequencyVal,
			RedirectURL:    &resp.URL,
			TraceID:        &traceID,
		})
		if txErr != nil {
			return txErr
		}
		return s.consents.InsertFITypes(ctx, tx, consentRequestID, granted)
	})
	if err != nil {
		return LinkBankResult{}, fmt.Errorf("persist consent %s: %w", resp.ID, err)
	}
	return LinkBankResult{
		ConsentRequestID: consentRequestID,
		ConsentID:        resp.ID,
		RedirectURL:      resp.URL,
		GrantedTypes:     granted,
	}, nil
}

func cancellationReason(eventErr setu.EventError) string {
	if reason, ok := cancellationReasons[eventErr.Detail]; ok {
		return reason
	}
	if reason, ok := cancellationReasons[eventErr.Code]; ok {
		return reason
	}
	return unknownCancellationReason
}
