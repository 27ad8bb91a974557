package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"finagg/internal/db"
	"finagg/internal/models"
	"finagg/internal/notify"
	"finagg/internal/setu"
	"finagg/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type IngestSessionStore interface {
	GetByID(ctx context.Context, id int64) (store.DataSession, error)
	ClaimFile(ctx context.Context, tx store.Execer, id int64) (int64, error)
	MarkFileConsumed(ctx context.Context, tx store.Execer, id int64) error
	ReleaseFile(ctx context.Context, tx store.Execer, id int64) error
}

type IngestConsentStore interface {
	GetByID(ctx context.Context, id int64) (store.ConsentRequest, error)
}

type FIPLookup interface {
	GetByFIPID(ctx context.Context, fipID string) (store.FinancialInstitution, error)
}

type IngestAccountStore interface {
	InsertAccount(ctx context.Context, tx store.Tx, input store.FinancialAccountInput) (int64, error)
	InsertHolder(ctx context.Context, tx store.Execer, input store.AccountHolderInput) error
	InsertSummary(ctx context.Context, tx store.Tx, input store.AccountSummaryInput) (int64, error)
	InsertBankingDetails(ctx context.Context, tx store.Execer, input store.BankingDetailsInput) error
	InsertTermDepositDetails(ctx context.Context, tx store.Execer, input store.TermDepositDetailsInput) error
}

type IngestTransactionStore interface {
	BulkInsert(ctx context.Context, tx store.Execer, entries []store.BankTransactionInput) error
}

type SetupMarker interface {
	SetSetupComplete(ctx context.Context, tx store.Execer, id int64) error
}

// Notifier pushes realtime events to the account owner. Ingestion treats it
// as best-effort: rows are committed first, a failed push only logs.
type Notifier interface {
	Notify(userID int64, event string, payload any) error
}

// IngestService turns a parked session payload file into relational rows. One
// run owns one file through the claim check on the session row, so concurrent
// workers or a redelivered webhook cannot double-ingest.
type IngestService struct {
	txRunner     db.TxRunner
	sessions     IngestSessionStore
	consents     IngestConsentStore
	fips         FIPLookup
	accounts     IngestAccountStore
	transactions IngestTransactionStore
	users        SetupMarker
	notifier     Notifier
}

func NewIngestService(txRunner db.TxRunner, sessions IngestSessionStore, consents IngestConsentStore, fips FIPLookup, accounts IngestAccountStore, transactions IngestTransactionStore, users SetupMarker, notifier Notifier) *IngestService {
	return &IngestService{
		txRunner:     txRunner,
		sessions:     sessions,
		consents:     consents,
		fips:         fips,
		accounts:     accounts,
		transactions: transactions,
		users:        users,
		notifier:     notifier,
	}
}

// ProcessSession runs the full pipeline for one session row: claim the
// payload file, decode it, write accounts, holders, summaries, detail rows
// and transactions in a single transaction, consume the file, then notify the
// user. A nil return means the session needs no further work, not that rows
// were necessarily written.
func (s *IngestService) ProcessSession(ctx context.Context, sessionRowID int64) error {
	session, err := s.sessions.GetByID(ctx, sessionRowID)
	if errors.Is(err, sql.ErrNoRows) {
		log.Printf("ingest: session row %d vanished, skipping", sessionRowID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("ingest: load session %d: %w", sessionRowID, err)
	}
	if session.FileStatus != models.FilePending || session.FilePath == nil {
		log.Printf("ingest: session %s file is %s, nothing to do", session.SessionID, session.FileStatus)
		return nil
	}

	var claimed int64
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var txErr error
		claimed, txErr = s.sessions.ClaimFile(ctx, tx, session.ID)
		return txErr
	})
	if err != nil {
		return fmt.Errorf("ingest: claim session %s: %w", session.SessionID, err)
	}
	if claimed == 0 {
		log.Printf("ingest: session %s already claimed, skipping", session.SessionID)
		return nil
	}

	consent, err := s.consents.GetByID(ctx, session.ConsentRequestID)
	if err != nil {
		s.releaseClaim(ctx, session.ID)
		return fmt.Errorf("ingest: load consent %d: %w", session.ConsentRequestID, err)
	}

	raw, err := os.ReadFile(*session.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		// The file is gone for good; retrying cannot help. Close the claim
		// check so the session stops looking ingestible.
		log.Printf("ingest: session %s payload file missing at %s", session.SessionID, *session.FilePath)
		s.consumeFile(ctx, session.ID)
		return nil
	}
	if err != nil {
		s.releaseClaim(ctx, session.ID)
		return fmt.Errorf("ingest: read payload for session %s: %w", session.SessionID, err)
	}

	payload, err := decodePayload(raw)
	if err != nil {
		// Poison payload. Release the claim so an operator can inspect and
		// retry after a re-fetch; do not fail the worker over it.
		log.Printf("ingest: session %s payload unreadable: %v", session.SessionID, err)
		s.releaseClaim(ctx, session.ID)
		return nil
	}

	accountCount := 0
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		accountCount = 0
		for _, fip := range payload.FIPs {
			if fip.FIPID == "" {
				log.Printf("ingest: session %s: block without fip id, skipping %d account(s)", session.SessionID, len(fip.Accounts))
				continue
			}
			// Unknown FIPs are not auto-created from payload data; the
			// directory sync owns that table.
			if _, txErr := s.fips.GetByFIPID(ctx, fip.FIPID); errors.Is(txErr, sql.ErrNoRows) {
				log.Printf("ingest: session %s: unknown fip %s, skipping %d account(s)", session.SessionID, fip.FIPID, len(fip.Accounts))
				continue
			} else if txErr != nil {
				return txErr
			}
			for _, block := range fip.Accounts {
				inserted, txErr := s.ingestAccount(ctx, tx, consent, fip.FIPID, block)
				if txErr != nil {
					return txErr
				}
				if inserted {
					accountCount++
				}
			}
		}
		if txErr := s.users.SetSetupComplete(ctx, tx, consent.UserID); txErr != nil {
			return txErr
		}
		return s.sessions.MarkFileConsumed(ctx, tx, session.ID)
	})
	if err != nil {
		s.releaseClaim(ctx, session.ID)
		return fmt.Errorf("ingest: session %s: %w", session.SessionID, err)
	}

	if err := os.Remove(*session.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("ingest: session %s: remove payload file: %v", session.SessionID, err)
	}

	// Rows are durable at this point; notification failures must not undo
	// or re-run the ingestion.
	s.emit(consent.UserID, notify.EventSessionCompleted, map[string]any{
		"sessionId": session.SessionID,
		"accounts":  accountCount,
	})
	s.emit(consent.UserID, notify.EventDataFetchingCompleted, map[string]any{
		"consentId": consent.ConsentID,
	})
	log.Printf("ingest: session %s: ingested %d account(s) for user %d", session.SessionID, accountCount, consent.UserID)
	return nil
}

// ingestAccount writes one account block and all its child rows. Blocks with
// no account payload are skipped, they occur when an FIP discovered an
// account but returned nothing for it.
func (s *IngestService) ingestAccount(ctx context.Context, tx *sqlx.Tx, consent store.ConsentRequest, fipID string, block setu.AccountBlock) (bool, error) {
	if block.LinkRefNumber == "" {
		log.Printf("ingest: consent %s: account block %s from %s has no link reference, skipping", consent.ConsentID, block.MaskedAccNumber, fipID)
		return false, nil
	}
	info := block.Data.Account
	if info.Empty() {
		log.Printf("ingest: consent %s: empty account block %s from %s", consent.ConsentID, block.MaskedAccNumber, fipID)
		return false, nil
	}
	accountType := models.NormalizeFIType(info.Type)
	accountID, err := s.accounts.InsertAccount(ctx, tx, store.FinancialAccountInput{
		ConsentRequestID:    consent.ID,
		FIPID:               fipID,
		LinkRefNumber:       block.LinkRefNumber,
		MaskedAccountNumber: block.MaskedAccNumber,
		AccountType:         accountType,
	})
	if err != nil {
		return false, fmt.Errorf("insert account %s: %w", block.MaskedAccNumber, err)
	}

	holderType := info.Profile.Holders.Type
	if holderType == "" {
		holderType = "SINGLE"
	}
	for _, holder := range info.Profile.Holders.Holder {
		err := s.accounts.InsertHolder(ctx, tx, store.AccountHolderInput{
			AccountID:      accountID,
			HolderType:     holderType,
			Name:           holder.Name,
			Address:        strPtrOrNil(holder.Address),
			CKYCCompliance: parseCKYC(holder.CKYCCompliance),
			DateOfBirth:    parseDate(holder.DOB),
			Email:          strPtrOrNil(holder.Email),
			Mobile:         strPtrOrNil(holder.Mobile),
			NomineeStatus:  strPtrOrNil(holder.Nominee),
			PAN:            strPtrOrNil(holder.PAN),
		})
		if err != nil {
			return false, fmt.Errorf("insert holder for account %s: %w", block.MaskedAccNumber, err)
		}
	}

	summaryID, err := s.accounts.InsertSummary(ctx, tx, store.AccountSummaryInput{
		AccountID:   accountID,
		Branch:      getStringPtr(info.Summary, "branch"),
		IFSCCode:    getStringPtr(info.Summary, "ifscCode"),
		OpeningDate: getTime(info.Summary, "openingDate"),
	})
	if err != nil {
		return false, fmt.Errorf("insert summary for account %s: %w", block.MaskedAccNumber, err)
	}

	// The type-specific detail row is exclusive: a deposit account gets
	// banking details, a term deposit gets term-deposit details, never both.
	switch accountType {
	case models.FITypeTermDeposit:
		err = s.insertTermDepositDetails(ctx, tx, summaryID, info.Summary)
	default:
		err = s.insertBankingDetails(ctx, tx, summaryID, info.Summary)
	}
	if err != nil {
		return false, fmt.Errorf("insert details for account %s: %w", block.MaskedAccNumber, err)
	}

	entries := buildTransactions(accountID, info.Transactions.Transaction)
	if err := s.transactions.BulkInsert(ctx, tx, entries); err != nil {
		return false, fmt.Errorf("insert transactions for account %s: %w", block.MaskedAccNumber, err)
	}
	return true, nil
}

func (s *IngestService) insertBankingDetails(ctx context.Context, tx store.Execer, summaryID int64, summary map[string]any) error {
	input := store.BankingDetailsInput{
		SummaryID:        summaryID,
		CurrentBalance:   getDecimal(summary, "currentBalance", decimal.Zero),
		AvailableBalance: getNullDecimal(summary, "availableBalance"),
		CurrentODLimit:   getNullDecimal(summary, "currentODLimit"),
		DrawingLimit:     getNullDecimal(summary, "drawingLimit"),
		Facility:         getStringPtr(summary, "facility"),
		Status:           getString(summary, "status"),
		AccountSubType:   getString(summary, "type"),
		Currency:         getString(summary, "currency"),
		BalanceDateTime:  getTime(summary, "balanceDateTime"),
		MICRCode:         getStringPtr(summary, "micrCode"),
	}
	if input.Currency == "" {
		input.Currency = "INR"
	}
	if pending, ok := summary["Pending"].(map[string]any); ok {
		input.PendingAmount = getNullDecimal(pending, "amount")
		input.PendingTransactionType = getStringPtr(pending, "transactionType")
	}
	return s.accounts.InsertBankingDetails(ctx, tx, input)
}

func (s *IngestService) insertTermDepositDetails(ctx context.Context, tx store.Execer, summaryID int64, summary map[string]any) error {
	return s.accounts.InsertTermDepositDetails(ctx, tx, store.TermDepositDetailsInput{
		SummaryID:                    summaryID,
		AccountType:                  getString(summary, "accountType"),
		CurrentValue:                 getDecimal(summary, "currentValue", decimal.Zero),
		Description:                  getStringPtr(summary, "description"),
		CompoundingFrequency:         getStringPtr(summary, "compoundingFrequency"),
		InterestComputation:          getStringPtr(summary, "interestComputation"),
		InterestOnMaturity:           getStringPtr(summary, "interestOnMaturity"),
		InterestPayout:               getStringPtr(summary, "interestPayout"),
		InterestPeriodicPayoutAmount: getNullDecimal(summary, "interestPeriodicPayoutAmount"),
		InterestRate:                 getDecimal(summary, "interestRate", decimal.Zero),
		MaturityAmount:               getNullDecimal(summary, "maturityAmount"),
		MaturityDate:                 getTime(summary, "maturityDate"),
		PrincipalAmount:              getDecimal(summary, "principalAmount", decimal.Zero),
		RecurringAmount:              getNullDecimal(summary, "recurringAmount"),
		RecurringDepositDay:          getInt(summary, "recurringDepositDay"),
		TenureDays:                   getInt(summary, "tenureDays"),
		TenureMonths:                 getInt(summary, "tenureMonths"),
		TenureYears:                  getInt(summary, "tenureYears"),
	})
}

// buildTransactions maps raw transaction entries to insert rows. Entries
// without a parseable timestamp are dropped; a transaction that cannot be
// placed in time is useless to every consumer downstream.
func buildTransactions(accountID int64, raw []map[string]any) []store.BankTransactionInput {
	entries := make([]store.BankTransactionInput, 0, len(raw))
	for _, txn := range raw {
		ts, ok := parseTimestamp(getString(txn, "transactionTimestamp"))
		if !ok {
			ts, ok = parseTimestamp(getString(txn, "valueDate"))
		}
		if !ok {
			log.Printf("ingest: account %d: dropping transaction %s without timestamp", accountID, getString(txn, "txnId"))
			continue
		}
		entries = append(entries, store.BankTransactionInput{
			AccountID:     accountID,
			Amount:        getDecimal(txn, "amount", decimal.Zero),
			Balance:       getNullDecimal(txn, "currentBalance"),
			Mode:          getString(txn, "mode"),
			Narration:     getStringPtr(txn, "narration"),
			Timestamp:     ts,
			TransactionID: getString(txn, "txnId"),
			Type:          strings.ToUpper(getString(txn, "type")),
		})
	}
	return entries
}

// decodePayload parses the raw payload with UseNumber so monetary values stay
// exact until they reach decimal columns.
func decodePayload(raw []byte) (setu.SessionPayload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload setu.SessionPayload
	if err := dec.Decode(&payload); err != nil {
		return setu.SessionPayload{}, err
	}
	return payload, nil
}

func (s *IngestService) releaseClaim(ctx context.Context, sessionRowID int64) {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.sessions.ReleaseFile(ctx, tx, sessionRowID)
	})
	if err != nil {
		log.Printf("ingest: release claim on session row %d: %v", sessionRowID, err)
	}
}

func (s *IngestService) consumeFile(ctx context.Context, sessionRowID int64) {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.sessions.MarkFileConsumed(ctx, tx, sessionRowID)
	})
	if err != nil {
		log.Printf("ingest: mark session row %d consumed: %v", sessionRowID, err)
	}
}

func (s *IngestService) emit(userID int64, event string, payload any) {
	if err := s.notifier.Notify(userID, event, payload); err != nil {
		log.Printf("ingest: notify user %d %s: %v", userID, event, err)
	}
}
