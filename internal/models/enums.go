package models

import "strings"

// ConsentStatus is the lifecycle status of a consent grant as reported by the
// account aggregator.
type ConsentStatus string

const (
	ConsentPending  ConsentStatus = "PENDING"
	ConsentActive   ConsentStatus = "ACTIVE"
	ConsentRevoked  ConsentStatus = "REVOKED"
	ConsentExpired  ConsentStatus = "EXPIRED"
	ConsentRejected ConsentStatus = "REJECTED"
	ConsentPaused   ConsentStatus = "PAUSED"
)

// ParseConsentStatus normalizes an aggregator-reported status string. The
// second return is false for anything outside the known set.
func ParseConsentStatus(raw string) (ConsentStatus, bool) {
	status := ConsentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case ConsentPending, ConsentActive, ConsentRevoked, ConsentExpired, ConsentRejected, ConsentPaused:
		return status, true
	}
	return "", false
}

// IsTerminal reports whether no further transitions are allowed out of the
// status. Terminal consents absorb late or duplicated webhook deliveries.
func (s ConsentStatus) IsTerminal() bool {
	return s == ConsentRevoked || s == ConsentExpired || s == ConsentRejected
}

// CanTransitionTo encodes the consent state machine: PENDING may activate,
// reject or expire; ACTIVE and PAUSED may swap; any non-terminal state may be
// revoked.
func (s ConsentStatus) CanTransitionTo(next ConsentStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch next {
	case ConsentRevoked:
		return true
	case ConsentActive:
		return s == ConsentPending || s == ConsentPaused
	case ConsentRejected, ConsentExpired:
		return s == ConsentPending
	case ConsentPaused:
		return s == ConsentActive
	}
	return false
}

type FetchType string

const (
	FetchOnetime  FetchType = "ONETIME"
	FetchPeriodic FetchType = "PERIODIC"
)

// FIType is a category of financial information permissible under a consent.
type FIType string

const (
	FITypeDeposit      FIType = "DEPOSIT"
	FITypeTermDeposit  FIType = "TERM_DEPOSIT"
	FITypeMutualFunds  FIType = "MUTUAL_FUNDS"
	FITypeETF          FIType = "ETF"
	FITypeEquityShares FIType = "EQUITY_SHARES"
)

// NormalizeFIType maps a free-text account type from a session payload onto
// the FIType set: uppercased, hyphens folded to underscores, and a trailing
// qualifier stripped ("SAVINGS_DEPOSIT" matches DEPOSIT). Unrecognized
// strings fall back to DEPOSIT.
func NormalizeFIType(raw string) FIType {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	cleaned = strings.ReplaceAll(cleaned, "-", "_")
	switch FIType(cleaned) {
	case FITypeDeposit, FITypeTermDeposit, FITypeMutualFunds, FITypeETF, FITypeEquityShares:
		return FIType(cleaned)
	}
	for _, known := range []FIType{FITypeTermDeposit, FITypeMutualFunds, FITypeEquityShares, FITypeDeposit, FITypeETF} {
		if strings.Contains(cleaned, string(known)) {
			return known
		}
	}
	return FITypeDeposit
}

type FITypeStatus string

const (
	FITypeStatusActive FITypeStatus = "ACTIVE"
	FITypeStatusExpire FITypeStatus = "EXPIRE"
)

type CancelledBy string

const (
	CancelledByUser   CancelledBy = "USER"
	CancelledBySystem CancelledBy = "SYSTEM"
)

// SessionStatus is the combined data-fetch session state per aggregator
// notifications.
type SessionStatus string

const (
	SessionPending   SessionStatus = "PENDING"
	SessionPartial   SessionStatus = "PARTIAL"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionExpired   SessionStatus = "EXPIRED"
	SessionFailed    SessionStatus = "FAILED"
)

func ParseSessionStatus(raw string) (SessionStatus, bool) {
	status := SessionStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case SessionPending, SessionPartial, SessionCompleted, SessionExpired, SessionFailed:
		return status, true
	}
	return "", false
}

// FileStatus is the claim-check state of a session payload file. The file is
// written once (PENDING), claimed by exactly one ingestion run (CLAIMED) and
// marked CONSUMED when its rows are committed. NONE means no file was ever
// attached.
type FileStatus string

const (
	FileNone     FileStatus = "NONE"
	FilePending  FileStatus = "PENDING"
	FileClaimed  FileStatus = "CLAIMED"
	FileConsumed FileStatus = "CONSUMED"
)

type FIPStatus string

const (
	FIPActive   FIPStatus = "ACTIVE"
	FIPInactive FIPStatus = "INACTIVE"
)
