package handlers

import (
	"context"

	"finagg/internal/models"
	"finagg/internal/services"
	"finagg/internal/setu"
	"finagg/internal/store"
)

type ConsentService interface {
	CreateConsentURL(ctx context.Context, req services.LinkBankRequest) (services.LinkBankResult, error)
	HandleConsentStatusEvent(ctx context.Context, event setu.WebhookEvent) error
}

type SessionService interface {
	HandleSessionStatusEvent(ctx context.Context, event setu.WebhookEvent) error
}

type UserService interface {
	Register(ctx context.Context, input services.RegisterInput) error
	MarkEmailVerified(ctx context.Context, keycloakUserID string) error
	Profile(ctx context.Context, userID int64) (services.Profile, error)
	VerifyAndStorePAN(ctx context.Context, userID int64, pan string) (int64, error)
}

type ConsentStore interface {
	LatestByUser(ctx context.Context, userID int64) (store.ConsentRequest, error)
	ListFITypes(ctx context.Context, consentRequestID int64) ([]store.ConsentFIType, error)
	ListCancellationReasons(ctx context.Context, consentRequestIDs []int64) ([]string, error)
}

type AccountStore interface {
	ListByUserAndType(ctx context.Context, userID int64, accountType models.FIType) ([]store.DepositAccountView, error)
	OwnedByUser(ctx context.Context, accountID, userID int64) (bool, error)
}

type TransactionStore interface {
	ListByAccount(ctx context.Context, accountID int64, sortBy, sortOrder string, limit, offset int) ([]store.BankTransaction, error)
	MonthlyStatsByUser(ctx context.Context, userID int64) ([]store.MonthlyStat, error)
	ModeStatsByUser(ctx context.Context, userID int64) ([]store.ModeStat, error)
}

type OTPSender interface {
	Send(phone string) error
	Check(phone, code string) error
}

type ChannelAuthorizer interface {
	AuthorizeChannel(userID int64, channel string, params []byte) ([]byte, error)
}
