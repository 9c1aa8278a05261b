// Package service реализует бизнес-логику платформы Fahari Pesa.
// Service является единственным местом, где меняется баланс пользователя
// и статус заявок на вывод средств.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/faharipesa/fahari-pesa/internal/model"
)

var (
	ErrInvalidAmount      = errors.New("amount must be positive with at most two decimal places")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrInvalidNetwork     = errors.New("unsupported payment network")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotApproved    = errors.New("registration is not approved yet")
	ErrAdInactive         = errors.New("ad is not active")
	ErrInvalidAd          = errors.New("invalid ad")
	ErrViewCountRequired  = errors.New("view count is required for share ads")
	ErrSpinInactive       = errors.New("spin wheel is not active")
	ErrSpinConfigStale    = errors.New("spin wheel configuration has changed")
	ErrSegmentNotFound    = errors.New("spin segment not found")
	ErrInvalidSegments    = errors.New("invalid spin segments")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
// Многошаговые операции с балансом реализация обязана выполнять атомарно.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsersByApproval(ctx context.Context, approved bool) ([]model.User, error)
	SetUserApproved(ctx context.Context, id uuid.UUID, approved bool) error

	CreateAd(ctx context.Context, ad *model.Ad) error
	GetAd(ctx context.Context, id uuid.UUID) (*model.Ad, error)
	ListAds(ctx context.Context, activeOnly bool) ([]model.Ad, error)
	SetAdActive(ctx context.Context, id uuid.UUID, active bool) error
	ListWatchedAds(ctx context.Context, userID uuid.UUID) ([]model.WatchedAd, error)

	ClaimAdReward(ctx context.Context, rec model.WatchedAd, reward decimal.Decimal) (*model.Account, error)
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*model.Account, error)
	CreateWithdrawal(ctx context.Context, w *model.Withdrawal) (*model.Account, error)
	GetWithdrawal(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error)
	ListWithdrawalsByUser(ctx context.Context, userID uuid.UUID) ([]model.Withdrawal, error)
	ListWithdrawalsByStatus(ctx context.Context, status model.WithdrawalStatus) ([]model.Withdrawal, error)
	ApproveWithdrawal(ctx context.Context, id uuid.UUID, at time.Time) (*model.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, id uuid.UUID, at time.Time) (*model.Withdrawal, error)

	GetSpinConfig(ctx context.Context) (*model.SpinConfig, error)
	ReplaceSpinSegments(ctx context.Context, segments []model.SpinSegment) (*model.SpinConfig, error)
	SetSpinActive(ctx context.Context, active bool) (*model.SpinConfig, error)
}

// SpinCache кэширует конфигурацию колеса призов. Get возвращает nil, nil при промахе.
type SpinCache interface {
	Get(ctx context.Context) (*model.SpinConfig, error)
	Set(ctx context.Context, cfg *model.SpinConfig) error
}

// Service содержит бизнес-логику платформы.
type Service struct {
	repo   Repository
	cache  SpinCache
	logger *zap.Logger
	now    func() time.Time
}

// NewService создаёт новый сервис. cache может быть nil, тогда конфигурация колеса
// всегда читается из репозитория.
func NewService(repo Repository, cache SpinCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// validAmount проверяет, что сумма положительна и выражена не более чем в центах.
func validAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(2))
}

// validCredit проверяет начисляемую сумму: неотрицательная, не больше двух знаков
// после запятой и помещается в int64 центов.
func validCredit(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Round(2)) && d.Shift(2).BigInt().IsInt64()
}
