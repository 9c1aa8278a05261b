package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faharipesa/fahari-pesa/internal/model"
)

// store объединяет методы, общие для PostgresRepository и MemoryRepository.
type store interface {
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

func mustUser(t *testing.T, s store, balance string) *model.User {
	t.Helper()

	ctx := context.Background()
	u := &model.User{
		ID:           uuid.New(),
		Username:     "user-" + uuid.NewString()[:8],
		PasswordHash: []byte("hash"),
		Role:         model.RoleUser,
	}
	require.NoError(t, s.CreateUser(ctx, u))

	if amount := decimal.RequireFromString(balance); amount.IsPositive() {
		_, err := s.Credit(ctx, u.ID, amount)
		require.NoError(t, err)
	}
	return u
}

func mustAd(t *testing.T, s store, reward string) *model.Ad {
	t.Helper()

	ad := &model.Ad{
		ID:     uuid.New(),
		Title:  "Promo",
		Type:   model.AdTypeVideo,
		Reward: decimal.RequireFromString(reward),
		Active: true,
	}
	require.NoError(t, s.CreateAd(context.Background(), ad))
	return ad
}

func newWithdrawal(userID uuid.UUID, amount string) *model.Withdrawal {
	return &model.Withdrawal{
		ID:       uuid.New(),
		UserID:   userID,
		Username: "Amina",
		Amount:   decimal.RequireFromString(amount),
		Phone:    "254712345678",
		Network:  model.NetworkMpesa,
	}
}

func balance(t *testing.T, s store, id uuid.UUID) decimal.Decimal {
	t.Helper()

	u, err := s.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u.Balance
}

// runStoreContract проверяет поведение хранилища, общее для всех реализаций.
func runStoreContract(t *testing.T, s store) {
	ctx := context.Background()

	t.Run("users", func(t *testing.T) {
		u := mustUser(t, s, "0")

		dup := &model.User{ID: uuid.New(), Username: u.Username, PasswordHash: []byte("x"), Role: model.RoleUser}
		require.ErrorIs(t, s.CreateUser(ctx, dup), ErrUserExists)

		got, err := s.GetUserByUsername(ctx, u.Username)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.False(t, got.Approved)
		assert.True(t, got.Balance.IsZero())

		pending, err := s.ListUsersByApproval(ctx, false)
		require.NoError(t, err)
		assert.True(t, containsUser(pending, u.ID))

		require.NoError(t, s.SetUserApproved(ctx, u.ID, true))
		got, err = s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, got.Approved)

		require.ErrorIs(t, s.SetUserApproved(ctx, uuid.New(), true), ErrUserNotFound)
		_, err = s.GetUser(ctx, uuid.New())
		require.ErrorIs(t, err, ErrUserNotFound)
		_, err = s.GetUserByUsername(ctx, "missing-"+uuid.NewString())
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("ads", func(t *testing.T) {
		ad := mustAd(t, s, "12.50")

		got, err := s.GetAd(ctx, ad.ID)
		require.NoError(t, err)
		assert.True(t, got.Reward.Equal(decimal.RequireFromString("12.5")))

		require.NoError(t, s.SetAdActive(ctx, ad.ID, false))
		active, err := s.ListAds(ctx, true)
		require.NoError(t, err)
		assert.False(t, containsAd(active, ad.ID))

		all, err := s.ListAds(ctx, false)
		require.NoError(t, err)
		assert.True(t, containsAd(all, ad.ID))

		require.ErrorIs(t, s.SetAdActive(ctx, uuid.New(), true), ErrAdNotFound)
		_, err = s.GetAd(ctx, uuid.New())
		require.ErrorIs(t, err, ErrAdNotFound)
	})

	t.Run("claim ad reward once", func(t *testing.T) {
		u := mustUser(t, s, "0")
		ad := mustAd(t, s, "500")
		views := 3

		acc, err := s.ClaimAdReward(ctx, model.WatchedAd{UserID: u.ID, AdID: ad.ID, ViewCount: &views}, ad.Reward)
		require.NoError(t, err)
		assert.True(t, acc.Balance.Equal(decimal.NewFromInt(500)))
		assert.True(t, acc.TotalEarnings.Equal(decimal.NewFromInt(500)))

		_, err = s.ClaimAdReward(ctx, model.WatchedAd{UserID: u.ID, AdID: ad.ID}, ad.Reward)
		require.ErrorIs(t, err, ErrAlreadyClaimed)
		assert.True(t, balance(t, s, u.ID).Equal(decimal.NewFromInt(500)))

		watched, err := s.ListWatchedAds(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, watched, 1)
		assert.Equal(t, ad.ID, watched[0].AdID)
		require.NotNil(t, watched[0].ViewCount)
		assert.Equal(t, 3, *watched[0].ViewCount)

		_, err = s.ClaimAdReward(ctx, model.WatchedAd{UserID: u.ID, AdID: uuid.New()}, ad.Reward)
		require.ErrorIs(t, err, ErrAdNotFound)

		_, err = s.ClaimAdReward(ctx, model.WatchedAd{UserID: uuid.New(), AdID: ad.ID}, ad.Reward)
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("withdrawal reject refunds", func(t *testing.T) {
		u := mustUser(t, s, "10000")

		w := newWithdrawal(u.ID, "4800")
		acc, err := s.CreateWithdrawal(ctx, w)
		require.NoError(t, err)
		assert.True(t, acc.Balance.Equal(decimal.NewFromInt(5200)))
		assert.Equal(t, model.WithdrawalStatusPending, w.Status)

		pending, err := s.ListWithdrawalsByStatus(ctx, model.WithdrawalStatusPending)
		require.NoError(t, err)
		assert.True(t, containsWithdrawal(pending, w.ID))

		at := time.Now().UTC().Truncate(time.Millisecond)
		rejected, err := s.RejectWithdrawal(ctx, w.ID, at)
		require.NoError(t, err)
		assert.Equal(t, model.WithdrawalStatusRejected, rejected.Status)
		require.NotNil(t, rejected.ProcessedAt)
		assert.True(t, balance(t, s, u.ID).Equal(decimal.NewFromInt(10000)))

		_, err = s.RejectWithdrawal(ctx, w.ID, at)
		require.ErrorIs(t, err, ErrAlreadyProcessed)
		_, err = s.ApproveWithdrawal(ctx, w.ID, at)
		require.ErrorIs(t, err, ErrAlreadyProcessed)
		assert.True(t, balance(t, s, u.ID).Equal(decimal.NewFromInt(10000)))

		got, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, got.TotalEarnings.Equal(decimal.NewFromInt(10000)))
	})

	t.Run("withdrawal approve keeps debit", func(t *testing.T) {
		u := mustUser(t, s, "10000")

		w := newWithdrawal(u.ID, "4800")
		_, err := s.CreateWithdrawal(ctx, w)
		require.NoError(t, err)

		approved, err := s.ApproveWithdrawal(ctx, w.ID, time.Now())
		require.NoError(t, err)
		assert.Equal(t, model.WithdrawalStatusApproved, approved.Status)
		assert.True(t, balance(t, s, u.ID).Equal(decimal.NewFromInt(5200)))

		stored, err := s.GetWithdrawal(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, model.WithdrawalStatusApproved, stored.Status)
		assert.True(t, stored.Amount.Equal(decimal.NewFromInt(4800)))

		list, err := s.ListWithdrawalsByUser(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)

		_, err = s.ApproveWithdrawal(ctx, uuid.New(), time.Now())
		require.ErrorIs(t, err, ErrWithdrawalNotFound)
		_, err = s.GetWithdrawal(ctx, uuid.New())
		require.ErrorIs(t, err, ErrWithdrawalNotFound)
	})

	t.Run("withdrawal over balance", func(t *testing.T) {
		u := mustUser(t, s, "100")

		_, err := s.CreateWithdrawal(ctx, newWithdrawal(u.ID, "100.01"))
		require.ErrorIs(t, err, ErrInsufficientBalance)
		assert.True(t, balance(t, s, u.ID).Equal(decimal.NewFromInt(100)))

		list, err := s.ListWithdrawalsByUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, list)

		_, err = s.CreateWithdrawal(ctx, newWithdrawal(u.ID, "100"))
		require.NoError(t, err)
		assert.True(t, balance(t, s, u.ID).IsZero())
	})

	t.Run("withdrawal beyond int64 cents", func(t *testing.T) {
		u := mustUser(t, s, "100")

		for _, amount := range []string{"184467440737095517.16", "184467440737095515.16"} {
			_, err := s.CreateWithdrawal(ctx, newWithdrawal(u.ID, amount))
			require.ErrorIs(t, err, ErrInsufficientBalance, amount)
		}
		assert.True(t, balance(t, s, u.ID).Equal(decimal.NewFromInt(100)))

		list, err := s.ListWithdrawalsByUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("concurrent withdrawals never overdraw", func(t *testing.T) {
		u := mustUser(t, s, "10000")

		var (
			wg sync.WaitGroup
			mu sync.Mutex
			ok int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.CreateWithdrawal(ctx, newWithdrawal(u.ID, "3000")); err == nil {
					mu.Lock()
					ok++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 3, ok)
		assert.True(t, balance(t, s, u.ID).Equal(decimal.NewFromInt(1000)))
	})

	t.Run("spin config versions", func(t *testing.T) {
		before, err := s.GetSpinConfig(ctx)
		require.NoError(t, err)

		cfg, err := s.ReplaceSpinSegments(ctx, []model.SpinSegment{
			{Label: "50 KES", Color: "#00ff00", Order: 2, Prize: decimal.NewFromInt(50)},
			{Label: "Try again", Color: "#cccccc", Order: 1, Prize: decimal.Zero},
		})
		require.NoError(t, err)
		assert.Equal(t, before.Version+1, cfg.Version)
		require.Len(t, cfg.Segments, 2)
		assert.Equal(t, 1, cfg.Segments[0].Order)
		assert.True(t, cfg.Segments[1].Prize.Equal(decimal.NewFromInt(50)))

		cfg, err = s.SetSpinActive(ctx, true)
		require.NoError(t, err)
		assert.True(t, cfg.Active)
		assert.Equal(t, before.Version+2, cfg.Version)

		got, err := s.GetSpinConfig(ctx)
		require.NoError(t, err)
		assert.Equal(t, cfg.Version, got.Version)
		assert.Len(t, got.Segments, 2)
	})
}

func containsUser(users []model.User, id uuid.UUID) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}

func containsAd(ads []model.Ad, id uuid.UUID) bool {
	for _, ad := range ads {
		if ad.ID == id {
			return true
		}
	}
	return false
}

func containsWithdrawal(ws []model.Withdrawal, id uuid.UUID) bool {
	for _, w := range ws {
		if w.ID == id {
			return true
		}
	}
	return false
}
