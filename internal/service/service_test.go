package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/faharipesa/fahari-pesa/internal/model"
	"github.com/faharipesa/fahari-pesa/internal/repository"
)

func newTestService(t *testing.T) (*Service, *repository.MemoryRepository) {
	t.Helper()

	repo := repository.NewMemoryRepository()
	return NewService(repo, nil, zap.NewNop()), repo
}

// newFundedUser создаёт подтверждённого пользователя с заданным балансом в шиллингах.
func newFundedUser(t testing.TB, repo *repository.MemoryRepository, balance int64) uuid.UUID {
	t.Helper()

	ctx := context.Background()
	u := &model.User{ID: uuid.New(), Username: "u" + uuid.NewString()[:8], Role: model.RoleUser, Approved: true}
	require.NoError(t, repo.CreateUser(ctx, u))
	if balance > 0 {
		_, err := repo.Credit(ctx, u.ID, decimal.NewFromInt(balance))
		require.NoError(t, err)
	}
	return u.ID
}

func balanceOf(t testing.TB, s *Service, userID uuid.UUID) decimal.Decimal {
	t.Helper()

	acc, err := s.GetAccount(context.Background(), userID)
	require.NoError(t, err)
	return acc.Balance
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	id, err := s.RegisterUser(ctx, "amina", "secret12", "0712 345 678")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	_, err = s.RegisterUser(ctx, "amina", "other", "")
	require.ErrorIs(t, err, repository.ErrUserExists)

	_, err = s.AuthenticateUser(ctx, "amina", "secret12")
	require.ErrorIs(t, err, ErrUserNotApproved)

	pending, err := s.ListPendingUsers(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "254712345678", pending[0].Phone)

	require.NoError(t, s.ApproveUser(ctx, id))

	u, err := s.AuthenticateUser(ctx, "amina", "secret12")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, model.RoleUser, u.Role)

	_, err = s.AuthenticateUser(ctx, "amina", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.AuthenticateUser(ctx, "nobody", "secret12")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterUser_InvalidPhone(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.RegisterUser(context.Background(), "amina", "secret12", "12345")
	require.ErrorIs(t, err, ErrInvalidPhone)
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureAdmin(ctx, "root", "rootpass"))
	require.NoError(t, s.EnsureAdmin(ctx, "root", "ignored"))

	u, err := s.AuthenticateUser(ctx, "root", "rootpass")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
}

func TestApproveUser_NotFound(t *testing.T) {
	s, _ := newTestService(t)

	err := s.ApproveUser(context.Background(), uuid.New())
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestClaimAd_OncePerUser(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()
	userID := newFundedUser(t, repo, 0)

	ad, err := s.CreateAd(ctx, "Promo", model.AdTypeVideo, "https://example.com/v", dec("500"))
	require.NoError(t, err)

	acc, err := s.ClaimAd(ctx, userID, ad.ID, nil)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(dec("500")))
	assert.True(t, acc.TotalEarnings.Equal(dec("500")))

	_, err = s.ClaimAd(ctx, userID, ad.ID, nil)
	require.ErrorIs(t, err, repository.ErrAlreadyClaimed)

	acc, err = s.GetAccount(ctx, userID)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(dec("500")))
	assert.True(t, acc.TotalEarnings.Equal(dec("500")))

	watched, err := s.ListWatchedAdIDs(ctx, userID)
	require.NoError(t, err)
	assert.True(t, watched[ad.ID])

	other := newFundedUser(t, repo, 0)
	_, err = s.ClaimAd(ctx, other, ad.ID, nil)
	require.NoError(t, err)
}

func TestClaimAd_Rejections(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()
	userID := newFundedUser(t, repo, 0)

	share, err := s.CreateAd(ctx, "Share", model.AdTypeShare, "", dec("50"))
	require.NoError(t, err)
	inactive, err := s.CreateAd(ctx, "Old", model.AdTypeLink, "", dec("10"))
	require.NoError(t, err)
	require.NoError(t, s.SetAdActive(ctx, inactive.ID, false))

	zero := 0
	views := 12

	_, err = s.ClaimAd(ctx, userID, share.ID, nil)
	require.ErrorIs(t, err, ErrViewCountRequired)

	_, err = s.ClaimAd(ctx, userID, share.ID, &zero)
	require.ErrorIs(t, err, ErrViewCountRequired)

	_, err = s.ClaimAd(ctx, userID, inactive.ID, nil)
	require.ErrorIs(t, err, ErrAdInactive)

	_, err = s.ClaimAd(ctx, userID, uuid.New(), nil)
	require.ErrorIs(t, err, repository.ErrAdNotFound)

	acc, err := s.ClaimAd(ctx, userID, share.ID, &views)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(dec("50")))

	active, err := s.ListAds(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestClaimAdReward_InvalidReward(t *testing.T) {
	s, repo := newTestService(t)
	userID := newFundedUser(t, repo, 0)

	_, err := s.ClaimAdReward(context.Background(), userID, uuid.New(), dec("-1"), nil)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = s.ClaimAdReward(context.Background(), userID, uuid.New(), dec("1.005"), nil)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = s.ClaimAdReward(context.Background(), userID, uuid.New(), dec("92233720368547758.08"), nil)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCreateAd_Validation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.CreateAd(ctx, "  ", model.AdTypeVideo, "", dec("1"))
	require.ErrorIs(t, err, ErrInvalidAd)

	_, err = s.CreateAd(ctx, "Promo", model.AdType("banner"), "", dec("1"))
	require.ErrorIs(t, err, ErrInvalidAd)

	_, err = s.CreateAd(ctx, "Promo", model.AdTypeVideo, "", dec("-1"))
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = s.CreateAd(ctx, "Promo", model.AdTypeVideo, "", dec("184467440737095517.16"))
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestClaimSpinPrize(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()
	userID := newFundedUser(t, repo, 100)

	acc, err := s.ClaimSpinPrize(ctx, userID, decimal.Zero)
	require.NoError(t, err)
	assert.Nil(t, acc)
	assert.True(t, balanceOf(t, s, userID).Equal(dec("100")))

	acc, err = s.ClaimSpinPrize(ctx, userID, dec("25.50"))
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(dec("125.50")))
	assert.True(t, acc.TotalEarnings.Equal(dec("125.50")))

	_, err = s.ClaimSpinPrize(ctx, userID, dec("-5"))
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = s.ClaimSpinPrize(ctx, userID, dec("184467440737095517.16"))
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.True(t, balanceOf(t, s, userID).Equal(dec("125.50")))

	_, err = s.ClaimSpinPrize(ctx, uuid.New(), dec("5"))
	require.ErrorIs(t, err, repository.ErrUserNotFound)

	_, err = s.ClaimSpinPrize(ctx, uuid.New(), decimal.Zero)
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestClaimSpinSegment(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()
	userID := newFundedUser(t, repo, 0)

	_, err := s.UpdateSpinSegments(ctx, []model.SpinSegment{
		{Label: "Try again", Color: "#cccccc", Order: 0, Prize: decimal.Zero},
		{Label: "50 KES", Color: "#00ff00", Order: 1, Prize: dec("50")},
	})
	require.NoError(t, err)

	cfg, err := s.GetSpinConfig(ctx)
	require.NoError(t, err)

	_, _, err = s.ClaimSpinSegment(ctx, userID, cfg.Version, 1)
	require.ErrorIs(t, err, ErrSpinInactive)

	cfg, err = s.SetSpinActive(ctx, true)
	require.NoError(t, err)

	_, _, err = s.ClaimSpinSegment(ctx, userID, cfg.Version-1, 1)
	require.ErrorIs(t, err, ErrSpinConfigStale)

	_, _, err = s.ClaimSpinSegment(ctx, userID, cfg.Version, 7)
	require.ErrorIs(t, err, ErrSegmentNotFound)

	prize, acc, err := s.ClaimSpinSegment(ctx, userID, cfg.Version, 0)
	require.NoError(t, err)
	assert.True(t, prize.IsZero())
	assert.Nil(t, acc)

	prize, acc, err = s.ClaimSpinSegment(ctx, userID, cfg.Version, 1)
	require.NoError(t, err)
	assert.True(t, prize.Equal(dec("50")))
	assert.True(t, acc.Balance.Equal(dec("50")))
}

func TestUpdateSpinSegments_Validation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		segments []model.SpinSegment
	}{
		{
			name: "duplicate order",
			segments: []model.SpinSegment{
				{Label: "A", Order: 1, Prize: dec("1")},
				{Label: "B", Order: 1, Prize: dec("2")},
			},
		},
		{
			name:     "blank label",
			segments: []model.SpinSegment{{Label: " ", Order: 0}},
		},
		{
			name:     "negative prize",
			segments: []model.SpinSegment{{Label: "A", Order: 0, Prize: dec("-1")}},
		},
		{
			name:     "prize beyond int64 cents",
			segments: []model.SpinSegment{{Label: "A", Order: 0, Prize: dec("92233720368547758.08")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.UpdateSpinSegments(ctx, tt.segments)
			require.ErrorIs(t, err, ErrInvalidSegments)
		})
	}
}

func TestWithdrawal_RejectRefundsOnce(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()
	userID := newFundedUser(t, repo, 10000)

	w, err := s.RequestWithdrawal(ctx, userID, dec("4800"), "0712345678", model.NetworkMpesa, "")
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalStatusPending, w.Status)
	assert.Equal(t, "254712345678", w.Phone)
	assert.Nil(t, w.ProcessedAt)
	assert.True(t, balanceOf(t, s, userID).Equal(dec("5200")))

	rejected, err := s.RejectWithdrawal(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalStatusRejected, rejected.Status)
	assert.NotNil(t, rejected.ProcessedAt)
	assert.True(t, balanceOf(t, s, userID).Equal(dec("10000")))

	_, err = s.RejectWithdrawal(ctx, w.ID)
	require.ErrorIs(t, err, repository.ErrAlreadyProcessed)
	assert.True(t, balanceOf(t, s, userID).Equal(dec("10000")))

	acc, err := s.GetAccount(ctx, userID)
	require.NoError(t, err)
	assert.True(t, acc.TotalEarnings.Equal(dec("10000")))
}

func TestWithdrawal_ApproveDoesNotDebitTwice(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()
	userID := newFundedUser(t, repo, 10000)

	w, err := s.RequestWithdrawal(ctx, userID, dec("4800"), "+254 733 000 111", model.NetworkAirtel, "Amina W")
	require.NoError(t, err)
	assert.Equal(t, "Amina W", w.Username)

	approved, err := s.ApproveWithdrawal(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalStatusApproved, approved.Status)
	assert.True(t, balanceOf(t, s, userID).Equal(dec("5200")))

	_, err = s.ApproveWithdrawal(ctx, w.ID)
	require.ErrorIs(t, err, repository.ErrAlreadyProcessed)

	_, err = s.RejectWithdrawal(ctx, w.ID)
	require.ErrorIs(t, err, repository.ErrAlreadyProcessed)
	assert.True(t, balanceOf(t, s, userID).Equal(dec("5200")))

	stored, err := s.GetWithdrawal(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalStatusApproved, stored.Status)
}

func TestRequestWithdrawal_Validation(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()
	userID := newFundedUser(t, repo, 100)

	tests := []struct {
		name    string
		amount  decimal.Decimal
		phone   string
		network model.Network
		wantErr error
	}{
		{name: "zero amount", amount: decimal.Zero, phone: "0712345678", network: model.NetworkMpesa, wantErr: ErrInvalidAmount},
		{name: "negative amount", amount: dec("-10"), phone: "0712345678", network: model.NetworkMpesa, wantErr: ErrInvalidAmount},
		{name: "sub-cent amount", amount: dec("10.001"), phone: "0712345678", network: model.NetworkMpesa, wantErr: ErrInvalidAmount},
		{name: "bad phone", amount: dec("10"), phone: "07123", network: model.NetworkMpesa, wantErr: ErrInvalidPhone},
		{name: "bad network", amount: dec("10"), phone: "0712345678", network: model.Network("paypal"), wantErr: ErrInvalidNetwork},
		{name: "over balance", amount: dec("100.01"), phone: "0712345678", network: model.NetworkMpesa, wantErr: repository.ErrInsufficientBalance},
		{name: "beyond int64 cents", amount: dec("184467440737095517.16"), phone: "0712345678", network: model.NetworkMpesa, wantErr: repository.ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.RequestWithdrawal(ctx, userID, tt.amount, tt.phone, tt.network, "")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.True(t, balanceOf(t, s, userID).Equal(dec("100")))

	list, err := s.ListUserWithdrawals(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRequestWithdrawal_DefaultsToUsername(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()
	userID := newFundedUser(t, repo, 100)

	u, err := repo.GetUser(ctx, userID)
	require.NoError(t, err)

	w, err := s.RequestWithdrawal(ctx, userID, dec("100"), "0112345678", model.NetworkMpesa, "")
	require.NoError(t, err)
	assert.Equal(t, u.Username, w.Username)
	assert.True(t, balanceOf(t, s, userID).IsZero())

	pending, err := s.ListWithdrawalsByStatus(ctx, model.WithdrawalStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, w.ID, pending[0].ID)
}

func TestWithdrawalTransitions_NotFound(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.ApproveWithdrawal(ctx, uuid.New())
	require.ErrorIs(t, err, repository.ErrWithdrawalNotFound)

	_, err = s.RejectWithdrawal(ctx, uuid.New())
	require.ErrorIs(t, err, repository.ErrWithdrawalNotFound)
}

type failingCreditRepo struct {
	*repository.MemoryRepository
	err error
}

func (r *failingCreditRepo) Credit(context.Context, uuid.UUID, decimal.Decimal) (*model.Account, error) {
	return nil, r.err
}

func TestClaimSpinPrize_PersistenceErrorPassesThrough(t *testing.T) {
	mem := repository.NewMemoryRepository()
	storeErr := fmt.Errorf("credit: %w: %w", repository.ErrPersistence, errors.New("connection reset"))
	s := NewService(&failingCreditRepo{MemoryRepository: mem, err: storeErr}, nil, nil)

	_, err := s.ClaimSpinPrize(context.Background(), uuid.New(), dec("10"))
	require.ErrorIs(t, err, repository.ErrPersistence)
}

type fakeSpinCache struct {
	cfg    *model.SpinConfig
	getErr error
	setErr error
	sets   int
}

func (c *fakeSpinCache) Get(context.Context) (*model.SpinConfig, error) {
	return c.cfg, c.getErr
}

func (c *fakeSpinCache) Set(_ context.Context, cfg *model.SpinConfig) error {
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	if c.cfg == nil || cfg.Version > c.cfg.Version {
		c.cfg = cfg
	}
	return nil
}

func TestGetSpinConfig_UsesCache(t *testing.T) {
	repo := repository.NewMemoryRepository()
	c := &fakeSpinCache{}
	s := NewService(repo, c, zap.NewNop())
	ctx := context.Background()

	cfg, err := s.GetSpinConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.sets)

	updated, err := s.UpdateSpinSegments(ctx, []model.SpinSegment{{Label: "10 KES", Color: "#fff", Order: 0, Prize: dec("10")}})
	require.NoError(t, err)
	assert.Greater(t, updated.Version, cfg.Version)
	assert.Equal(t, updated.Version, c.cfg.Version)

	cached, err := s.GetSpinConfig(ctx)
	require.NoError(t, err)
	assert.Same(t, c.cfg, cached)
}

func TestGetSpinConfig_FallsBackOnCacheError(t *testing.T) {
	repo := repository.NewMemoryRepository()
	c := &fakeSpinCache{getErr: errors.New("redis down")}
	s := NewService(repo, c, zap.NewNop())

	cfg, err := s.GetSpinConfig(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestClaimSpinSegment_IgnoresStaleCache(t *testing.T) {
	repo := repository.NewMemoryRepository()
	c := &fakeSpinCache{}
	s := NewService(repo, c, zap.NewNop())
	ctx := context.Background()
	userID := newFundedUser(t, repo, 0)

	_, err := s.UpdateSpinSegments(ctx, []model.SpinSegment{{Label: "Jackpot", Color: "#ffd700", Order: 0, Prize: dec("1000")}})
	require.NoError(t, err)
	old, err := s.SetSpinActive(ctx, true)
	require.NoError(t, err)
	require.Equal(t, old.Version, c.cfg.Version)

	c.setErr = errors.New("redis down")
	current, err := s.UpdateSpinSegments(ctx, []model.SpinSegment{{Label: "Try again", Color: "#cccccc", Order: 0, Prize: decimal.Zero}})
	require.NoError(t, err)
	require.Greater(t, current.Version, old.Version)
	assert.Equal(t, old.Version, c.cfg.Version)

	_, _, err = s.ClaimSpinSegment(ctx, userID, old.Version, 0)
	require.ErrorIs(t, err, ErrSpinConfigStale)
	assert.True(t, balanceOf(t, s, userID).IsZero())

	prize, acc, err := s.ClaimSpinSegment(ctx, userID, current.Version, 0)
	require.NoError(t, err)
	assert.True(t, prize.IsZero())
	assert.Nil(t, acc)
	assert.True(t, balanceOf(t, s, userID).IsZero())
}
