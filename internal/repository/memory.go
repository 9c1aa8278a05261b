package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/faharipesa/fahari-pesa/internal/model"
	"github.com/faharipesa/fahari-pesa/internal/pkg/lock"
)

type watchedKey struct {
	userID uuid.UUID
	adID   uuid.UUID
}

// MemoryRepository хранит данные в памяти процесса.
// Изменения баланса одного пользователя сериализуются через lock.UserLock,
// поэтому инварианты совпадают с PostgresRepository.
type MemoryRepository struct {
	mu          sync.RWMutex
	userLock    *lock.UserLock
	users       map[uuid.UUID]*model.User
	usernames   map[string]uuid.UUID
	ads         map[uuid.UUID]*model.Ad
	watched     map[watchedKey]model.WatchedAd
	withdrawals map[uuid.UUID]*model.Withdrawal
	spin        model.SpinConfig
	now         func() time.Time
}

// NewMemoryRepository создаёт пустое in-memory хранилище.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		userLock:    lock.NewUserLock(),
		users:       make(map[uuid.UUID]*model.User),
		usernames:   make(map[string]uuid.UUID),
		ads:         make(map[uuid.UUID]*model.Ad),
		watched:     make(map[watchedKey]model.WatchedAd),
		withdrawals: make(map[uuid.UUID]*model.Withdrawal),
		spin:        model.SpinConfig{Segments: []model.SpinSegment{}},
		now:         time.Now,
	}
}

// Close ничего не делает: ресурсов для освобождения нет.
func (r *MemoryRepository) Close() error { return nil }

func (r *MemoryRepository) CreateUser(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.usernames[u.Username]; ok {
		return fmt.Errorf("%w: %s", ErrUserExists, u.Username)
	}

	u.Balance = decimal.Zero
	u.TotalEarnings = decimal.Zero
	u.CreatedAt = r.now()

	stored := *u
	r.users[u.ID] = &stored
	r.usernames[u.Username] = u.ID
	return nil
}

func (r *MemoryRepository) GetUser(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	res := *u
	return &res, nil
}

func (r *MemoryRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	id, ok := r.usernames[username]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.GetUser(ctx, id)
}

func (r *MemoryRepository) ListUsersByApproval(_ context.Context, approved bool) ([]model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var res []model.User
	for _, u := range r.users {
		if u.Approved == approved {
			res = append(res, *u)
		}
	}
	slices.SortFunc(res, func(a, b model.User) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return res, nil
}

func (r *MemoryRepository) SetUserApproved(_ context.Context, id uuid.UUID, approved bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Approved = approved
	return nil
}

func (r *MemoryRepository) CreateAd(_ context.Context, ad *model.Ad) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ad.CreatedAt = r.now()
	stored := *ad
	r.ads[ad.ID] = &stored
	return nil
}

func (r *MemoryRepository) GetAd(_ context.Context, id uuid.UUID) (*model.Ad, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ad, ok := r.ads[id]
	if !ok {
		return nil, ErrAdNotFound
	}
	res := *ad
	return &res, nil
}

func (r *MemoryRepository) ListAds(_ context.Context, activeOnly bool) ([]model.Ad, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var res []model.Ad
	for _, ad := range r.ads {
		if activeOnly && !ad.Active {
			continue
		}
		res = append(res, *ad)
	}
	slices.SortFunc(res, func(a, b model.Ad) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return res, nil
}

func (r *MemoryRepository) SetAdActive(_ context.Context, id uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ad, ok := r.ads[id]
	if !ok {
		return ErrAdNotFound
	}
	ad.Active = active
	return nil
}

func (r *MemoryRepository) ListWatchedAds(_ context.Context, userID uuid.UUID) ([]model.WatchedAd, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var res []model.WatchedAd
	for k, w := range r.watched {
		if k.userID == userID {
			res = append(res, w)
		}
	}
	return res, nil
}

// ClaimAdReward атомарно фиксирует просмотр и начисляет вознаграждение.
func (r *MemoryRepository) ClaimAdReward(ctx context.Context, rec model.WatchedAd, reward decimal.Decimal) (*model.Account, error) {
	var acc *model.Account
	err := r.userLock.WithLock(ctx, rec.UserID, func() error {
		r.mu.Lock()
		defer r.mu.Unlock()

		u, ok := r.users[rec.UserID]
		if !ok {
			return ErrUserNotFound
		}
		if _, ok := r.ads[rec.AdID]; !ok {
			return ErrAdNotFound
		}

		key := watchedKey{userID: rec.UserID, adID: rec.AdID}
		if _, ok := r.watched[key]; ok {
			return ErrAlreadyClaimed
		}

		rec.CreatedAt = r.now()
		r.watched[key] = rec
		u.Balance = u.Balance.Add(reward)
		u.TotalEarnings = u.TotalEarnings.Add(reward)
		acc = &model.Account{Balance: u.Balance, TotalEarnings: u.TotalEarnings}
		return nil
	})
	return acc, err
}

func (r *MemoryRepository) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*model.Account, error) {
	var acc *model.Account
	err := r.userLock.WithLock(ctx, userID, func() error {
		r.mu.Lock()
		defer r.mu.Unlock()

		u, ok := r.users[userID]
		if !ok {
			return ErrUserNotFound
		}
		u.Balance = u.Balance.Add(amount)
		u.TotalEarnings = u.TotalEarnings.Add(amount)
		acc = &model.Account{Balance: u.Balance, TotalEarnings: u.TotalEarnings}
		return nil
	})
	return acc, err
}

// CreateWithdrawal списывает сумму и создаёт заявку под блокировкой пользователя.
func (r *MemoryRepository) CreateWithdrawal(ctx context.Context, w *model.Withdrawal) (*model.Account, error) {
	var acc *model.Account
	err := r.userLock.WithLock(ctx, w.UserID, func() error {
		r.mu.Lock()
		defer r.mu.Unlock()

		u, ok := r.users[w.UserID]
		if !ok {
			return ErrUserNotFound
		}
		if w.Amount.GreaterThan(u.Balance) {
			return ErrInsufficientBalance
		}

		u.Balance = u.Balance.Sub(w.Amount)
		w.Status = model.WithdrawalStatusPending
		w.CreatedAt = r.now()
		stored := *w
		r.withdrawals[w.ID] = &stored

		acc = &model.Account{Balance: u.Balance, TotalEarnings: u.TotalEarnings}
		return nil
	})
	return acc, err
}

func (r *MemoryRepository) GetWithdrawal(_ context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.withdrawals[id]
	if !ok {
		return nil, ErrWithdrawalNotFound
	}
	res := *w
	return &res, nil
}

func (r *MemoryRepository) ListWithdrawalsByUser(_ context.Context, userID uuid.UUID) ([]model.Withdrawal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var res []model.Withdrawal
	for _, w := range r.withdrawals {
		if w.UserID == userID {
			res = append(res, *w)
		}
	}
	slices.SortFunc(res, func(a, b model.Withdrawal) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return res, nil
}

func (r *MemoryRepository) ListWithdrawalsByStatus(_ context.Context, status model.WithdrawalStatus) ([]model.Withdrawal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var res []model.Withdrawal
	for _, w := range r.withdrawals {
		if w.Status == status {
			res = append(res, *w)
		}
	}
	slices.SortFunc(res, func(a, b model.Withdrawal) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return res, nil
}

// transition выполняет переход заявки из pending под блокировкой владельца.
// Статус перепроверяется после захвата блокировки.
func (r *MemoryRepository) transition(ctx context.Context, id uuid.UUID, fn func(u *model.User, w *model.Withdrawal) error) (*model.Withdrawal, error) {
	r.mu.RLock()
	w, ok := r.withdrawals[id]
	var owner uuid.UUID
	if ok {
		owner = w.UserID
	}
	r.mu.RUnlock()
	if !ok {
		return nil, ErrWithdrawalNotFound
	}

	var res model.Withdrawal
	err := r.userLock.WithLock(ctx, owner, func() error {
		r.mu.Lock()
		defer r.mu.Unlock()

		if w.Status != model.WithdrawalStatusPending {
			return ErrAlreadyProcessed
		}
		if err := fn(r.users[owner], w); err != nil {
			return err
		}
		res = *w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *MemoryRepository) ApproveWithdrawal(ctx context.Context, id uuid.UUID, at time.Time) (*model.Withdrawal, error) {
	return r.transition(ctx, id, func(_ *model.User, w *model.Withdrawal) error {
		w.Status = model.WithdrawalStatusApproved
		w.ProcessedAt = &at
		return nil
	})
}

func (r *MemoryRepository) RejectWithdrawal(ctx context.Context, id uuid.UUID, at time.Time) (*model.Withdrawal, error) {
	return r.transition(ctx, id, func(u *model.User, w *model.Withdrawal) error {
		if u == nil {
			return fmt.Errorf("%w: %w", ErrRefundFailed, ErrUserNotFound)
		}
		u.Balance = u.Balance.Add(w.Amount)
		w.Status = model.WithdrawalStatusRejected
		w.ProcessedAt = &at
		return nil
	})
}

func (r *MemoryRepository) spinSnapshot() *model.SpinConfig {
	cfg := r.spin
	cfg.Segments = slices.Clone(r.spin.Segments)
	return &cfg
}

func (r *MemoryRepository) GetSpinConfig(_ context.Context) (*model.SpinConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.spinSnapshot(), nil
}

func (r *MemoryRepository) ReplaceSpinSegments(_ context.Context, segments []model.SpinSegment) (*model.SpinConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sorted := slices.Clone(segments)
	slices.SortFunc(sorted, func(a, b model.SpinSegment) int { return a.Order - b.Order })

	r.spin.Segments = sorted
	r.spin.Version++
	r.spin.UpdatedAt = r.now()
	return r.spinSnapshot(), nil
}

func (r *MemoryRepository) SetSpinActive(_ context.Context, active bool) (*model.SpinConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.spin.Active = active
	r.spin.Version++
	r.spin.UpdatedAt = r.now()
	return r.spinSnapshot(), nil
}
