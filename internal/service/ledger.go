package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/faharipesa/fahari-pesa/internal/model"
	"github.com/faharipesa/fahari-pesa/internal/validation"
)

// ClaimAdReward начисляет вознаграждение за объявление не более одного раза на пару
// (пользователь, объявление). Запись о просмотре и начисление атомарны.
func (s *Service) ClaimAdReward(ctx context.Context, userID, adID uuid.UUID, reward decimal.Decimal, viewCount *int) (*model.Account, error) {
	if !validCredit(reward) {
		return nil, ErrInvalidAmount
	}

	acc, err := s.repo.ClaimAdReward(ctx, model.WatchedAd{
		UserID:    userID,
		AdID:      adID,
		ViewCount: viewCount,
	}, reward)
	if err != nil {
		return nil, err
	}

	s.logger.Info("ad reward credited",
		zap.Stringer("userID", userID),
		zap.Stringer("adID", adID),
		zap.Stringer("reward", reward),
	)
	return acc, nil
}

// ClaimAd загружает активное объявление и начисляет его вознаграждение.
func (s *Service) ClaimAd(ctx context.Context, userID, adID uuid.UUID, viewCount *int) (*model.Account, error) {
	ad, err := s.repo.GetAd(ctx, adID)
	if err != nil {
		return nil, err
	}
	if !ad.Active {
		return nil, ErrAdInactive
	}
	if ad.Type == model.AdTypeShare && (viewCount == nil || *viewCount <= 0) {
		return nil, ErrViewCountRequired
	}
	return s.ClaimAdReward(ctx, userID, adID, ad.Reward, viewCount)
}

// ClaimSpinPrize начисляет выигрыш колеса. Нулевой выигрыш баланс не меняет и возвращает
// nil вместо счёта, но профиль пользователя всё равно должен существовать.
func (s *Service) ClaimSpinPrize(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*model.Account, error) {
	if !validCredit(amount) {
		return nil, ErrInvalidAmount
	}
	if amount.IsZero() {
		if _, err := s.repo.GetUser(ctx, userID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	acc, err := s.repo.Credit(ctx, userID, amount)
	if err != nil {
		return nil, err
	}

	s.logger.Info("spin prize credited",
		zap.Stringer("userID", userID),
		zap.Stringer("amount", amount),
	)
	return acc, nil
}

// ClaimSpinSegment начисляет приз выпавшего сектора. Клиент передаёт версию конфигурации,
// по которой рисовал колесо; при расхождении возвращается ErrSpinConfigStale.
// Конфигурация читается из репозитория: кэш может отставать на версию.
func (s *Service) ClaimSpinSegment(ctx context.Context, userID uuid.UUID, version int64, order int) (decimal.Decimal, *model.Account, error) {
	cfg, err := s.repo.GetSpinConfig(ctx)
	if err != nil {
		return decimal.Zero, nil, err
	}
	if !cfg.Active {
		return decimal.Zero, nil, ErrSpinInactive
	}
	if cfg.Version != version {
		return decimal.Zero, nil, ErrSpinConfigStale
	}

	segment, ok := cfg.Segment(order)
	if !ok {
		return decimal.Zero, nil, ErrSegmentNotFound
	}

	acc, err := s.ClaimSpinPrize(ctx, userID, segment.Prize)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return segment.Prize, acc, nil
}

// RequestWithdrawal списывает сумму с баланса и создаёт заявку в статусе pending.
// Если registrationName пуст, в заявку попадает текущее имя пользователя.
func (s *Service) RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, phone string, network model.Network, registrationName string) (*model.Withdrawal, error) {
	if !validAmount(amount) {
		return nil, ErrInvalidAmount
	}

	normalized, ok := validation.NormalizePhone(phone)
	if !ok {
		return nil, ErrInvalidPhone
	}

	if !validation.IsValidNetwork(network) {
		return nil, ErrInvalidNetwork
	}

	if registrationName == "" {
		u, err := s.repo.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		registrationName = u.Username
	}

	w := &model.Withdrawal{
		ID:       uuid.New(),
		UserID:   userID,
		Username: registrationName,
		Amount:   amount,
		Phone:    normalized,
		Network:  network,
	}

	acc, err := s.repo.CreateWithdrawal(ctx, w)
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal requested",
		zap.Stringer("withdrawalID", w.ID),
		zap.Stringer("userID", userID),
		zap.Stringer("amount", amount),
		zap.Stringer("balance", acc.Balance),
	)
	return w, nil
}

// ApproveWithdrawal подтверждает выплату по заявке. Баланс не меняется:
// сумма была списана при создании заявки.
func (s *Service) ApproveWithdrawal(ctx context.Context, requestID uuid.UUID) (*model.Withdrawal, error) {
	w, err := s.repo.ApproveWithdrawal(ctx, requestID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal approved",
		zap.Stringer("withdrawalID", w.ID),
		zap.Stringer("userID", w.UserID),
		zap.Stringer("amount", w.Amount),
	)
	return w, nil
}

// RejectWithdrawal отклоняет заявку и возвращает сумму на баланс пользователя.
func (s *Service) RejectWithdrawal(ctx context.Context, requestID uuid.UUID) (*model.Withdrawal, error) {
	w, err := s.repo.RejectWithdrawal(ctx, requestID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal rejected, amount refunded",
		zap.Stringer("withdrawalID", w.ID),
		zap.Stringer("userID", w.UserID),
		zap.Stringer("amount", w.Amount),
	)
	return w, nil
}

// GetWithdrawal возвращает заявку на вывод по идентификатору.
func (s *Service) GetWithdrawal(ctx context.Context, requestID uuid.UUID) (*model.Withdrawal, error) {
	return s.repo.GetWithdrawal(ctx, requestID)
}

// ListUserWithdrawals возвращает историю заявок пользователя.
func (s *Service) ListUserWithdrawals(ctx context.Context, userID uuid.UUID) ([]model.Withdrawal, error) {
	return s.repo.ListWithdrawalsByUser(ctx, userID)
}

// ListWithdrawalsByStatus возвращает заявки в указанном статусе для администратора.
func (s *Service) ListWithdrawalsByStatus(ctx context.Context, status model.WithdrawalStatus) ([]model.Withdrawal, error) {
	return s.repo.ListWithdrawalsByStatus(ctx, status)
}
