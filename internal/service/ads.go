package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/faharipesa/fahari-pesa/internal/model"
)

// CreateAd добавляет объявление в каталог. Новое объявление сразу активно.
func (s *Service) CreateAd(ctx context.Context, title string, adType model.AdType, url string, reward decimal.Decimal) (*model.Ad, error) {
	title = strings.TrimSpace(title)
	if title == "" || !adType.Valid() {
		return nil, ErrInvalidAd
	}
	if !validCredit(reward) {
		return nil, ErrInvalidAmount
	}

	ad := &model.Ad{
		ID:     uuid.New(),
		Title:  title,
		Type:   adType,
		URL:    url,
		Reward: reward,
		Active: true,
	}
	if err := s.repo.CreateAd(ctx, ad); err != nil {
		return nil, err
	}

	s.logger.Info("ad created", zap.Stringer("adID", ad.ID), zap.String("type", string(adType)))
	return ad, nil
}

// ListAds возвращает объявления. Пользователям показываются только активные.
func (s *Service) ListAds(ctx context.Context, activeOnly bool) ([]model.Ad, error) {
	return s.repo.ListAds(ctx, activeOnly)
}

// SetAdActive включает или снимает объявление с показа.
func (s *Service) SetAdActive(ctx context.Context, adID uuid.UUID, active bool) error {
	return s.repo.SetAdActive(ctx, adID, active)
}

// ListWatchedAdIDs возвращает множество объявлений, за которые пользователь уже получил вознаграждение.
func (s *Service) ListWatchedAdIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	watched, err := s.repo.ListWatchedAds(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := make(map[uuid.UUID]bool, len(watched))
	for _, w := range watched {
		res[w.AdID] = true
	}
	return res, nil
}
