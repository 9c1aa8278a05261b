package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/faharipesa/fahari-pesa/internal/model"
)

// GetSpinConfig возвращает конфигурацию колеса, по возможности из кэша.
func (s *Service) GetSpinConfig(ctx context.Context) (*model.SpinConfig, error) {
	if s.cache != nil {
		cfg, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("spin cache read failed", zap.Error(err))
		} else if cfg != nil {
			return cfg, nil
		}
	}

	cfg, err := s.repo.GetSpinConfig(ctx)
	if err != nil {
		return nil, err
	}
	s.storeSpinConfig(ctx, cfg)
	return cfg, nil
}

func (s *Service) storeSpinConfig(ctx context.Context, cfg *model.SpinConfig) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cfg); err != nil {
		s.logger.Warn("spin cache write failed", zap.Error(err), zap.Int64("version", cfg.Version))
	}
}

// UpdateSpinSegments заменяет сектора колеса. Порядковые номера должны быть уникальны.
func (s *Service) UpdateSpinSegments(ctx context.Context, segments []model.SpinSegment) (*model.SpinConfig, error) {
	seen := make(map[int]bool, len(segments))
	for _, seg := range segments {
		if strings.TrimSpace(seg.Label) == "" || seen[seg.Order] {
			return nil, ErrInvalidSegments
		}
		if !validCredit(seg.Prize) {
			return nil, ErrInvalidSegments
		}
		seen[seg.Order] = true
	}

	cfg, err := s.repo.ReplaceSpinSegments(ctx, segments)
	if err != nil {
		return nil, err
	}
	s.storeSpinConfig(ctx, cfg)

	s.logger.Info("spin segments updated", zap.Int("segments", len(cfg.Segments)), zap.Int64("version", cfg.Version))
	return cfg, nil
}

// SetSpinActive включает или выключает колесо.
func (s *Service) SetSpinActive(ctx context.Context, active bool) (*model.SpinConfig, error) {
	cfg, err := s.repo.SetSpinActive(ctx, active)
	if err != nil {
		return nil, err
	}
	s.storeSpinConfig(ctx, cfg)

	s.logger.Info("spin wheel toggled", zap.Bool("active", active), zap.Int64("version", cfg.Version))
	return cfg, nil
}
