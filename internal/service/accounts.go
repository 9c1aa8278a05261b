package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/faharipesa/fahari-pesa/internal/model"
	"github.com/faharipesa/fahari-pesa/internal/repository"
	"github.com/faharipesa/fahari-pesa/internal/validation"
)

// RegisterUser регистрирует нового пользователя. Учётная запись ждёт подтверждения администратором.
func (s *Service) RegisterUser(ctx context.Context, username, password, phone string) (uuid.UUID, error) {
	if phone != "" {
		normalized, ok := validation.NormalizePhone(phone)
		if !ok {
			return uuid.Nil, ErrInvalidPhone
		}
		phone = normalized
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return uuid.Nil, err
	}

	u := &model.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hashed,
		Phone:        phone,
		Role:         model.RoleUser,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return uuid.Nil, err
	}
	return u.ID, nil
}

// EnsureAdmin создаёт подтверждённого администратора, если пользователя с таким именем ещё нет.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := s.repo.GetUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return err
	}

	err = s.repo.CreateUser(ctx, &model.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hashed,
		Role:         model.RoleAdmin,
		Approved:     true,
	})
	if err != nil && !errors.Is(err, repository.ErrUserExists) {
		return err
	}
	s.logger.Info("admin account ensured", zap.String("username", username))
	return nil
}

// AuthenticateUser проверяет имя и пароль и возвращает пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !u.Approved {
		return nil, ErrUserNotApproved
	}

	return u, nil
}

func hashPassword(password string) ([]byte, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hashed, nil
}

// ListPendingUsers возвращает регистрации, ожидающие подтверждения.
func (s *Service) ListPendingUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsersByApproval(ctx, false)
}

// ApproveUser подтверждает регистрацию пользователя.
func (s *Service) ApproveUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.SetUserApproved(ctx, userID, true); err != nil {
		return err
	}
	s.logger.Info("registration approved", zap.Stringer("userID", userID))
	return nil
}

// GetAccount возвращает баланс и общий заработок пользователя.
func (s *Service) GetAccount(ctx context.Context, userID uuid.UUID) (*model.Account, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.Account{
		Balance:       u.Balance,
		TotalEarnings: u.TotalEarnings,
	}, nil
}
