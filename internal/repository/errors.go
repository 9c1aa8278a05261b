package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrUserExists возвращается при попытке создать пользователя с уже занятым именем.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если профиль пользователя не найден.
	ErrUserNotFound = errors.New("profile not found")
	// ErrAdNotFound возвращается, если объявление не найдено.
	ErrAdNotFound = errors.New("ad not found")
	// ErrAlreadyClaimed возвращается при повторном получении вознаграждения за объявление.
	ErrAlreadyClaimed = errors.New("ad reward already claimed")
	// ErrInsufficientBalance возвращается при попытке вывести сумму, превышающую баланс.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrWithdrawalNotFound возвращается, если заявка на вывод не найдена.
	ErrWithdrawalNotFound = errors.New("withdrawal request not found")
	// ErrAlreadyProcessed возвращается при попытке изменить статус обработанной заявки.
	ErrAlreadyProcessed = errors.New("withdrawal request already processed")
	// ErrRefundFailed возвращается, если не удалось вернуть средства на баланс при отклонении заявки.
	ErrRefundFailed = errors.New("refund failed")
	// ErrAmountOutOfRange возвращается, если сумма не помещается в хранилище.
	ErrAmountOutOfRange = errors.New("amount out of range")
	// ErrPersistence оборачивает любые сбои хранилища.
	ErrPersistence = errors.New("persistence error")
)

func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
