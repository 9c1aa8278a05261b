// Package lock предоставляет блокировки на уровне пользователя для операций с балансом.
package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type userMutex struct {
	ch   chan struct{}
	refs int
}

// UserLock сериализует изменения баланса одного пользователя.
// Операции разных пользователей выполняются параллельно.
type UserLock struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*userMutex
}

// NewUserLock создаёт новый экземпляр UserLock.
func NewUserLock() *UserLock {
	return &UserLock{
		locks: make(map[uuid.UUID]*userMutex),
	}
}

func (ul *UserLock) acquireRef(userID uuid.UUID) *userMutex {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	m, ok := ul.locks[userID]
	if !ok {
		m = &userMutex{ch: make(chan struct{}, 1)}
		ul.locks[userID] = m
	}
	m.refs++
	return m
}

func (ul *UserLock) releaseRef(userID uuid.UUID, m *userMutex) {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(ul.locks, userID)
	}
}

// Lock захватывает блокировку пользователя, ожидая не дольше, чем живёт ctx.
func (ul *UserLock) Lock(ctx context.Context, userID uuid.UUID) error {
	m := ul.acquireRef(userID)

	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		ul.releaseRef(userID, m)
		return ctx.Err()
	}
}

// Unlock освобождает блокировку пользователя.
func (ul *UserLock) Unlock(userID uuid.UUID) {
	ul.mu.Lock()
	m, ok := ul.locks[userID]
	ul.mu.Unlock()
	if !ok {
		return
	}

	<-m.ch
	ul.releaseRef(userID, m)
}

// WithLock выполняет fn, удерживая блокировку пользователя.
func (ul *UserLock) WithLock(ctx context.Context, userID uuid.UUID, fn func() error) error {
	if err := ul.Lock(ctx, userID); err != nil {
		return err
	}
	defer ul.Unlock(userID)
	return fn()
}

// Held возвращает число пользователей, для которых сейчас есть запись блокировки.
func (ul *UserLock) Held() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.locks)
}
