// Package model содержит доменные сущности платформы Fahari Pesa.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role описывает роль пользователя.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User представляет учётную запись пользователя вместе с его балансом.
type User struct {
	ID            uuid.UUID
	Username      string
	PasswordHash  []byte
	Phone         string
	Role          Role
	Approved      bool
	Balance       decimal.Decimal
	TotalEarnings decimal.Decimal
	CreatedAt     time.Time
}

// Account содержит баланс пользователя и сумму всех начислений.
type Account struct {
	Balance       decimal.Decimal `json:"balance"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
}

// AdType описывает тип рекламного объявления.
type AdType string

const (
	AdTypeVideo AdType = "video"
	AdTypeShare AdType = "share"
	AdTypeLink  AdType = "link"
)

// Valid сообщает, относится ли тип к поддерживаемому перечислению.
func (t AdType) Valid() bool {
	switch t {
	case AdTypeVideo, AdTypeShare, AdTypeLink:
		return true
	}
	return false
}

// Ad описывает рекламное объявление, за просмотр которого начисляется вознаграждение.
type Ad struct {
	ID        uuid.UUID
	Title     string
	Type      AdType
	URL       string
	Reward    decimal.Decimal
	Active    bool
	CreatedAt time.Time
}

// WatchedAd фиксирует факт получения вознаграждения за объявление.
type WatchedAd struct {
	UserID    uuid.UUID
	AdID      uuid.UUID
	ViewCount *int
	CreatedAt time.Time
}

// WithdrawalStatus описывает состояние заявки на вывод средств.
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// Network описывает платёжную сеть мобильных денег.
type Network string

const (
	NetworkMpesa  Network = "mpesa"
	NetworkAirtel Network = "airtel"
)

// Withdrawal описывает заявку пользователя на вывод средств.
type Withdrawal struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Username    string
	Amount      decimal.Decimal
	Phone       string
	Network     Network
	Status      WithdrawalStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// SpinSegment описывает сектор колеса призов.
type SpinSegment struct {
	Label string          `json:"label"`
	Color string          `json:"color"`
	Order int             `json:"order"`
	Prize decimal.Decimal `json:"prize"`
}

// SpinConfig содержит текущую конфигурацию колеса призов.
type SpinConfig struct {
	Segments  []SpinSegment `json:"segments"`
	Active    bool          `json:"active"`
	Version   int64         `json:"version"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Segment возвращает сектор с указанным порядковым номером.
func (c *SpinConfig) Segment(order int) (SpinSegment, bool) {
	for _, s := range c.Segments {
		if s.Order == order {
			return s, true
		}
	}
	return SpinSegment{}, false
}
