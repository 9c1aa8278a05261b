// Package handler содержит HTTP-обработчики API платформы Fahari Pesa.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/faharipesa/fahari-pesa/internal/middleware"
	"github.com/faharipesa/fahari-pesa/internal/model"
	"github.com/faharipesa/fahari-pesa/internal/repository"
	"github.com/faharipesa/fahari-pesa/internal/service"
)

const timeLayout = time.RFC3339

// maxBodyBytes ограничивает тело запроса после распаковки gzip.
const maxBodyBytes = 1 << 20

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, username, password, phone string) (uuid.UUID, error)
	AuthenticateUser(ctx context.Context, username, password string) (*model.User, error)
	GetAccount(ctx context.Context, userID uuid.UUID) (*model.Account, error)
	ListPendingUsers(ctx context.Context) ([]model.User, error)
	ApproveUser(ctx context.Context, userID uuid.UUID) error

	ListAds(ctx context.Context, activeOnly bool) ([]model.Ad, error)
	ListWatchedAdIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error)
	CreateAd(ctx context.Context, title string, adType model.AdType, url string, reward decimal.Decimal) (*model.Ad, error)
	SetAdActive(ctx context.Context, adID uuid.UUID, active bool) error
	ClaimAd(ctx context.Context, userID, adID uuid.UUID, viewCount *int) (*model.Account, error)

	GetSpinConfig(ctx context.Context) (*model.SpinConfig, error)
	ClaimSpinSegment(ctx context.Context, userID uuid.UUID, version int64, order int) (decimal.Decimal, *model.Account, error)
	UpdateSpinSegments(ctx context.Context, segments []model.SpinSegment) (*model.SpinConfig, error)
	SetSpinActive(ctx context.Context, active bool) (*model.SpinConfig, error)

	RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, phone string, network model.Network, registrationName string) (*model.Withdrawal, error)
	ListUserWithdrawals(ctx context.Context, userID uuid.UUID) ([]model.Withdrawal, error)
	ListWithdrawalsByStatus(ctx context.Context, status model.WithdrawalStatus) ([]model.Withdrawal, error)
	ApproveWithdrawal(ctx context.Context, requestID uuid.UUID) (*model.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, requestID uuid.UUID) (*model.Withdrawal, error)
}

// Handler реализует HTTP-обработчики API.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	validate       *validator.Validate
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		validate:       validator.New(),
	}
}

// statusFromError сопоставляет доменные ошибки HTTP-статусам.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, repository.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, repository.ErrAlreadyClaimed),
		errors.Is(err, repository.ErrAlreadyProcessed),
		errors.Is(err, repository.ErrUserExists),
		errors.Is(err, service.ErrSpinConfigStale),
		errors.Is(err, service.ErrSpinInactive):
		return http.StatusConflict
	case errors.Is(err, repository.ErrRefundFailed):
		return http.StatusInternalServerError
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrAdNotFound),
		errors.Is(err, repository.ErrWithdrawalNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrInvalidNetwork),
		errors.Is(err, service.ErrAdInactive),
		errors.Is(err, service.ErrInvalidAd),
		errors.Is(err, service.ErrViewCountRequired),
		errors.Is(err, service.ErrSegmentNotFound),
		errors.Is(err, service.ErrInvalidSegments):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrUserNotApproved):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// writeError отдаёт клиенту текст ошибки. Внутренние ошибки логируются и не раскрываются.
func (h *Handler) writeError(w http.ResponseWriter, msg string, err error, fields ...zap.Field) {
	code := statusFromError(err)
	if code == http.StatusInternalServerError {
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(code), code)
		return
	}
	http.Error(w, err.Error(), code)
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

// decodeJSON читает тело запроса и проверяет его теги validate.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func urlUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	p, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return uuid.Nil, false
	}
	return p.UserID, true
}

type accountResponse struct {
	Balance       decimal.Decimal `json:"balance"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
}

func newAccountResponse(acc *model.Account) accountResponse {
	return accountResponse{Balance: acc.Balance, TotalEarnings: acc.TotalEarnings}
}

type withdrawalResponse struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Username    string          `json:"username"`
	Amount      decimal.Decimal `json:"amount"`
	Phone       string          `json:"phone"`
	Network     string          `json:"network"`
	Status      string          `json:"status"`
	CreatedAt   string          `json:"created_at"`
	ProcessedAt string          `json:"processed_at,omitempty"`
}

func newWithdrawalResponse(w *model.Withdrawal) withdrawalResponse {
	resp := withdrawalResponse{
		ID:        w.ID,
		UserID:    w.UserID,
		Username:  w.Username,
		Amount:    w.Amount,
		Phone:     w.Phone,
		Network:   string(w.Network),
		Status:    string(w.Status),
		CreatedAt: w.CreatedAt.Format(timeLayout),
	}
	if w.ProcessedAt != nil {
		resp.ProcessedAt = w.ProcessedAt.Format(timeLayout)
	}
	return resp
}

func (h *Handler) writeWithdrawals(w http.ResponseWriter, withdrawals []model.Withdrawal) {
	if len(withdrawals) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]withdrawalResponse, 0, len(withdrawals))
	for i := range withdrawals {
		resp = append(resp, newWithdrawalResponse(&withdrawals[i]))
	}
	h.writeJSON(w, http.StatusOK, resp)
}
