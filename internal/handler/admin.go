package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/faharipesa/fahari-pesa/internal/model"
)

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt string    `json:"created_at"`
}

// GetPendingUsers возвращает пользователей, ожидающих подтверждения.
func (h *Handler) GetPendingUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListPendingUsers(r.Context())
	if err != nil {
		h.writeError(w, "list pending users error", err)
		return
	}

	if len(users) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, userResponse{
			ID:        u.ID,
			Username:  u.Username,
			Phone:     u.Phone,
			CreatedAt: u.CreatedAt.Format(timeLayout),
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// ApproveUser открывает пользователю доступ к платформе.
func (h *Handler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlUUID(w, r, "userID")
	if !ok {
		return
	}

	if err := h.service.ApproveUser(r.Context(), userID); err != nil {
		h.writeError(w, "approve user error", err, zap.Stringer("userID", userID))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetAllAds возвращает все объявления, включая отключённые.
func (h *Handler) GetAllAds(w http.ResponseWriter, r *http.Request) {
	ads, err := h.service.ListAds(r.Context(), false)
	if err != nil {
		h.writeError(w, "list ads error", err)
		return
	}

	if len(ads) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]adResponse, 0, len(ads))
	for _, ad := range ads {
		resp = append(resp, adResponse{
			ID:     ad.ID,
			Title:  ad.Title,
			Type:   string(ad.Type),
			URL:    ad.URL,
			Reward: ad.Reward,
			Active: ad.Active,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type createAdRequest struct {
	Title  string          `json:"title" validate:"required,max=200"`
	Type   string          `json:"type" validate:"required,oneof=video share link"`
	URL    string          `json:"url" validate:"omitempty,url"`
	Reward decimal.Decimal `json:"reward"`
}

// CreateAd добавляет новое рекламное объявление.
func (h *Handler) CreateAd(w http.ResponseWriter, r *http.Request) {
	var req createAdRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	ad, err := h.service.CreateAd(r.Context(), req.Title, model.AdType(req.Type), req.URL, req.Reward)
	if err != nil {
		h.writeError(w, "create ad error", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, adResponse{
		ID:     ad.ID,
		Title:  ad.Title,
		Type:   string(ad.Type),
		URL:    ad.URL,
		Reward: ad.Reward,
		Active: ad.Active,
	})
}

type activeRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// SetAdActive включает или отключает объявление.
func (h *Handler) SetAdActive(w http.ResponseWriter, r *http.Request) {
	adID, ok := urlUUID(w, r, "adID")
	if !ok {
		return
	}

	var req activeRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.SetAdActive(r.Context(), adID, *req.Active); err != nil {
		h.writeError(w, "set ad active error", err, zap.Stringer("adID", adID))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetWithdrawalsByStatus возвращает заявки с заданным статусом, по умолчанию ожидающие.
func (h *Handler) GetWithdrawalsByStatus(w http.ResponseWriter, r *http.Request) {
	status := model.WithdrawalStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = model.WithdrawalStatusPending
	}

	switch status {
	case model.WithdrawalStatusPending, model.WithdrawalStatusApproved, model.WithdrawalStatusRejected:
	default:
		http.Error(w, "unknown withdrawal status", http.StatusBadRequest)
		return
	}

	withdrawals, err := h.service.ListWithdrawalsByStatus(r.Context(), status)
	if err != nil {
		h.writeError(w, "list withdrawals error", err, zap.String("status", string(status)))
		return
	}

	h.writeWithdrawals(w, withdrawals)
}

// ApproveWithdrawal подтверждает выплату по заявке.
func (h *Handler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "withdrawalID")
	if !ok {
		return
	}

	wd, err := h.service.ApproveWithdrawal(r.Context(), id)
	if err != nil {
		h.writeError(w, "approve withdrawal error", err, zap.Stringer("withdrawalID", id))
		return
	}

	h.writeJSON(w, http.StatusOK, newWithdrawalResponse(wd))
}

// RejectWithdrawal отклоняет заявку и возвращает средства на баланс.
func (h *Handler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "withdrawalID")
	if !ok {
		return
	}

	wd, err := h.service.RejectWithdrawal(r.Context(), id)
	if err != nil {
		h.writeError(w, "reject withdrawal error", err, zap.Stringer("withdrawalID", id))
		return
	}

	h.writeJSON(w, http.StatusOK, newWithdrawalResponse(wd))
}

type spinSegmentRequest struct {
	Label string          `json:"label" validate:"required,max=64"`
	Color string          `json:"color" validate:"required,iscolor"`
	Order *int            `json:"order" validate:"required,min=0"`
	Prize decimal.Decimal `json:"prize"`
}

type updateSpinRequest struct {
	Segments []spinSegmentRequest `json:"segments" validate:"required,min=1,dive"`
}

// UpdateSpin заменяет набор секторов колеса призов.
func (h *Handler) UpdateSpin(w http.ResponseWriter, r *http.Request) {
	var req updateSpinRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	segments := make([]model.SpinSegment, 0, len(req.Segments))
	for _, s := range req.Segments {
		segments = append(segments, model.SpinSegment{
			Label: s.Label,
			Color: s.Color,
			Order: *s.Order,
			Prize: s.Prize,
		})
	}

	cfg, err := h.service.UpdateSpinSegments(r.Context(), segments)
	if err != nil {
		h.writeError(w, "update spin segments error", err)
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

// SetSpinActive включает или отключает колесо призов.
func (h *Handler) SetSpinActive(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	cfg, err := h.service.SetSpinActive(r.Context(), *req.Active)
	if err != nil {
		h.writeError(w, "set spin active error", err)
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}
