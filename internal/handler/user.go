package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/faharipesa/fahari-pesa/internal/model"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
}

type registerResponse struct {
	ID       uuid.UUID `json:"id"`
	Approved bool      `json:"approved"`
}

// Register регистрирует пользователя. Вход станет доступен после подтверждения администратором.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	id, err := h.service.RegisterUser(r.Context(), req.Username, req.Password, req.Phone)
	if err != nil {
		h.writeError(w, "register user error", err, zap.String("username", req.Username))
		return
	}

	h.writeJSON(w, http.StatusAccepted, registerResponse{ID: id, Approved: false})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login выполняет аутентификацию пользователя и устанавливает cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	u, err := h.service.AuthenticateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, "login user error", err)
		return
	}

	if err := h.authMiddleware.SetAuthCookie(w, u.ID, u.Role); err != nil {
		h.writeError(w, "issue token error", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetBalance возвращает баланс текущего пользователя.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	acc, err := h.service.GetAccount(r.Context(), userID)
	if err != nil {
		h.writeError(w, "get balance error", err, zap.Stringer("userID", userID))
		return
	}

	h.writeJSON(w, http.StatusOK, newAccountResponse(acc))
}

type adResponse struct {
	ID      uuid.UUID       `json:"id"`
	Title   string          `json:"title"`
	Type    string          `json:"type"`
	URL     string          `json:"url,omitempty"`
	Reward  decimal.Decimal `json:"reward"`
	Active  bool            `json:"active"`
	Watched bool            `json:"watched"`
}

// GetAds возвращает активные объявления с отметкой о полученных вознаграждениях.
func (h *Handler) GetAds(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	ads, err := h.service.ListAds(r.Context(), true)
	if err != nil {
		h.writeError(w, "list ads error", err)
		return
	}

	if len(ads) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	watched, err := h.service.ListWatchedAdIDs(r.Context(), userID)
	if err != nil {
		h.writeError(w, "list watched ads error", err, zap.Stringer("userID", userID))
		return
	}

	resp := make([]adResponse, 0, len(ads))
	for _, ad := range ads {
		resp = append(resp, adResponse{
			ID:      ad.ID,
			Title:   ad.Title,
			Type:    string(ad.Type),
			URL:     ad.URL,
			Reward:  ad.Reward,
			Active:  ad.Active,
			Watched: watched[ad.ID],
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type claimAdRequest struct {
	ViewCount *int `json:"view_count" validate:"omitempty,min=0"`
}

// ClaimAd начисляет вознаграждение за просмотр объявления.
func (h *Handler) ClaimAd(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	adID, ok := urlUUID(w, r, "adID")
	if !ok {
		return
	}

	var req claimAdRequest
	if r.ContentLength != 0 && !h.decodeJSON(w, r, &req) {
		return
	}

	acc, err := h.service.ClaimAd(r.Context(), userID, adID, req.ViewCount)
	if err != nil {
		h.writeError(w, "claim ad error", err, zap.Stringer("userID", userID), zap.Stringer("adID", adID))
		return
	}

	h.writeJSON(w, http.StatusOK, newAccountResponse(acc))
}

// GetSpin возвращает конфигурацию колеса призов.
func (h *Handler) GetSpin(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.GetSpinConfig(r.Context())
	if err != nil {
		h.writeError(w, "get spin config error", err)
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

type claimSpinRequest struct {
	Version int64 `json:"version" validate:"min=0"`
	Order   *int  `json:"order" validate:"required"`
}

type claimSpinResponse struct {
	Prize decimal.Decimal `json:"prize"`
	accountResponse
}

// ClaimSpin начисляет приз выпавшего сектора колеса.
func (h *Handler) ClaimSpin(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req claimSpinRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	prize, acc, err := h.service.ClaimSpinSegment(r.Context(), userID, req.Version, *req.Order)
	if err != nil {
		h.writeError(w, "claim spin error", err, zap.Stringer("userID", userID))
		return
	}

	// Пустой сектор ничего не начисляет, баланс берём как есть.
	if acc == nil {
		acc, err = h.service.GetAccount(r.Context(), userID)
		if err != nil {
			h.writeError(w, "get balance error", err, zap.Stringer("userID", userID))
			return
		}
	}

	h.writeJSON(w, http.StatusOK, claimSpinResponse{Prize: prize, accountResponse: newAccountResponse(acc)})
}

type withdrawRequest struct {
	Amount           decimal.Decimal `json:"amount"`
	Phone            string          `json:"phone" validate:"required"`
	Network          string          `json:"network" validate:"required,oneof=mpesa airtel"`
	RegistrationName string          `json:"registration_name" validate:"omitempty,max=64"`
}

// Withdraw создаёт заявку на вывод средств для текущего пользователя.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req withdrawRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	wd, err := h.service.RequestWithdrawal(r.Context(), userID, req.Amount, req.Phone, model.Network(req.Network), req.RegistrationName)
	if err != nil {
		h.writeError(w, "withdraw error", err, zap.Stringer("userID", userID))
		return
	}

	h.writeJSON(w, http.StatusCreated, newWithdrawalResponse(wd))
}

// GetWithdrawals возвращает историю заявок текущего пользователя.
func (h *Handler) GetWithdrawals(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	withdrawals, err := h.service.ListUserWithdrawals(r.Context(), userID)
	if err != nil {
		h.writeError(w, "get withdrawals error", err, zap.Stringer("userID", userID))
		return
	}

	h.writeWithdrawals(w, withdrawals)
}
