package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/faharipesa/fahari-pesa/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware платформы.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/user/register", h.Register)
		r.Post("/user/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/user/balance", h.GetBalance)
			r.Post("/user/withdrawals", h.Withdraw)
			r.Get("/user/withdrawals", h.GetWithdrawals)

			r.Get("/ads", h.GetAds)
			r.Post("/ads/{adID}/claim", h.ClaimAd)

			r.Get("/spin", h.GetSpin)
			r.Post("/spin/claim", h.ClaimSpin)

			r.Route("/admin", func(r chi.Router) {
				r.Use(custommiddleware.RequireAdmin)

				r.Get("/users/pending", h.GetPendingUsers)
				r.Post("/users/{userID}/approve", h.ApproveUser)

				r.Get("/ads", h.GetAllAds)
				r.Post("/ads", h.CreateAd)
				r.Post("/ads/{adID}/active", h.SetAdActive)

				r.Get("/withdrawals", h.GetWithdrawalsByStatus)
				r.Post("/withdrawals/{withdrawalID}/approve", h.ApproveWithdrawal)
				r.Post("/withdrawals/{withdrawalID}/reject", h.RejectWithdrawal)

				r.Put("/spin", h.UpdateSpin)
				r.Post("/spin/active", h.SetSpinActive)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
