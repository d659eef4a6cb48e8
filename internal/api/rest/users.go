package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	serviceports "github.com/kevin07696/paygo-service/internal/services/ports"
)

type registerBody struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type loginBody struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

type profileBody struct {
	FullName  *string `json:"full_name"`
	Phone     *string `json:"phone"`
	AvatarURL *string `json:"avatar_url"`
}

type statusBody struct {
	IsActive *bool `json:"is_active"`
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	u, err := h.svc.Users.Register(r.Context(), serviceports.RegisterRequest{
		Email:    body.Email,
		Phone:    body.Phone,
		FullName: body.FullName,
		Password: body.Password,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, u)
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	resp, err := h.svc.Users.Login(r.Context(), serviceports.LoginRequest{Login: body.Login, Password: body.Password})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, resp)
}

// Refresh handles POST /auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	tokens, err := h.svc.Users.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, tokens)
}

// Me handles GET /auth/me and GET /users/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Users.Me(r.Context(), callerID(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, u)
}

// UpdateMe handles PUT /users/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var body profileBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	u, err := h.svc.Users.UpdateProfile(r.Context(), serviceports.UpdateProfileRequest{
		UserID:    callerID(r),
		FullName:  body.FullName,
		Phone:     body.Phone,
		AvatarURL: body.AvatarURL,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, u)
}

// MyCards handles GET /users/me/cards
func (h *Handler) MyCards(w http.ResponseWriter, r *http.Request) {
	h.ListCards(w, r)
}

// MyTransactions handles GET /users/me/transactions
func (h *Handler) MyTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilter(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	filter.UserID = callerID(r)
	h.listTransactions(w, r, filter)
}

// MyStats handles GET /users/me/stats
func (h *Handler) MyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Users.Stats(r.Context(), callerID(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, stats)
}

// ListUsers handles GET /users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pagination(r, 100)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	users, err := h.svc.Users.List(r.Context(), offset, limit)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, users)
}

// GetUser handles GET /users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Users.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, u)
}

// SetUserStatus handles PUT /users/{id}/status
func (h *Handler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if body.IsActive == nil {
		respondMessage(w, h.logger, http.StatusBadRequest, "is_active is required")
		return
	}
	u, err := h.svc.Users.SetStatus(r.Context(), mux.Vars(r)["id"], *body.IsActive)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, u)
}

// DeleteUser handles DELETE /users/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Users.Delete(r.Context(), callerID(r), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dashboard handles GET /admin/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Admin.Dashboard(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, d)
}

