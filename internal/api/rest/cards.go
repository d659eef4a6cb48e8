package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kevin07696/paygo-service/internal/domain"
	serviceports "github.com/kevin07696/paygo-service/internal/services/ports"
)

type addCardBody struct {
	CardNumber  string          `json:"card_number"`
	HolderName  string          `json:"card_holder_name"`
	CVV         string          `json:"cvv"`
	CardType    domain.CardType `json:"card_type"`
	ExpiryMonth int             `json:"expiry_month"`
	ExpiryYear  int             `json:"expiry_year"`
}

type updateCardBody struct {
	HolderName *string `json:"card_holder_name"`
	IsActive   *bool   `json:"is_active"`
	IsPrimary  *bool   `json:"is_primary"`
}

type bindingBody struct {
	BankCode  string `json:"bank_code"`
	ReturnURL string `json:"return_url"`
}

// AddCard handles POST /cards
func (h *Handler) AddCard(w http.ResponseWriter, r *http.Request) {
	var body addCardBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	c, err := h.svc.Cards.AddCard(r.Context(), serviceports.AddCardRequest{
		UserID:      callerID(r),
		CardNumber:  body.CardNumber,
		HolderName:  body.HolderName,
		CVV:         body.CVV,
		CardType:    body.CardType,
		ExpiryMonth: body.ExpiryMonth,
		ExpiryYear:  body.ExpiryYear,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, c)
}

// ListCards handles GET /cards. Cards are always scoped to the caller.
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := queryBool(r, "active_only")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	cards, err := h.svc.Cards.ListCards(r.Context(), callerID(r), activeOnly != nil && *activeOnly)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if cards == nil {
		cards = []*domain.Card{}
	}
	respondJSON(w, h.logger, http.StatusOK, cards)
}

// CardStats handles GET /cards/stats/summary. Staff get figures across
// every user.
func (h *Handler) CardStats(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	if isStaff(r) {
		userID = ""
	}
	stats, err := h.svc.Cards.Stats(r.Context(), userID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, stats)
}

// BindingRequest handles POST /cards/binding-request
func (h *Handler) BindingRequest(w http.ResponseWriter, r *http.Request) {
	var body bindingBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	resp, err := h.svc.Cards.BindingRequest(r.Context(), serviceports.BindingRequest{
		UserID:    callerID(r),
		BankCode:  body.BankCode,
		ReturnURL: body.ReturnURL,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, resp)
}

// GetCard handles GET /cards/{id}
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Cards.GetCard(r.Context(), callerID(r), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, c)
}

// UpdateCard handles PUT /cards/{id}
func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	var body updateCardBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	c, err := h.svc.Cards.UpdateCard(r.Context(), serviceports.UpdateCardRequest{
		UserID:     callerID(r),
		CardID:     mux.Vars(r)["id"],
		HolderName: body.HolderName,
		IsActive:   body.IsActive,
		IsPrimary:  body.IsPrimary,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, c)
}

// DeleteCard handles DELETE /cards/{id}
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cards.DeleteCard(r.Context(), callerID(r), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetPrimaryCard handles POST /cards/{id}/set-primary
func (h *Handler) SetPrimaryCard(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Cards.SetPrimary(r.Context(), callerID(r), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, c)
}

// VerifyCard handles POST /cards/{id}/verify
func (h *Handler) VerifyCard(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Cards.VerifyCard(r.Context(), callerID(r), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, v)
}
