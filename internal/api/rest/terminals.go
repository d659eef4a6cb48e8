package rest

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/kevin07696/paygo-service/internal/domain"
	domainports "github.com/kevin07696/paygo-service/internal/domain/ports"
	serviceports "github.com/kevin07696/paygo-service/internal/services/ports"
)

type createTerminalBody struct {
	TerminalID       string              `json:"terminal_id"`
	Name             string              `json:"name"`
	Location         string              `json:"location"`
	Description      string              `json:"description"`
	TerminalType     domain.TerminalType `json:"terminal_type"`
	SupportsNFC      bool                `json:"supports_nfc"`
	SupportsQR       bool                `json:"supports_qr"`
	SupportsBiometry bool                `json:"supports_biometry"`
}

type updateTerminalBody struct {
	Name             *string                `json:"name"`
	Location         *string                `json:"location"`
	Description      *string                `json:"description"`
	TerminalType     *domain.TerminalType   `json:"terminal_type"`
	Status           *domain.TerminalStatus `json:"status"`
	SupportsNFC      *bool                  `json:"supports_nfc"`
	SupportsQR       *bool                  `json:"supports_qr"`
	SupportsBiometry *bool                  `json:"supports_biometry"`
}

type heartbeatBody struct {
	TerminalID      string                `json:"terminal_id,omitempty"`
	Status          domain.TerminalStatus `json:"status"`
	IPAddress       string                `json:"ip_address"`
	FirmwareVersion string                `json:"firmware_version"`
	HardwareInfo    string                `json:"hardware_info"`

	// Reported by some firmware; the server keeps its own counters.
	CurrentTransactionCount *int `json:"current_transaction_count,omitempty"`
}

type maintenanceBody struct {
	Enable *bool `json:"enable"`
}

type heartbeatResponse struct {
	TerminalID string                `json:"terminal_id"`
	Status     domain.TerminalStatus `json:"status"`
	ServerTime string                `json:"server_time"`
}

// CreateTerminal handles POST /terminals
func (h *Handler) CreateTerminal(w http.ResponseWriter, r *http.Request) {
	var body createTerminalBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	t, err := h.svc.Terminals.Create(r.Context(), serviceports.CreateTerminalRequest{
		TerminalID:       body.TerminalID,
		Name:             body.Name,
		Location:         body.Location,
		Description:      body.Description,
		TerminalType:     body.TerminalType,
		SupportsNFC:      body.SupportsNFC,
		SupportsQR:       body.SupportsQR,
		SupportsBiometry: body.SupportsBiometry,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, t)
}

// ListTerminals handles GET /terminals
func (h *Handler) ListTerminals(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pagination(r, 100)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	q := r.URL.Query()
	terminals, err := h.svc.Terminals.List(r.Context(), domainports.TerminalFilter{
		Status:       domain.TerminalStatus(q.Get("status")),
		TerminalType: domain.TerminalType(q.Get("terminal_type")),
		Offset:       offset,
		Limit:        limit,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, terminals)
}

// TerminalSummary handles GET /terminals/summary
func (h *Handler) TerminalSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Terminals.Summary(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, s)
}

// GetTerminal handles GET /terminals/{id}
func (h *Handler) GetTerminal(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Terminals.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, t)
}

// UpdateTerminal handles PUT /terminals/{id}
func (h *Handler) UpdateTerminal(w http.ResponseWriter, r *http.Request) {
	var body updateTerminalBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	t, err := h.svc.Terminals.Update(r.Context(), serviceports.UpdateTerminalRequest{
		TerminalID:       mux.Vars(r)["id"],
		Name:             body.Name,
		Location:         body.Location,
		Description:      body.Description,
		TerminalType:     body.TerminalType,
		Status:           body.Status,
		SupportsNFC:      body.SupportsNFC,
		SupportsQR:       body.SupportsQR,
		SupportsBiometry: body.SupportsBiometry,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, t)
}

// DeleteTerminal handles DELETE /terminals/{id}
func (h *Handler) DeleteTerminal(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Terminals.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetMaintenance handles POST /terminals/{id}/maintenance. Without a body
// the terminal enters maintenance.
func (h *Handler) SetMaintenance(w http.ResponseWriter, r *http.Request) {
	enable := true
	if r.ContentLength > 0 {
		var body maintenanceBody
		if err := decodeJSON(r, &body); err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		if body.Enable != nil {
			enable = *body.Enable
		}
	}
	if v, err := queryBool(r, "enable"); err != nil {
		respondError(w, r, h.logger, err)
		return
	} else if v != nil {
		enable = *v
	}

	t, err := h.svc.Terminals.SetMaintenance(r.Context(), mux.Vars(r)["id"], enable)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, t)
}

// Heartbeat handles POST /terminals/{id}/heartbeat
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var body heartbeatBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.heartbeat(w, r, mux.Vars(r)["id"], body)
}

// HeartbeatByBody handles POST /terminals/heartbeat where the terminal id is
// carried in the body
func (h *Handler) HeartbeatByBody(w http.ResponseWriter, r *http.Request) {
	var body heartbeatBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if body.TerminalID == "" {
		respondError(w, r, h.logger, domain.Validation("terminal_id", "terminal_id is required"))
		return
	}
	h.heartbeat(w, r, body.TerminalID, body)
}

func (h *Handler) heartbeat(w http.ResponseWriter, r *http.Request, terminalID string, body heartbeatBody) {
	t, err := h.svc.Terminals.Heartbeat(r.Context(), terminalID, domainports.Heartbeat{
		Status:          body.Status,
		IPAddress:       body.IPAddress,
		FirmwareVersion: body.FirmwareVersion,
		HardwareInfo:    body.HardwareInfo,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	resp := heartbeatResponse{TerminalID: t.TerminalID, Status: t.Status}
	if t.LastHeartbeat != nil {
		resp.ServerTime = t.LastHeartbeat.UTC().Format(time.RFC3339)
	}
	respondJSON(w, h.logger, http.StatusOK, resp)
}

// TerminalConfig handles GET /terminals/{id}/config
func (h *Handler) TerminalConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.Terminals.Config(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, cfg)
}
