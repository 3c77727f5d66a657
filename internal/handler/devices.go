package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pingpoint/internal/service"
)

// DeviceUpdate is the body of PUT /api/device/{mac}
type DeviceUpdate struct {
	FriendlyName   string `json:"friendly_name"`
	Notes          string `json:"notes"`
	AlertOnOffline bool   `json:"alert_on_offline"`
}

func (h *Handler) handleListDevices(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.inv.ListDevices())
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.inv.ListEvents())
}

func (h *Handler) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "mac")

	var req DeviceUpdate
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	device, err := h.inv.UpdateUserFields(r.Context(), mac, req.FriendlyName, req.Notes, req.AlertOnOffline)
	if err != nil {
		if errors.Is(err, service.ErrDeviceNotFound) {
			h.writeError(w, http.StatusNotFound, "Device not found", mac)
			return
		}
		h.logger.Error().Err(err).Str("mac", mac).Msg("failed to update device")
		h.writeError(w, http.StatusInternalServerError, "Failed to update device", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, device)
}
