package handler

import (
	"errors"
	"io"
	"net/http"

	"pingpoint/internal/config"
)

const maxConfigBody = 64 << 10

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.cfg.Get().Redacted())
}

// handlePutConfig merges the body onto the running config, saves it and
// applies it. Secrets left empty or redacted keep their current value.
func (h *Handler) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxConfigBody))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	next, err := h.cfg.Get().ApplyUpdate(body)
	if err != nil {
		if errors.Is(err, config.ErrInvalid) {
			h.writeError(w, http.StatusBadRequest, "Invalid configuration", err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to apply configuration", err.Error())
		return
	}

	if err := h.cfg.Save(next); err != nil {
		h.logger.Error().Err(err).Msg("failed to save config")
		h.writeError(w, http.StatusInternalServerError, "Failed to save configuration", err.Error())
		return
	}

	h.logger.Info().Msg("configuration updated")
	h.writeJSON(w, http.StatusOK, next.Redacted())
}
