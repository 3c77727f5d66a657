package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"pingpoint/internal/adapter"
)

// sourceNames are the display names used in scan responses
var sourceNames = map[string]string{
	"auto":    "Network",
	"edgemax": "EdgeMax",
	"nmap":    "Nmap",
}

// ScanAccepted is returned when a scan has been queued
type ScanAccepted struct {
	Message string `json:"message"`
	Source  string `json:"source"`
}

func (h *Handler) handleTriggerScan(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")

	if err := h.scans.TriggerScan(source); err != nil {
		if errors.Is(err, adapter.ErrUnknownSource) {
			h.writeError(w, http.StatusNotFound, "Unknown scan source",
				source+" is not one of: "+strings.Join(h.scans.Sources(), ", "))
			return
		}
		h.logger.Error().Err(err).Str("source", source).Msg("failed to start scan")
		h.writeError(w, http.StatusInternalServerError, "Failed to start scan", err.Error())
		return
	}

	h.writeJSON(w, http.StatusAccepted, ScanAccepted{
		Message: displayName(source) + " scan initiated in the background.",
		Source:  source,
	})
}

func displayName(source string) string {
	if name, ok := sourceNames[source]; ok {
		return name
	}
	return source
}
