package handler

import (
	"fmt"
	"net/http"

	"pingpoint/internal/codec"
)

// handleExport writes the inventory as json, yaml or an Ansible inventory
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	exporter, err := codec.ForFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Unsupported format", err.Error())
		return
	}

	ext := exporter.Format()
	if ext == "ansible-inventory" {
		ext = "yml"
	}
	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=devices.%s", ext))

	if err := exporter.Export(h.inv.ListDevices(), w); err != nil {
		// Headers are already sent
		h.logger.Error().Err(err).Str("format", exporter.Format()).Msg("failed to export inventory")
	}
}
