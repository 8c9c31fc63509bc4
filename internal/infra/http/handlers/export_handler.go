package handlers

import (
	"bytes"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type ExportHandler struct {
	Exports *usecase.ExportUseCase
	Log     *zap.Logger
}

func NewExportHandler(exports *usecase.ExportUseCase, log *zap.Logger) *ExportHandler {
	return &ExportHandler{Exports: exports, Log: log}
}

// Export buffers the file so a failure halfway through can still be
// reported with the JSON error envelope.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if !h.Exports.Allow(uid) {
		writeErrorResponse(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many exports, try again later")
		return
	}

	var in usecase.ExportInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.Exports.Validate(&in); err != nil {
		writeError(w, h.Log, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.Exports.Export(r.Context(), uid, in, &buf); err != nil {
		writeError(w, h.Log, r, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if in.Format == "json" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+h.Exports.Filename(in)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
