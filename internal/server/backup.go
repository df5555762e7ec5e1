package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/iwvelando/loan-tracker/pkg/constants"
	"go.uber.org/zap"
)

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.tracker.Export(&buf); err != nil {
		h.respondFailure(w, err, "server.handleExport")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", constants.DefaultDataFile))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleImport replaces the collection with an uploaded backup. The backup
// is accepted either as the "file" field of a multipart form or as the raw
// request body.
func (h *handler) handleImport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleImport"

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	var buf bytes.Buffer
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				h.respondFailure(w, err, op)
				return
			}
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
			return
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, "missing backup file", op)
			return
		}
		defer func() {
			if closeErr := file.Close(); closeErr != nil {
				h.logger.Warn("failed to close uploaded file",
					zap.String("op", op),
					zap.Error(closeErr),
				)
			}
		}()

		if _, err := io.Copy(&buf, file); err != nil {
			h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to read backup: %v", err), op)
			return
		}
	} else if _, err := io.Copy(&buf, r.Body); err != nil {
		h.respondFailure(w, err, op)
		return
	}

	count, err := h.tracker.Import(r.Context(), &buf)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"imported": count})
}

func (h *handler) handleWipe(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.Wipe(r.Context()); err != nil {
		h.respondFailure(w, err, "server.handleWipe")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
