package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/iwvelando/loan-tracker/internal/tracker"
	"github.com/iwvelando/loan-tracker/pkg/constants"
	"github.com/iwvelando/loan-tracker/pkg/datetime"
	"github.com/iwvelando/loan-tracker/pkg/loans"
	"go.uber.org/zap"
)

type handler struct {
	tracker       *tracker.Tracker
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	currency      string
}

// Options carries the settings of the HTTP handler beyond the tracker itself.
type Options struct {
	MaxUploadSize int64
	Version       string
	Currency      string
}

// NewHandler constructs the HTTP handler that serves the loan API.
func NewHandler(t *tracker.Tracker, logger *zap.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	currency := strings.ToUpper(strings.TrimSpace(opts.Currency))
	if currency == "" {
		currency = constants.DefaultCurrency
	}

	h := &handler{
		tracker:       t,
		logger:        logger,
		maxUploadSize: opts.MaxUploadSize,
		version:       trimmedVersion,
		currency:      currency,
	}

	router := mux.NewRouter()
	router.Use(h.logRequests)

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/loans", h.handleListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans", h.handleCreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}", h.handleGetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}", h.handleUpdateLoan).Methods(http.MethodPut)
	api.HandleFunc("/loans/{id}", h.handleDeleteLoan).Methods(http.MethodDelete)
	api.HandleFunc("/loans/{id}/complete", h.handleCompleteLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/repayments", h.handleAddRepayment).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/series", h.handleSeries).Methods(http.MethodGet)

	// Overdue installment backfill
	api.HandleFunc("/sync", h.handleSync).Methods(http.MethodPost)

	// Standalone calculator, independent of stored loans
	api.HandleFunc("/emi", h.handleEMI).Methods(http.MethodGet)

	// Whole-collection backup
	api.HandleFunc("/backup", h.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/backup", h.handleImport).Methods(http.MethodPost)
	api.HandleFunc("/backup", h.handleWipe).Methods(http.MethodDelete)

	// Version endpoint for UI metadata
	api.HandleFunc("/version", h.handleVersion).Methods(http.MethodGet)

	return router
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("request served",
			zap.String("op", "server.logRequests"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// asOf reads the optional asOf query parameter, defaulting to the tracker's
// current date.
func (h *handler) asOf(r *http.Request) (datetime.Date, error) {
	value := strings.TrimSpace(r.URL.Query().Get("asOf"))
	if value == "" {
		return h.tracker.Today(), nil
	}
	date, err := datetime.Parse(value)
	if err != nil {
		return datetime.Date{}, fmt.Errorf("%w: %v", loans.ErrInvalidInput, err)
	}
	return date, nil
}

func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return fmt.Errorf("%w: malformed request body: %v", loans.ErrInvalidInput, err)
	}
	return nil
}

// statusFor maps tracker and engine errors to HTTP status codes.
func statusFor(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, loans.ErrInvalidInput), errors.Is(err, loans.ErrKindMismatch):
		return http.StatusBadRequest
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) respondFailure(w http.ResponseWriter, err error, op string) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
		return
	}
	h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	} else {
		h.logger.Info("request rejected",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	}

	h.writeJSON(w, status, map[string]string{"error": msg})
}

// writeJSON encodes payload before writing the header, so an unencodable
// payload becomes a 500 instead of a truncated success.
func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		h.logger.Error("failed to encode JSON response", zap.String("op", "server.writeJSON"), zap.Error(err))
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("failed to write JSON response", zap.String("op", "server.writeJSON"), zap.Error(err))
	}
}
