package server

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/iwvelando/loan-tracker/internal/tracker"
	"github.com/iwvelando/loan-tracker/pkg/format"
	"github.com/iwvelando/loan-tracker/pkg/loans"
	"github.com/iwvelando/loan-tracker/pkg/output"
	"github.com/iwvelando/loan-tracker/pkg/validation"
)

type loanView struct {
	loans.Record
	AsOf     string            `json:"asOf"`
	Summary  *loans.LoanStatus `json:"summary,omitempty"`
	Display  map[string]string `json:"display,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
	Error    string            `json:"error,omitempty"`
}

type emiResponse struct {
	loans.EMIResult
	Display map[string]string `json:"display"`
}

// view derives a record's status as of a date. A record whose status cannot
// be computed is still listed, with the reason in Error.
func (h *handler) view(record loans.Record, status loans.LoanStatus, err error, asOfLabel string) loanView {
	v := loanView{Record: record, AsOf: asOfLabel}
	if err != nil {
		v.Error = err.Error()
		return v
	}

	v.Summary = &status
	v.Display = map[string]string{
		"principal":        format.Currency(record.Principal, h.currency),
		"currentPrincipal": format.Currency(status.CurrentPrincipal, h.currency),
		"accruedInterest":  format.Currency(status.AccruedInterest, h.currency),
		"totalDue":         format.Currency(status.TotalDue, h.currency),
	}
	if status.EMIAmount > 0 {
		v.Display["emiAmount"] = format.Currency(status.EMIAmount, h.currency)
	}
	return v
}

func (h *handler) handleListLoans(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleListLoans"

	asOf, err := h.asOf(r)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}

	records := h.tracker.Search(r.URL.Query().Get("q"))

	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		summaries := make([]output.Summary, 0, len(records))
		for _, record := range records {
			status, err := loans.Status(record, asOf)
			if err != nil {
				continue
			}
			summaries = append(summaries, output.Summary{Record: record, Status: status})
		}

		var buf bytes.Buffer
		if err := output.CsvFormat(&buf, summaries); err != nil {
			h.respondFailure(w, err, op)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
		return
	}

	views := make([]loanView, 0, len(records))
	for _, record := range records {
		status, err := loans.Status(record, asOf)
		views = append(views, h.view(record, status, err, asOf.String()))
	}
	h.writeJSON(w, http.StatusOK, views)
}

func (h *handler) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCreateLoan"

	var terms tracker.Terms
	if err := h.decodeJSON(w, r, &terms); err != nil {
		h.respondFailure(w, err, op)
		return
	}

	record, err := h.tracker.Create(r.Context(), terms)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeDetail(w, http.StatusCreated, record, op)
}

func (h *handler) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGetLoan"

	asOf, err := h.asOf(r)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}

	record, status, err := h.tracker.Status(mux.Vars(r)["id"], asOf)
	if err != nil && record.ID == "" {
		h.respondFailure(w, err, op)
		return
	}

	v := h.view(record, status, err, asOf.String())
	v.Warnings = validation.RecordWarnings(record, asOf)
	h.writeJSON(w, http.StatusOK, v)
}

func (h *handler) handleUpdateLoan(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpdateLoan"

	var terms tracker.Terms
	if err := h.decodeJSON(w, r, &terms); err != nil {
		h.respondFailure(w, err, op)
		return
	}

	record, err := h.tracker.Update(r.Context(), mux.Vars(r)["id"], terms)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeDetail(w, http.StatusOK, record, op)
}

func (h *handler) handleDeleteLoan(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.respondFailure(w, err, "server.handleDeleteLoan")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleCompleteLoan(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCompleteLoan"

	record, err := h.tracker.Complete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeDetail(w, http.StatusOK, record, op)
}

func (h *handler) handleAddRepayment(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAddRepayment"

	var input tracker.RepaymentInput
	if err := h.decodeJSON(w, r, &input); err != nil {
		h.respondFailure(w, err, op)
		return
	}

	repayment, err := h.tracker.AddRepayment(r.Context(), mux.Vars(r)["id"], input)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusCreated, repayment)
}

func (h *handler) handleSeries(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSeries"

	asOf, err := h.asOf(r)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}

	points, err := h.tracker.Series(mux.Vars(r)["id"], asOf)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		var buf bytes.Buffer
		if err := output.CsvSeries(&buf, points); err != nil {
			h.respondFailure(w, err, op)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
		return
	}

	h.writeJSON(w, http.StatusOK, points)
}

func (h *handler) handleSync(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSync"

	asOf, err := h.asOf(r)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}

	appended, err := h.tracker.SyncOverdue(r.Context(), asOf)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"asOf":     asOf.String(),
		"appended": appended,
	})
}

func (h *handler) handleEMI(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleEMI"
	query := r.URL.Query()

	principal, err := strconv.ParseFloat(strings.TrimSpace(query.Get("principal")), 64)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "principal must be a number", op)
		return
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(query.Get("rate")), 64)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "rate must be a number", op)
		return
	}
	months, err := strconv.Atoi(strings.TrimSpace(query.Get("months")))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "months must be a whole number", op)
		return
	}

	result, err := loans.ComputeEMI(principal, rate, months)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}

	h.writeJSON(w, http.StatusOK, emiResponse{
		EMIResult: result,
		Display: map[string]string{
			"installment":   format.Currency(result.Installment, h.currency),
			"totalInterest": format.Currency(result.TotalInterest, h.currency),
			"totalPayment":  format.Currency(result.TotalPayment, h.currency),
		},
	})
}

// writeDetail responds with a record as of today, the way a client would
// see it right after changing it.
func (h *handler) writeDetail(w http.ResponseWriter, code int, record loans.Record, op string) {
	today := h.tracker.Today()
	status, err := loans.Status(record, today)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}

	v := h.view(record, status, nil, today.String())
	v.Warnings = validation.RecordWarnings(record, today)
	h.writeJSON(w, code, v)
}
