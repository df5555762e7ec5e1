package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/loan-tracker/internal/store"
	"github.com/iwvelando/loan-tracker/internal/tracker"
	"github.com/iwvelando/loan-tracker/pkg/constants"
	"github.com/iwvelando/loan-tracker/pkg/datetime"
	"github.com/iwvelando/loan-tracker/pkg/loans"
	"github.com/iwvelando/loan-tracker/pkg/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T, maxUploadSize int64) (http.Handler, *tracker.Tracker) {
	t.Helper()
	ctx := context.Background()

	storage := store.NewJSONStore(filepath.Join(t.TempDir(), "loans.json"), zap.NewNop())
	if err := storage.Save(ctx, testutil.Collection()); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	today := datetime.MustParse("2025-03-01")
	tr, err := tracker.New(ctx, storage, zap.NewNop(), tracker.WithClock(func() datetime.Date { return today }))
	if err != nil {
		t.Fatalf("tracker.New() error = %v", err)
	}

	return NewHandler(tr, zap.NewNop(), Options{
		MaxUploadSize: maxUploadSize,
		Version:       "1.2.3",
		Currency:      "usd",
	}), tr
}

func serve(handler http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func TestHandleVersion(t *testing.T) {
	handler, _ := newTestHandler(t, 0)

	rr := serve(handler, http.MethodGet, "/api/version", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp map[string]string
	decodeBody(t, rr, &resp)
	if resp["version"] != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %q", resp["version"])
	}
}

func TestHandleListLoans(t *testing.T) {
	handler, _ := newTestHandler(t, 0)

	tests := []struct {
		name     string
		target   string
		expected int
	}{
		{"All loans", "/api/loans", 3},
		{"Search by title", "/api/loans?q=friend", 1},
		{"Search by status", "/api/loans?q=completed", 1},
		{"No match", "/api/loans?q=mortgage", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(handler, http.MethodGet, tt.target, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
			}

			var views []loanView
			decodeBody(t, rr, &views)
			if len(views) != tt.expected {
				t.Fatalf("expected %d loans, got %d", tt.expected, len(views))
			}
			for _, view := range views {
				if view.Summary == nil {
					t.Errorf("loan %s has no status summary: %s", view.ID, view.Error)
				}
			}
		})
	}
}

func TestHandleListLoansCSV(t *testing.T) {
	handler, _ := newTestHandler(t, 0)

	rr := serve(handler, http.MethodGet, "/api/loans?format=csv", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv, got %s", ct)
	}

	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,title,type,status") {
		t.Fatalf("unexpected CSV header %q", lines[0])
	}
}

func TestHandleGetLoan(t *testing.T) {
	handler, _ := newTestHandler(t, 0)

	rr := serve(handler, http.MethodGet, "/api/loans/daily-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var view loanView
	decodeBody(t, rr, &view)
	if view.AsOf != "2025-03-01" {
		t.Errorf("expected asOf 2025-03-01, got %s", view.AsOf)
	}
	if view.Summary == nil || math.Abs(view.Summary.TotalDue-9103.9726) > 0.001 {
		t.Fatalf("unexpected summary %+v", view.Summary)
	}
	if view.Display["principal"] != "$10,000.00" {
		t.Errorf("expected display principal $10,000.00, got %q", view.Display["principal"])
	}

	rr = serve(handler, http.MethodGet, "/api/loans/daily-1?asOf=2025-02-01", "")
	decodeBody(t, rr, &view)
	if view.AsOf != "2025-02-01" || view.Summary.DaysElapsed != 31 {
		t.Errorf("asOf override ignored: %s, %d days", view.AsOf, view.Summary.DaysElapsed)
	}
}

func TestHandleGetLoanWarnings(t *testing.T) {
	handler, tr := newTestHandler(t, 0)

	principal := 100.0
	interest := 1.0
	if _, err := tr.AddRepayment(context.Background(), "daily-1", tracker.RepaymentInput{
		Date: datetime.MustParse("2025-02-20"), Amount: 500, Principal: &principal, Interest: &interest,
	}); err != nil {
		t.Fatalf("AddRepayment() error = %v", err)
	}

	rr := serve(handler, http.MethodGet, "/api/loans/daily-1", "")
	var view loanView
	decodeBody(t, rr, &view)
	if len(view.Warnings) != 1 {
		t.Fatalf("expected one component warning, got %v", view.Warnings)
	}
}

func TestHandleErrors(t *testing.T) {
	handler, _ := newTestHandler(t, 0)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"Unknown loan", http.MethodGet, "/api/loans/missing", "", http.StatusNotFound},
		{"Unknown loan series", http.MethodGet, "/api/loans/missing/series", "", http.StatusNotFound},
		{"Bad asOf", http.MethodGet, "/api/loans/daily-1?asOf=yesterday", "", http.StatusBadRequest},
		{"Create without kind", http.MethodPost, "/api/loans", `{"title":"x","principal":1,"rate":1,"startDate":"2025-01-01"}`, http.StatusBadRequest},
		{"Create malformed", http.MethodPost, "/api/loans", `{"title":`, http.StatusBadRequest},
		{"Create bad date", http.MethodPost, "/api/loans", `{"title":"x","principal":1,"rate":1,"startDate":"tomorrow","type":"DAILY"}`, http.StatusBadRequest},
		{"Create unknown field", http.MethodPost, "/api/loans", `{"title":"x","principal":1,"rate":1,"startDate":"2025-01-01","type":"DAILY","interestRate":5}`, http.StatusBadRequest},
		{"Repayment unknown field", http.MethodPost, "/api/loans/daily-1/repayments", `{"date":"2025-03-01","amountPaid":500,"note":"cash"}`, http.StatusBadRequest},
		{"Change kind", http.MethodPut, "/api/loans/emi-1", `{"title":"x","principal":1,"rate":1,"startDate":"2025-01-01","type":"DAILY"}`, http.StatusBadRequest},
		{"Update unknown", http.MethodPut, "/api/loans/missing", `{"title":"x"}`, http.StatusNotFound},
		{"Delete unknown", http.MethodDelete, "/api/loans/missing", "", http.StatusNotFound},
		{"Complete unknown", http.MethodPost, "/api/loans/missing/complete", "", http.StatusNotFound},
		{"Zero repayment", http.MethodPost, "/api/loans/daily-1/repayments", `{"amountPaid":0}`, http.StatusBadRequest},
		{"Method not allowed", http.MethodPatch, "/api/loans", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(handler, tt.method, tt.target, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			if tt.status != http.StatusMethodNotAllowed {
				var resp map[string]string
				decodeBody(t, rr, &resp)
				if resp["error"] == "" {
					t.Fatalf("expected error message in response")
				}
			}
		})
	}
}

func TestHandleLoanLifecycle(t *testing.T) {
	handler, tr := newTestHandler(t, 0)

	rr := serve(handler, http.MethodPost, "/api/loans",
		`{"title":"Bike loan","principal":60000,"rate":9.5,"startDate":"2025-02-10","type":"emi","tenure":24}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created loanView
	decodeBody(t, rr, &created)
	if created.ID == "" || created.Kind != loans.KindEMI || created.Summary == nil || created.Summary.EMIAmount == 0 {
		t.Fatalf("unexpected created loan %+v", created)
	}

	rr = serve(handler, http.MethodPut, "/api/loans/"+created.ID,
		`{"title":"Bike loan","principal":55000,"rate":9.5,"startDate":"2025-02-10","tenure":18}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = serve(handler, http.MethodPost, "/api/loans/"+created.ID+"/complete", "")
	var completed loanView
	decodeBody(t, rr, &completed)
	if completed.Status != loans.StateCompleted || completed.Principal != 55000 || completed.Tenure != 18 {
		t.Fatalf("unexpected completed loan %+v", completed.Record)
	}

	rr = serve(handler, http.MethodDelete, "/api/loans/"+created.ID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if len(tr.List()) != 3 {
		t.Fatalf("expected 3 loans after delete, got %d", len(tr.List()))
	}
}

func TestHandleAddRepayment(t *testing.T) {
	handler, _ := newTestHandler(t, 0)

	rr := serve(handler, http.MethodPost, "/api/loans/daily-1/repayments", `{"date":"2025-03-01","amountPaid":500}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var repayment loans.Repayment
	decodeBody(t, rr, &repayment)
	if repayment.InterestComponent != 103.97 || repayment.PrincipalComponent != 396.03 {
		t.Fatalf("unexpected split %+v", repayment)
	}
}

func TestHandleSeries(t *testing.T) {
	handler, _ := newTestHandler(t, 0)

	rr := serve(handler, http.MethodGet, "/api/loans/emi-1/series", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var points []loans.GrowthPoint
	decodeBody(t, rr, &points)
	if len(points) != 2 {
		t.Fatalf("expected 2 points for an EMI loan, got %d", len(points))
	}

	rr = serve(handler, http.MethodGet, "/api/loans/daily-1/series?format=csv", "")
	if !strings.HasPrefix(rr.Body.String(), "date,label,interest,total") {
		t.Fatalf("unexpected CSV series %q", rr.Body.String())
	}
}

func TestHandleSync(t *testing.T) {
	handler, tr := newTestHandler(t, 0)

	rr := serve(handler, http.MethodPost, "/api/sync?asOf=2025-04-15", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		AsOf     string         `json:"asOf"`
		Appended map[string]int `json:"appended"`
	}
	decodeBody(t, rr, &resp)
	if resp.AsOf != "2025-04-15" || resp.Appended["emi-1"] != 2 {
		t.Fatalf("unexpected sync response %+v", resp)
	}

	rr = serve(handler, http.MethodPost, "/api/sync?asOf=2025-04-15", "")
	decodeBody(t, rr, &resp)
	if len(resp.Appended) != 0 {
		t.Fatalf("second sync appended %v", resp.Appended)
	}

	record, _ := tr.Get("emi-1")
	if len(record.Repayments) != 3 {
		t.Fatalf("expected 3 repayments, got %d", len(record.Repayments))
	}
}

func TestHandleEMI(t *testing.T) {
	handler, _ := newTestHandler(t, 0)

	rr := serve(handler, http.MethodGet, "/api/emi?principal=100000&rate=10&months=12", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp emiResponse
	decodeBody(t, rr, &resp)
	if math.Abs(resp.Installment-8791.5887) > 0.001 {
		t.Errorf("expected installment 8791.5887, got %.4f", resp.Installment)
	}
	if resp.Display["installment"] != "$8,791.59" {
		t.Errorf("expected display installment $8,791.59, got %q", resp.Display["installment"])
	}

	invalid := []string{
		"/api/emi?principal=abc&rate=10&months=12",
		"/api/emi?principal=1000&rate=&months=12",
		"/api/emi?principal=1000&rate=10&months=1.5",
		"/api/emi?principal=1000&rate=10&months=0",
		"/api/emi?principal=-1&rate=10&months=12",
	}
	for _, target := range invalid {
		if rr := serve(handler, http.MethodGet, target, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", target, rr.Code)
		}
	}
}

func TestHandleBackupExport(t *testing.T) {
	handler, _ := newTestHandler(t, 0)

	rr := serve(handler, http.MethodGet, "/api/backup", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, constants.DefaultDataFile) {
		t.Fatalf("unexpected Content-Disposition %q", cd)
	}

	var records []loans.Record
	decodeBody(t, rr, &records)
	if len(records) != 3 {
		t.Fatalf("expected 3 records in backup, got %d", len(records))
	}
}

func TestHandleBackupImport(t *testing.T) {
	backup := `[{"id":"n1","title":"New","principal":500,"rate":2,"startDate":"2025-01-01","type":"DAILY","status":"ACTIVE","repayments":[]}]`

	t.Run("Raw body", func(t *testing.T) {
		handler, tr := newTestHandler(t, 0)
		rr := serve(handler, http.MethodPost, "/api/backup", backup)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp map[string]int
		decodeBody(t, rr, &resp)
		if resp["imported"] != 1 || len(tr.List()) != 1 {
			t.Fatalf("unexpected import result %v", resp)
		}
	})

	t.Run("Multipart upload", func(t *testing.T) {
		handler, tr := newTestHandler(t, 0)

		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "loan_records.json")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write([]byte(backup)); err != nil {
			t.Fatalf("failed to write form data: %v", err)
		}
		if err := writer.Close(); err != nil {
			t.Fatalf("failed to close writer: %v", err)
		}

		req := httptest.NewRequest(http.MethodPost, "/api/backup", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if _, err := tr.Get("n1"); err != nil {
			t.Fatalf("imported record missing: %v", err)
		}
	})

	t.Run("Not an array", func(t *testing.T) {
		handler, tr := newTestHandler(t, 0)
		rr := serve(handler, http.MethodPost, "/api/backup", `{"id":"n1"}`)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
		if len(tr.List()) != 3 {
			t.Fatalf("rejected import changed the collection")
		}
	})

	t.Run("Too large", func(t *testing.T) {
		handler, tr := newTestHandler(t, 32)
		rr := serve(handler, http.MethodPost, "/api/backup", backup)
		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected status 413, got %d: %s", rr.Code, rr.Body.String())
		}
		if len(tr.List()) != 3 {
			t.Fatalf("oversize import changed the collection")
		}
	})
}

func TestHandleBackupWipe(t *testing.T) {
	handler, tr := newTestHandler(t, 0)

	rr := serve(handler, http.MethodDelete, "/api/backup", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if len(tr.List()) != 0 {
		t.Fatalf("expected empty collection after wipe, got %d", len(tr.List()))
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"Not found", tracker.ErrNotFound, http.StatusNotFound},
		{"Invalid input", loans.ErrInvalidInput, http.StatusBadRequest},
		{"Kind mismatch", loans.ErrKindMismatch, http.StatusBadRequest},
		{"Too large", &http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{"Other", context.Canceled, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.expected {
				t.Errorf("statusFor(%v) = %d, expected %d", tt.err, got, tt.expected)
			}
		})
	}
}

func TestWriteJSONUnencodable(t *testing.T) {
	h := &handler{logger: zap.NewNop()}
	rr := httptest.NewRecorder()

	h.writeJSON(rr, http.StatusOK, map[string]float64{"totalDue": math.NaN()})
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
}
