package loans

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iwvelando/loan-tracker/pkg/mathutil"
)

var (
	// ErrInvalidInput marks records, repayments or arguments the engine
	// refuses to compute with.
	ErrInvalidInput = errors.New("invalid input")

	// ErrKindMismatch marks a kind-specific calculator called with a loan of
	// the other kind. It is a caller bug, not a recoverable condition.
	ErrKindMismatch = errors.New("loan kind mismatch")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func checkAmount(name string, value float64) error {
	if !mathutil.IsFinite(value) {
		return invalid("%s must be a finite number, got %v", name, value)
	}
	if value < 0 {
		return invalid("%s must not be negative, got %v", name, value)
	}
	return nil
}

// validateTerms checks what the calculators need: kind, amounts, dates and
// the ledger's numbers. Identity and lifecycle fields are left to Validate.
func validateTerms(loan Record) error {
	if !loan.Kind.Valid() {
		return invalid("unknown loan kind %q", loan.Kind)
	}
	if err := checkAmount("principal", loan.Principal); err != nil {
		return err
	}
	if err := checkAmount("rate", loan.Rate); err != nil {
		return err
	}
	if loan.StartDate.IsZero() {
		return invalid("start date is required")
	}
	switch loan.Kind {
	case KindEMI:
		if loan.Tenure < 1 {
			return invalid("EMI loan requires a tenure of at least 1 month, got %d", loan.Tenure)
		}
		if _, err := ComputeEMI(loan.Principal, loan.Rate, loan.Tenure); err != nil {
			return err
		}
	case KindDaily:
		if loan.Tenure != 0 {
			return invalid("tenure is only meaningful for EMI loans, got %d on a %s loan", loan.Tenure, loan.Kind)
		}
	}
	for i, repayment := range loan.Repayments {
		if repayment.Date.IsZero() {
			return invalid("repayment #%d has no date", i)
		}
		if !mathutil.IsFinite(repayment.AmountPaid) ||
			!mathutil.IsFinite(repayment.PrincipalComponent) ||
			!mathutil.IsFinite(repayment.InterestComponent) {
			return invalid("repayment #%d amounts must be finite numbers", i)
		}
	}
	return nil
}

// Validate checks a record before it is stored: every term the calculators
// need plus identity, title and lifecycle status.
func (loan Record) Validate() error {
	if strings.TrimSpace(loan.ID) == "" {
		return invalid("record id is required")
	}
	if strings.TrimSpace(loan.Title) == "" {
		return invalid("record %s has no title", loan.ID)
	}
	if !loan.Status.Valid() {
		return invalid("record %s has unknown status %q", loan.ID, loan.Status)
	}
	if err := validateTerms(loan); err != nil {
		return fmt.Errorf("record %s: %w", loan.ID, err)
	}
	return nil
}

// Validate checks a repayment before it is appended to a ledger.
func (r Repayment) Validate() error {
	if r.Date.IsZero() {
		return invalid("repayment date is required")
	}
	if !mathutil.IsFinite(r.AmountPaid) || r.AmountPaid <= 0 {
		return invalid("repayment amount must be a positive number, got %v", r.AmountPaid)
	}
	if !mathutil.IsFinite(r.PrincipalComponent) || !mathutil.IsFinite(r.InterestComponent) {
		return invalid("repayment components must be finite numbers")
	}
	return nil
}

func requireKind(loan Record, kind Kind) error {
	if loan.Kind != kind {
		return fmt.Errorf("%w: expected a %s loan, got %q", ErrKindMismatch, kind, loan.Kind)
	}
	return nil
}
