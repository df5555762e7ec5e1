// Package loans is the interest-accrual and amortization engine. Every
// function is pure: it reads a Record, never mutates it, and keeps no state
// between calls, so callers may use it concurrently without locking.
package loans

import (
	"fmt"
	"strings"

	"github.com/iwvelando/loan-tracker/pkg/datetime"
)

// Kind selects how a loan accrues interest.
type Kind string

const (
	// KindDaily loans accrue simple interest on the outstanding principal per
	// elapsed calendar day.
	KindDaily Kind = "DAILY"

	// KindEMI loans are repaid by equated monthly installments under the
	// reducing-balance formula.
	KindEMI Kind = "EMI"
)

// ParseKind reads a kind name case-insensitively. The empty string is not a
// kind; legacy documents without one are normalized by the storage layer.
func ParseKind(value string) (Kind, error) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(value))); k {
	case KindDaily, KindEMI:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown loan kind %q, expected %s or %s", ErrInvalidInput, value, KindDaily, KindEMI)
	}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool { return k == KindDaily || k == KindEMI }

// State is the lifecycle status of a loan record.
type State string

const (
	StateActive    State = "ACTIVE"
	StateCompleted State = "COMPLETED"
)

// Valid reports whether s is one of the declared states.
func (s State) Valid() bool { return s == StateActive || s == StateCompleted }

// Repayment is one recorded payment event. AmountPaid is expected to equal
// PrincipalComponent + InterestComponent but the engine does not enforce it.
type Repayment struct {
	ID                 string        `json:"id"`
	Date               datetime.Date `json:"date"`
	AmountPaid         float64       `json:"amountPaid"`
	PrincipalComponent float64       `json:"principalComponent"`
	InterestComponent  float64       `json:"interestComponent"`
}

// Record is a borrowing obligation together with its repayment ledger.
// The order of Repayments carries no meaning; the engine sorts a copy by
// date before replaying it.
type Record struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Principal  float64       `json:"principal"`
	Rate       float64       `json:"rate"` // annual, percent
	StartDate  datetime.Date `json:"startDate"`
	Kind       Kind          `json:"type"`
	Tenure     int           `json:"tenure,omitempty"` // months, EMI only
	Status     State         `json:"status"`
	Repayments []Repayment   `json:"repayments"`
}

// LoanStatus is a snapshot of a loan as of a date. It is derived on every
// query and never stored.
type LoanStatus struct {
	CurrentPrincipal float64 `json:"currentPrincipal"`
	AccruedInterest  float64 `json:"accruedInterest"`
	TotalDue         float64 `json:"totalDue"`
	DaysElapsed      int     `json:"daysElapsed"`
	EMIAmount        float64 `json:"emiAmount,omitempty"`
}

// GrowthPoint is one sample of a loan's balance for trend charts.
type GrowthPoint struct {
	Label    string        `json:"day"`
	Date     datetime.Date `json:"date"`
	Interest float64       `json:"interest"`
	Total    float64       `json:"total"`
}

// EMIResult holds the installment and aggregate totals of an EMI loan.
type EMIResult struct {
	Installment   float64 `json:"installment"`
	TotalInterest float64 `json:"totalInterest"`
	TotalPayment  float64 `json:"totalPayment"`
}
