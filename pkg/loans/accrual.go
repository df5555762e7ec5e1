package loans

import (
	"slices"

	"github.com/iwvelando/loan-tracker/pkg/constants"
	"github.com/iwvelando/loan-tracker/pkg/datetime"
)

// PeriodInterest returns the simple interest on principal at an annual
// percent rate over a number of days, on a fixed 365-day year.
func PeriodInterest(principal, annualRate float64, days int) float64 {
	return principal * annualRate * float64(days) / constants.DailyRateDivisor
}

// ReplayState is the running position of a daily-interest loan while its
// ledger is replayed. Values may go negative mid-replay, e.g. after an
// interest overpayment.
type ReplayState struct {
	Principal float64
	Interest  float64
	Cursor    datetime.Date
}

// NewReplayState is the state of a loan on its start date.
func NewReplayState(loan Record) ReplayState {
	return ReplayState{Principal: loan.Principal, Cursor: loan.StartDate}
}

// InterestUntil returns the interest accrued between the cursor and on
// without advancing the state. It is zero when on is not after the cursor.
func (s ReplayState) InterestUntil(annualRate float64, on datetime.Date) float64 {
	if !on.After(s.Cursor) {
		return 0
	}
	return PeriodInterest(s.Principal, annualRate, datetime.DaysBetween(s.Cursor, on))
}

// Apply accrues interest up to the repayment date, then subtracts the
// repayment's components and moves the cursor to its date.
func (s ReplayState) Apply(annualRate float64, r Repayment) ReplayState {
	s.Interest += s.InterestUntil(annualRate, r.Date)
	s.Interest -= r.InterestComponent
	s.Principal -= r.PrincipalComponent
	s.Cursor = r.Date
	return s
}

// SortedRepayments returns a copy of the ledger in ascending date order.
// Repayments on the same date keep their relative order.
func SortedRepayments(repayments []Repayment) []Repayment {
	sorted := slices.Clone(repayments)
	slices.SortStableFunc(sorted, func(a, b Repayment) int {
		return a.Date.Compare(b.Date)
	})
	return sorted
}

// Replay folds the whole ledger, in date order, into a ReplayState.
func Replay(loan Record) ReplayState {
	state := NewReplayState(loan)
	for _, repayment := range SortedRepayments(loan.Repayments) {
		state = state.Apply(loan.Rate, repayment)
	}
	return state
}

// AccrualStatus reports a daily-interest loan as of a date. The principal and
// interest are reported as computed, without clamping, so an overpayment
// shows up as a negative value.
func AccrualStatus(loan Record, asOf datetime.Date) (LoanStatus, error) {
	if err := requireKind(loan, KindDaily); err != nil {
		return LoanStatus{}, err
	}
	if err := validateTerms(loan); err != nil {
		return LoanStatus{}, err
	}
	if asOf.IsZero() {
		return LoanStatus{}, invalid("as-of date is required")
	}

	state := Replay(loan)
	interest := state.Interest + state.InterestUntil(loan.Rate, asOf)

	return LoanStatus{
		CurrentPrincipal: state.Principal,
		AccruedInterest:  interest,
		TotalDue:         state.Principal + interest,
		DaysElapsed:      datetime.DaysBetween(loan.StartDate, asOf),
	}, nil
}
