package loans

import (
	"github.com/iwvelando/loan-tracker/pkg/mathutil"
)

// SuggestSplit divides a payment amount into principal and interest parts
// given the loan's current status. Daily-interest loans settle accrued
// interest first; EMI loans charge a month of interest on the outstanding
// principal. The interest part never exceeds the amount and is never
// negative. Both parts are rounded to cents.
func SuggestSplit(loan Record, status LoanStatus, amount float64) (principal, interest float64, err error) {
	if err := checkAmount("amount", amount); err != nil {
		return 0, 0, err
	}

	switch loan.Kind {
	case KindDaily:
		interest = status.AccruedInterest
	case KindEMI:
		interest = CalculateInterestPayment(status.CurrentPrincipal, loan.Rate)
	default:
		return 0, 0, invalid("unknown loan kind %q", loan.Kind)
	}

	interest = mathutil.ClampZero(mathutil.Min(amount, interest))
	principal = amount - interest

	return mathutil.Round(principal), mathutil.Round(interest), nil
}
