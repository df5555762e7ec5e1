package loans

import (
	"math"

	"github.com/iwvelando/loan-tracker/pkg/constants"
	"github.com/iwvelando/loan-tracker/pkg/datetime"
	"github.com/iwvelando/loan-tracker/pkg/mathutil"
)

// MonthlyRate converts an annual percent rate into a monthly fraction.
func MonthlyRate(annualRate float64) float64 {
	return annualRate / constants.MonthlyRateDivisor
}

// CalculateInterestPayment calculates the interest portion of an installment
// on the given outstanding balance.
func CalculateInterestPayment(remainingPrincipal, annualRate float64) float64 {
	return remainingPrincipal * MonthlyRate(annualRate)
}

// ComputeEMI calculates the fixed monthly installment of a loan using the
// standard reducing-balance formula, with the aggregate payment and interest
// over the whole tenure.
func ComputeEMI(principal, annualRate float64, months int) (EMIResult, error) {
	if err := checkAmount("principal", principal); err != nil {
		return EMIResult{}, err
	}
	if err := checkAmount("rate", annualRate); err != nil {
		return EMIResult{}, err
	}
	if months < 1 {
		return EMIResult{}, invalid("tenure must be at least 1 month, got %d", months)
	}

	r := MonthlyRate(annualRate)
	// 1 - (1+r)^-n, formed without (1+r)^n so long tenures cannot overflow.
	discountFactor := -math.Expm1(-float64(months) * math.Log1p(r))
	if discountFactor == 0 {
		// A zero rate degenerates the formula to an even split.
		return EMIResult{
			Installment:   principal / float64(months),
			TotalInterest: 0,
			TotalPayment:  principal,
		}, nil
	}

	installment := principal * r / discountFactor
	totalPayment := installment * float64(months)
	if !mathutil.IsFinite(installment) || !mathutil.IsFinite(totalPayment) {
		return EMIResult{}, invalid("installment of %v at %v%% over %d months is out of range", principal, annualRate, months)
	}

	return EMIResult{
		Installment:   installment,
		TotalInterest: totalPayment - principal,
		TotalPayment:  totalPayment,
	}, nil
}

// AmortizationStatus reports an EMI loan as of a date. Interest is embedded
// in the installments, so AccruedInterest is always zero; what remains due is
// the full-tenure obligation less everything paid so far.
func AmortizationStatus(loan Record, asOf datetime.Date) (LoanStatus, error) {
	if err := requireKind(loan, KindEMI); err != nil {
		return LoanStatus{}, err
	}
	if err := validateTerms(loan); err != nil {
		return LoanStatus{}, err
	}
	if asOf.IsZero() {
		return LoanStatus{}, invalid("as-of date is required")
	}

	emi, err := ComputeEMI(loan.Principal, loan.Rate, loan.Tenure)
	if err != nil {
		return LoanStatus{}, err
	}

	totalPaid := 0.0
	principalPaid := 0.0
	for _, repayment := range loan.Repayments {
		totalPaid += repayment.AmountPaid
		principalPaid += repayment.PrincipalComponent
	}

	return LoanStatus{
		CurrentPrincipal: mathutil.ClampZero(loan.Principal - principalPaid),
		AccruedInterest:  0,
		TotalDue:         mathutil.ClampZero(emi.TotalPayment - totalPaid),
		DaysElapsed:      datetime.DaysBetween(loan.StartDate, asOf),
		EMIAmount:        emi.Installment,
	}, nil
}
