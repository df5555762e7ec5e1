package loans

import (
	"github.com/google/uuid"
	"github.com/iwvelando/loan-tracker/pkg/constants"
	"github.com/iwvelando/loan-tracker/pkg/datetime"
	"github.com/iwvelando/loan-tracker/pkg/mathutil"
)

// MissingInstallments proposes the installments of an EMI loan whose due
// dates have passed without a recorded repayment. The loan is not modified;
// the caller appends the result to the ledger and persists it, and must do
// both as one unit so that a second call does not propose the same entries.
//
// The number of covered periods is taken to be the number of recorded
// repayments, whatever their dates. Daily-interest loans and EMI loans
// without a tenure yield nothing.
func MissingInstallments(loan Record, now datetime.Date) ([]Repayment, error) {
	if loan.Kind != KindEMI || loan.Tenure < 1 {
		return nil, nil
	}
	if err := validateTerms(loan); err != nil {
		return nil, err
	}
	if now.IsZero() {
		return nil, invalid("current date is required")
	}

	emi, err := ComputeEMI(loan.Principal, loan.Rate, loan.Tenure)
	if err != nil {
		return nil, err
	}
	monthlyRate := MonthlyRate(loan.Rate)

	balance := loan.Principal
	for _, repayment := range loan.Repayments {
		balance -= repayment.PrincipalComponent
	}

	monthsElapsed := datetime.AnniversaryMonths(loan.StartDate, now)
	if monthsElapsed > loan.Tenure {
		monthsElapsed = loan.Tenure
	}

	existing := len(loan.Repayments)
	missing := monthsElapsed - existing
	if missing <= 0 {
		return nil, nil
	}

	proposed := make([]Repayment, 0, missing)
	for i := 0; i < missing; i++ {
		if balance <= constants.PaidOffThreshold {
			break
		}

		interestPart := balance * monthlyRate
		principalPart := emi.Installment - interestPart

		proposed = append(proposed, Repayment{
			ID:                 uuid.NewString(),
			Date:               loan.StartDate.AddMonths(existing + 1 + i),
			AmountPaid:         mathutil.RoundWhole(emi.Installment),
			PrincipalComponent: mathutil.RoundWhole(principalPart),
			InterestComponent:  mathutil.RoundWhole(interestPart),
		})

		// The unrounded split keeps later installments accurate.
		balance -= principalPart
	}

	return proposed, nil
}
