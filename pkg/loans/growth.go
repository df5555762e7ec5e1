package loans

import (
	"github.com/iwvelando/loan-tracker/pkg/constants"
	"github.com/iwvelando/loan-tracker/pkg/datetime"
	"github.com/iwvelando/loan-tracker/pkg/mathutil"
)

// Series samples a loan's balance from its start date up to now for trend
// charts. Sampled values are floored at zero; they are for display only.
//
// EMI loans yield two points: the full obligation at origination and the
// amount still due now. Daily-interest loans are reconstructed day by day and
// sampled about GrowthSampleCount times regardless of the loan's age.
func Series(loan Record, now datetime.Date) ([]GrowthPoint, error) {
	if err := validateTerms(loan); err != nil {
		return nil, err
	}
	if now.IsZero() {
		return nil, invalid("current date is required")
	}

	if loan.Kind == KindEMI {
		return emiSeries(loan, now)
	}
	return dailySeries(loan, now), nil
}

func emiSeries(loan Record, now datetime.Date) ([]GrowthPoint, error) {
	emi, err := ComputeEMI(loan.Principal, loan.Rate, loan.Tenure)
	if err != nil {
		return nil, err
	}
	status, err := AmortizationStatus(loan, now)
	if err != nil {
		return nil, err
	}

	return []GrowthPoint{
		{
			Label: loan.StartDate.Format(constants.FullLabelLayout),
			Date:  loan.StartDate,
			Total: emi.TotalPayment,
		},
		{
			Label: now.Format(constants.FullLabelLayout),
			Date:  now,
			Total: status.TotalDue,
		},
	}, nil
}

func dailySeries(loan Record, now datetime.Date) []GrowthPoint {
	totalDays := datetime.DaysBetween(loan.StartDate, now)
	stride := totalDays / constants.GrowthSampleCount
	if stride < 1 {
		stride = 1
	}

	points := make([]GrowthPoint, 0, totalDays/stride+2)
	points = append(points, GrowthPoint{
		Label: loan.StartDate.Format(constants.FullLabelLayout),
		Date:  loan.StartDate,
		Total: loan.Principal,
	})

	ledger := SortedRepayments(loan.Repayments)
	next := 0
	state := NewReplayState(loan)

	for day := 1; day <= totalDays; day++ {
		current := loan.StartDate.AddDays(day)

		// Repayments dated on the current day are applied; any left behind
		// the walk (on or before the start date) are passed over.
		for next < len(ledger) {
			repayment := ledger[next]
			if repayment.Date == current {
				state = state.Apply(loan.Rate, repayment)
				next++
			} else if repayment.Date.Before(current) {
				next++
			} else {
				break
			}
		}

		if day%stride == 0 || day == totalDays {
			pending := state.InterestUntil(loan.Rate, current)
			points = append(points, GrowthPoint{
				Label:    current.Format(constants.ShortLabelLayout),
				Date:     current,
				Interest: mathutil.ClampZero(state.Interest + pending),
				Total:    mathutil.ClampZero(state.Principal + state.Interest + pending),
			})
		}
	}

	return points
}
