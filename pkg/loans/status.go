package loans

import "github.com/iwvelando/loan-tracker/pkg/datetime"

// Status reports a loan as of a date, dispatching on its kind.
func Status(loan Record, asOf datetime.Date) (LoanStatus, error) {
	switch loan.Kind {
	case KindEMI:
		return AmortizationStatus(loan, asOf)
	case KindDaily:
		return AccrualStatus(loan, asOf)
	default:
		return LoanStatus{}, invalid("unknown loan kind %q", loan.Kind)
	}
}
