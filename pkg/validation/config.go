package validation

import (
	"fmt"

	"github.com/iwvelando/loan-tracker/pkg/constants"
	"github.com/iwvelando/loan-tracker/pkg/datetime"
	"github.com/iwvelando/loan-tracker/pkg/loans"
	"github.com/iwvelando/loan-tracker/pkg/mathutil"
)

// ValidateMaturity checks whether an active EMI loan has run past its last
// installment date.
func ValidateMaturity(record loans.Record, now datetime.Date) string {
	if record.Kind != loans.KindEMI || record.Status != loans.StateActive || record.Tenure < 1 {
		return ""
	}
	maturity := record.StartDate.AddMonths(record.Tenure)
	if now.After(maturity) {
		return fmt.Sprintf("Loan '%s' is still active after its final installment date (%s)",
			record.Title, maturity)
	}
	return ""
}

// ValidateRepaymentDates checks repayments against the loan's start date and now.
func ValidateRepaymentDates(record loans.Record, now datetime.Date) []string {
	var warnings []string

	for _, repayment := range record.Repayments {
		if repayment.Date.Before(record.StartDate) {
			warnings = append(warnings, fmt.Sprintf("Loan '%s' repayment %s is dated before the loan start (%s < %s)",
				record.Title, repayment.ID, repayment.Date, record.StartDate))
		}
		if !now.IsZero() && repayment.Date.After(now) {
			warnings = append(warnings, fmt.Sprintf("Loan '%s' repayment %s is dated in the future (%s)",
				record.Title, repayment.ID, repayment.Date))
		}
	}

	return warnings
}

// ValidateComponents checks that each repayment's parts add up to its amount.
// The engine tolerates a mismatch, but it usually means a typo.
func ValidateComponents(record loans.Record) []string {
	var warnings []string

	for _, repayment := range record.Repayments {
		sum := repayment.PrincipalComponent + repayment.InterestComponent
		if !mathutil.WithinTolerance(sum, repayment.AmountPaid, constants.CurrencyTolerance) {
			warnings = append(warnings, fmt.Sprintf("Loan '%s' repayment %s components sum to %.2f but %.2f was paid",
				record.Title, repayment.ID, sum, repayment.AmountPaid))
		}
	}

	return warnings
}

// LedgerValidator collects non-fatal warnings about a loan collection.
type LedgerValidator struct {
	Records []loans.Record
	Now     datetime.Date
}

// ValidateAll validates the entire collection and returns warnings
func (lv *LedgerValidator) ValidateAll() []string {
	var warnings []string

	seenLoans := make(map[string]bool, len(lv.Records))
	seenRepayments := make(map[string]string)

	for _, record := range lv.Records {
		if seenLoans[record.ID] {
			warnings = append(warnings, fmt.Sprintf("Loan id %s is used by more than one record", record.ID))
		}
		seenLoans[record.ID] = true

		for _, repayment := range record.Repayments {
			if owner, ok := seenRepayments[repayment.ID]; ok {
				warnings = append(warnings, fmt.Sprintf("Repayment id %s appears in loan %s and loan %s",
					repayment.ID, owner, record.ID))
				continue
			}
			seenRepayments[repayment.ID] = record.ID
		}

		warnings = append(warnings, RecordWarnings(record, lv.Now)...)
	}

	return warnings
}

// RecordWarnings returns every non-fatal warning for a single record.
func RecordWarnings(record loans.Record, now datetime.Date) []string {
	var warnings []string
	if warning := ValidateMaturity(record, now); warning != "" {
		warnings = append(warnings, warning)
	}
	warnings = append(warnings, ValidateRepaymentDates(record, now)...)
	warnings = append(warnings, ValidateComponents(record)...)
	return warnings
}
