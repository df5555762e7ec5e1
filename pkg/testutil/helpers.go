// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/loan-tracker/pkg/datetime"
	"github.com/iwvelando/loan-tracker/pkg/loans"
)

// DailyLoan returns an active daily-interest loan with no repayments.
func DailyLoan(id, title string, principal, rate float64, start string) loans.Record {
	return loans.Record{
		ID:         id,
		Title:      title,
		Principal:  principal,
		Rate:       rate,
		StartDate:  datetime.MustParse(start),
		Kind:       loans.KindDaily,
		Status:     loans.StateActive,
		Repayments: []loans.Repayment{},
	}
}

// EMILoan returns an active installment loan with no repayments.
func EMILoan(id, title string, principal, rate float64, tenure int, start string) loans.Record {
	return loans.Record{
		ID:         id,
		Title:      title,
		Principal:  principal,
		Rate:       rate,
		StartDate:  datetime.MustParse(start),
		Kind:       loans.KindEMI,
		Tenure:     tenure,
		Status:     loans.StateActive,
		Repayments: []loans.Repayment{},
	}
}

// Repayment returns a ledger entry whose amount is the sum of its parts.
func Repayment(id, date string, principal, interest float64) loans.Repayment {
	return loans.Repayment{
		ID:                 id,
		Date:               datetime.MustParse(date),
		AmountPaid:         principal + interest,
		PrincipalComponent: principal,
		InterestComponent:  interest,
	}
}

// FindLoan finds a record by id in the slice.
// Returns a pointer to the record if found, nil otherwise.
func FindLoan(records []loans.Record, id string) *loans.Record {
	for i := range records {
		if records[i].ID == id {
			return &records[i]
		}
	}
	return nil
}

// Collection returns a small mixed collection: a daily loan with one
// repayment, an EMI loan one installment behind schedule, and a completed
// daily loan.
func Collection() []loans.Record {
	daily := DailyLoan("daily-1", "Friend loan", 10000, 10, "2025-01-01")
	daily.Repayments = append(daily.Repayments, Repayment("daily-1-r1", "2025-02-01", 1000, 50))

	emi := EMILoan("emi-1", "Car loan", 100000, 10, 12, "2025-01-15")
	emi.Repayments = append(emi.Repayments, loans.Repayment{
		ID:                 "emi-1-r1",
		Date:               datetime.MustParse("2025-02-15"),
		AmountPaid:         8792,
		PrincipalComponent: 7958,
		InterestComponent:  834,
	})

	completed := DailyLoan("daily-2", "Shop credit", 2500, 12, "2024-03-10")
	completed.Status = loans.StateCompleted
	completed.Repayments = append(completed.Repayments, Repayment("daily-2-r1", "2024-06-10", 2500, 75.62))

	return []loans.Record{daily, emi, completed}
}
