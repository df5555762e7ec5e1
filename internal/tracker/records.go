package tracker

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/iwvelando/loan-tracker/pkg/datetime"
	"github.com/iwvelando/loan-tracker/pkg/loans"
	"go.uber.org/zap"
)

// Terms are the editable fields of a loan.
type Terms struct {
	Title     string        `json:"title"`
	Principal float64       `json:"principal"`
	Rate      float64       `json:"rate"`
	StartDate datetime.Date `json:"startDate"`
	Kind      loans.Kind    `json:"type"`
	Tenure    int           `json:"tenure,omitempty"`
}

// RepaymentInput describes a payment to record. Missing components are
// derived: with neither given the payment is split by loans.SuggestSplit,
// with one given the other is the rest of the amount.
type RepaymentInput struct {
	Date      datetime.Date `json:"date"`
	Amount    float64       `json:"amountPaid"`
	Principal *float64      `json:"principalComponent,omitempty"`
	Interest  *float64      `json:"interestComponent,omitempty"`
}

// Create adds a new active loan. The kind is required.
func (t *Tracker) Create(ctx context.Context, terms Terms) (loans.Record, error) {
	kind, err := loans.ParseKind(string(terms.Kind))
	if err != nil {
		return loans.Record{}, err
	}

	record := loans.Record{
		ID:         newID(),
		Title:      strings.TrimSpace(terms.Title),
		Principal:  terms.Principal,
		Rate:       terms.Rate,
		StartDate:  terms.StartDate,
		Kind:       kind,
		Status:     loans.StateActive,
		Repayments: []loans.Repayment{},
	}
	if kind == loans.KindEMI {
		record.Tenure = terms.Tenure
	}
	if err := record.Validate(); err != nil {
		return loans.Record{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	next := append(slices.Clone(t.records), record)
	if err := t.commit(ctx, next); err != nil {
		return loans.Record{}, err
	}

	t.logger.Info("loan created",
		zap.String("op", "tracker.Create"),
		zap.String("id", record.ID),
		zap.String("kind", string(record.Kind)),
	)
	return cloneRecord(record), nil
}

// Update edits a loan's terms. The kind cannot change; an empty Kind in
// terms is accepted, a different one is rejected.
func (t *Tracker) Update(ctx context.Context, id string, terms Terms) (loans.Record, error) {
	record, err := t.update(ctx, id, func(record *loans.Record) error {
		if terms.Kind != "" {
			kind, err := loans.ParseKind(string(terms.Kind))
			if err != nil {
				return err
			}
			if kind != record.Kind {
				return invalidf("loan %s is %s and cannot become %s", record.ID, record.Kind, kind)
			}
		}

		record.Title = strings.TrimSpace(terms.Title)
		record.Principal = terms.Principal
		record.Rate = terms.Rate
		record.StartDate = terms.StartDate
		if record.Kind == loans.KindEMI {
			record.Tenure = terms.Tenure
		}
		return record.Validate()
	})
	if err != nil {
		return loans.Record{}, err
	}

	t.logger.Info("loan updated",
		zap.String("op", "tracker.Update"),
		zap.String("id", id),
	)
	return record, nil
}

// Delete removes a loan and its ledger.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, err := t.indexOf(id)
	if err != nil {
		return err
	}

	next := slices.Delete(slices.Clone(t.records), i, i+1)
	if err := t.commit(ctx, next); err != nil {
		return err
	}

	t.logger.Info("loan deleted",
		zap.String("op", "tracker.Delete"),
		zap.String("id", id),
	)
	return nil
}

// Complete marks a loan as fully repaid. Completing a completed loan is a
// no-op.
func (t *Tracker) Complete(ctx context.Context, id string) (loans.Record, error) {
	record, err := t.update(ctx, id, func(record *loans.Record) error {
		record.Status = loans.StateCompleted
		return nil
	})
	if err != nil {
		return loans.Record{}, err
	}

	t.logger.Info("loan completed",
		zap.String("op", "tracker.Complete"),
		zap.String("id", id),
	)
	return record, nil
}

// AddRepayment appends a payment to a loan's ledger. The split between
// principal and interest is suggested from the loan's status on the
// payment date unless the caller supplies it.
func (t *Tracker) AddRepayment(ctx context.Context, id string, input RepaymentInput) (loans.Repayment, error) {
	if input.Date.IsZero() {
		input.Date = t.today()
	}

	var added loans.Repayment
	_, err := t.update(ctx, id, func(record *loans.Record) error {
		repayment := loans.Repayment{
			ID:         newID(),
			Date:       input.Date,
			AmountPaid: input.Amount,
		}
		if err := repayment.Validate(); err != nil {
			return err
		}

		switch {
		case input.Principal != nil && input.Interest != nil:
			repayment.PrincipalComponent = *input.Principal
			repayment.InterestComponent = *input.Interest
		case input.Principal != nil:
			repayment.PrincipalComponent = *input.Principal
			repayment.InterestComponent = input.Amount - *input.Principal
		case input.Interest != nil:
			repayment.InterestComponent = *input.Interest
			repayment.PrincipalComponent = input.Amount - *input.Interest
		default:
			status, err := loans.Status(*record, input.Date)
			if err != nil {
				return err
			}
			principal, interest, err := loans.SuggestSplit(*record, status, input.Amount)
			if err != nil {
				return err
			}
			repayment.PrincipalComponent = principal
			repayment.InterestComponent = interest
		}
		if err := repayment.Validate(); err != nil {
			return err
		}

		record.Repayments = append(record.Repayments, repayment)
		added = repayment
		return record.Validate()
	})
	if err != nil {
		return loans.Repayment{}, err
	}

	t.logger.Info("repayment recorded",
		zap.String("op", "tracker.AddRepayment"),
		zap.String("loanID", id),
		zap.String("repaymentID", added.ID),
		zap.Float64("amount", added.AmountPaid),
	)
	return added, nil
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", loans.ErrInvalidInput, fmt.Sprintf(format, args...))
}
