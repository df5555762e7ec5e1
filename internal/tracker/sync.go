package tracker

import (
	"context"
	"fmt"
	"slices"

	"github.com/iwvelando/loan-tracker/pkg/datetime"
	"github.com/iwvelando/loan-tracker/pkg/loans"
	"go.uber.org/zap"
)

// SyncOverdue appends the missing installments of every active EMI loan as
// of now and persists the collection once. Detection, append and persist
// happen under the write lock, so concurrent calls cannot append the same
// installment twice. It returns the number of installments appended per
// loan id; loans with nothing to append are omitted.
func (t *Tracker) SyncOverdue(ctx context.Context, now datetime.Date) (map[string]int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	appended := make(map[string]int)
	var next []loans.Record

	for i, record := range t.records {
		if record.Status != loans.StateActive || record.Kind != loans.KindEMI {
			continue
		}

		missing, err := loans.MissingInstallments(record, now)
		if err != nil {
			// One malformed record must not block the rest of the collection.
			t.logger.Warn("skipping loan during overdue sync",
				zap.String("op", "tracker.SyncOverdue"),
				zap.String("id", record.ID),
				zap.Error(err),
			)
			continue
		}
		if len(missing) == 0 {
			continue
		}

		if next == nil {
			next = slices.Clone(t.records)
		}
		updated := cloneRecord(record)
		updated.Repayments = append(updated.Repayments, missing...)
		next[i] = updated
		appended[record.ID] = len(missing)
	}

	if next == nil {
		return appended, nil
	}
	if err := t.commit(ctx, next); err != nil {
		return nil, fmt.Errorf("overdue sync: %w", err)
	}

	for id, count := range appended {
		t.logger.Info("overdue installments appended",
			zap.String("op", "tracker.SyncOverdue"),
			zap.String("id", id),
			zap.Int("count", count),
		)
	}
	return appended, nil
}
