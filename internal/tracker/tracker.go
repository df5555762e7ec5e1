// Package tracker owns the loan collection. It serializes mutations, writes
// the collection back to storage after each one, and answers status and
// series queries through the loans engine.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/iwvelando/loan-tracker/internal/store"
	"github.com/iwvelando/loan-tracker/pkg/constants"
	"github.com/iwvelando/loan-tracker/pkg/datetime"
	"github.com/iwvelando/loan-tracker/pkg/loans"
	"github.com/iwvelando/loan-tracker/pkg/validation"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("loan not found")

// Tracker holds the loan collection in memory, backed by a Storage.
type Tracker struct {
	mu      sync.RWMutex
	records []loans.Record
	storage store.Storage
	logger  *zap.Logger
	today   func() datetime.Date
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the source of the current date.
func WithClock(today func() datetime.Date) Option {
	return func(t *Tracker) { t.today = today }
}

// New loads the collection from storage.
func New(ctx context.Context, storage store.Storage, logger *zap.Logger, opts ...Option) (*Tracker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &Tracker{storage: storage, logger: logger, today: datetime.Today}
	for _, opt := range opts {
		opt(t)
	}

	records, err := storage.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load loan collection: %w", err)
	}
	t.records = records

	validator := validation.LedgerValidator{Records: records, Now: t.today()}
	for _, warning := range validator.ValidateAll() {
		logger.Warn(warning, zap.String("op", "tracker.New"))
	}

	logger.Info("loan collection loaded",
		zap.String("op", "tracker.New"),
		zap.Int("records", len(records)),
	)
	return t, nil
}

// Today returns the tracker's current date.
func (t *Tracker) Today() datetime.Date {
	return t.today()
}

// List returns every record in collection order.
func (t *Tracker) List() []loans.Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return cloneRecords(t.records)
}

// Get returns the record with the given id.
func (t *Tracker) Get(id string) (loans.Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, err := t.indexOf(id)
	if err != nil {
		return loans.Record{}, err
	}
	return cloneRecord(t.records[i]), nil
}

// Status reports the record with the given id as of a date.
func (t *Tracker) Status(id string, asOf datetime.Date) (loans.Record, loans.LoanStatus, error) {
	record, err := t.Get(id)
	if err != nil {
		return loans.Record{}, loans.LoanStatus{}, err
	}
	status, err := loans.Status(record, asOf)
	if err != nil {
		return record, loans.LoanStatus{}, fmt.Errorf("loan %s: %w", id, err)
	}
	return record, status, nil
}

// Series returns the growth series of the record with the given id up to now.
func (t *Tracker) Series(id string, now datetime.Date) ([]loans.GrowthPoint, error) {
	record, err := t.Get(id)
	if err != nil {
		return nil, err
	}
	points, err := loans.Series(record, now)
	if err != nil {
		return nil, fmt.Errorf("loan %s: %w", id, err)
	}
	return points, nil
}

// Search returns the records matching every whitespace-separated term of
// query, case-insensitively, against the title, principal, status and start
// date. An empty query matches everything.
func (t *Tracker) Search(query string) []loans.Record {
	terms := strings.Fields(strings.ToLower(query))

	t.mu.RLock()
	defer t.mu.RUnlock()

	matches := []loans.Record{}
	for _, record := range t.records {
		haystack := strings.ToLower(strings.Join([]string{
			record.Title,
			strconv.FormatFloat(record.Principal, 'f', -1, 64),
			string(record.Status),
			record.StartDate.Format(constants.DateLayout),
			record.StartDate.Format(constants.FullLabelLayout),
		}, " "))

		matched := true
		for _, term := range terms {
			if !strings.Contains(haystack, term) {
				matched = false
				break
			}
		}
		if matched {
			matches = append(matches, cloneRecord(record))
		}
	}
	return matches
}

// Warnings returns non-fatal ledger warnings for the whole collection.
func (t *Tracker) Warnings() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	validator := validation.LedgerValidator{Records: t.records, Now: t.today()}
	return validator.ValidateAll()
}

// Export writes the collection as a JSON array backup.
func (t *Tracker) Export(w io.Writer) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return store.EncodeRecords(w, t.records)
}

// Import replaces the collection with the JSON array backup read from r.
// Every record must be valid and ids must be unique; on any error the
// collection is left unchanged.
func (t *Tracker) Import(ctx context.Context, r io.Reader) (int, error) {
	records, err := store.DecodeRecords(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", loans.ErrInvalidInput, err)
	}

	seen := make(map[string]bool, len(records))
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return 0, err
		}
		if seen[record.ID] {
			return 0, fmt.Errorf("%w: duplicate record id %s", loans.ErrInvalidInput, record.ID)
		}
		seen[record.ID] = true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.commit(ctx, records); err != nil {
		return 0, err
	}

	t.logger.Info("collection imported",
		zap.String("op", "tracker.Import"),
		zap.Int("records", len(records)),
	)
	return len(records), nil
}

// Wipe removes every record.
func (t *Tracker) Wipe(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	previous := len(t.records)
	if err := t.commit(ctx, []loans.Record{}); err != nil {
		return err
	}

	t.logger.Warn("collection wiped",
		zap.String("op", "tracker.Wipe"),
		zap.Int("removed", previous),
	)
	return nil
}

// commit persists next and makes it the current collection. The caller
// holds the write lock. On error the current collection is unchanged.
func (t *Tracker) commit(ctx context.Context, next []loans.Record) error {
	if err := t.storage.Save(ctx, next); err != nil {
		t.logger.Error("failed to persist loan collection",
			zap.String("op", "tracker.commit"),
			zap.Error(err),
		)
		return fmt.Errorf("failed to persist loan collection: %w", err)
	}
	t.records = next
	return nil
}

// update applies fn to a copy of the record with the given id and commits
// the result.
func (t *Tracker) update(ctx context.Context, id string, fn func(*loans.Record) error) (loans.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, err := t.indexOf(id)
	if err != nil {
		return loans.Record{}, err
	}

	record := cloneRecord(t.records[i])
	if err := fn(&record); err != nil {
		return loans.Record{}, err
	}

	next := slices.Clone(t.records)
	next[i] = record
	if err := t.commit(ctx, next); err != nil {
		return loans.Record{}, err
	}
	return cloneRecord(record), nil
}

func (t *Tracker) indexOf(id string) (int, error) {
	for i := range t.records {
		if t.records[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func newID() string {
	return uuid.NewString()
}

func cloneRecord(record loans.Record) loans.Record {
	record.Repayments = slices.Clone(record.Repayments)
	if record.Repayments == nil {
		record.Repayments = []loans.Repayment{}
	}
	return record
}

func cloneRecords(records []loans.Record) []loans.Record {
	cloned := make([]loans.Record, len(records))
	for i, record := range records {
		cloned[i] = cloneRecord(record)
	}
	return cloned
}
