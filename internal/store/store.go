// Package store persists the loan collection. The whole collection is loaded
// at startup and written back after every change.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/iwvelando/loan-tracker/internal/config"
	"github.com/iwvelando/loan-tracker/pkg/constants"
	"github.com/iwvelando/loan-tracker/pkg/loans"
	"go.uber.org/zap"
)

// ErrNotArray is returned when a collection document is not a JSON array.
var ErrNotArray = errors.New("collection must be a JSON array")

// Storage loads and saves the full loan collection.
type Storage interface {
	Load(ctx context.Context) ([]loans.Record, error)
	Save(ctx context.Context, records []loans.Record) error
	Close() error
}

// Open returns the backend selected by cfg.
func Open(cfg config.StorageConfig, logger *zap.Logger) (Storage, error) {
	switch cfg.Backend {
	case constants.StorageBackendJSON, "":
		return NewJSONStore(cfg.Path, logger), nil
	case constants.StorageBackendSQLite:
		return NewSQLiteStore(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// DecodeRecords parses a collection document: a JSON array of loan records,
// as written by EncodeRecords. Legacy records are normalized on the way in.
func DecodeRecords(r io.Reader) ([]loans.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}

	var records []loans.Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("failed to decode collection: %w", err)
	}

	if err := Normalize(records); err != nil {
		return nil, err
	}
	return records, nil
}

// EncodeRecords writes the collection as an indented JSON array.
func EncodeRecords(w io.Writer, records []loans.Record) error {
	if records == nil {
		records = []loans.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// Normalize upgrades records written by older versions in place: a missing
// kind means a daily-interest loan, kinds are upper-cased, a missing status
// means active and a missing ledger becomes empty.
func Normalize(records []loans.Record) error {
	for i := range records {
		record := &records[i]

		if record.Kind == "" {
			record.Kind = loans.KindDaily
		} else {
			kind, err := loans.ParseKind(string(record.Kind))
			if err != nil {
				return fmt.Errorf("record %s: %w", record.ID, err)
			}
			record.Kind = kind
		}

		if record.Status == "" {
			record.Status = loans.StateActive
		}
		if record.Repayments == nil {
			record.Repayments = []loans.Repayment{}
		}
	}
	return nil
}
