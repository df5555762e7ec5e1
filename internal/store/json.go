package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/iwvelando/loan-tracker/pkg/loans"
	"go.uber.org/zap"
)

// JSONStore keeps the collection in a single JSON array document.
type JSONStore struct {
	path   string
	logger *zap.Logger
}

// NewJSONStore returns a store backed by the file at path. The file is
// created on the first Save.
func NewJSONStore(path string, logger *zap.Logger) *JSONStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONStore{path: path, logger: logger}
}

// Load reads the collection. A missing file is an empty collection.
func (s *JSONStore) Load(ctx context.Context) ([]loans.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("collection file not found, starting empty",
				zap.String("op", "store.JSONStore.Load"),
				zap.String("path", s.path),
			)
			return []loans.Record{}, nil
		}
		return nil, fmt.Errorf("failed to open collection file: %w", err)
	}
	defer f.Close()

	records, err := DecodeRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}

	s.logger.Debug("collection loaded",
		zap.String("op", "store.JSONStore.Load"),
		zap.String("path", s.path),
		zap.Int("records", len(records)),
	)
	return records, nil
}

// Save replaces the file atomically: the collection is written to a
// temporary file in the same directory which is then renamed over the
// original.
func (s *JSONStore) Save(ctx context.Context, records []loans.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary collection file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename has succeeded.
		_ = os.Remove(tmpName)
	}()

	if err := EncodeRecords(tmp, records); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to encode collection: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to flush collection file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close collection file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace collection file: %w", err)
	}

	s.logger.Debug("collection saved",
		zap.String("op", "store.JSONStore.Save"),
		zap.String("path", s.path),
		zap.Int("records", len(records)),
	)
	return nil
}

// Close is a no-op; the file is only open during Load and Save.
func (s *JSONStore) Close() error { return nil }
