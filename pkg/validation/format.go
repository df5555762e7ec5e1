// Package validation provides common validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/loan-tracker/pkg/constants"
	"github.com/iwvelando/loan-tracker/pkg/format"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	if format != constants.OutputFormatPretty && format != constants.OutputFormatCSV {
		return fmt.Errorf("expected output format of %s or %s, got %s",
			constants.OutputFormatPretty, constants.OutputFormatCSV, format)
	}
	return nil
}

// ValidateStorageBackend checks if the storage backend is one of the supported backends.
func ValidateStorageBackend(backend string) error {
	if backend != constants.StorageBackendJSON && backend != constants.StorageBackendSQLite {
		return fmt.Errorf("expected storage backend of %s or %s, got %s",
			constants.StorageBackendJSON, constants.StorageBackendSQLite, backend)
	}
	return nil
}

// ValidateCurrency checks that code is an ISO 4217 currency the display
// layer can format.
func ValidateCurrency(code string) error {
	if !format.KnownCurrency(code) {
		return fmt.Errorf("unknown display currency %q", code)
	}
	return nil
}
