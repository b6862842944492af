package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidHistoryLength is matched by every *InvalidHistoryLengthError.
	ErrInvalidHistoryLength = errors.New("invalid history length")
	// ErrMissingSKU is matched by every *MissingSKUError.
	ErrMissingSKU = errors.New("missing sku")
	// ErrNotFound is returned by mutations targeting an unknown SKU or record.
	ErrNotFound = errors.New("not found")
	// ErrNoRecentHistory is returned when editing a recent series that does not exist.
	ErrNoRecentHistory = errors.New("record has no recent history")
	// ErrInvalidMonth is returned when a month index is outside 0..11.
	ErrInvalidMonth = errors.New("month index out of range")
	// ErrEmptyDataset is returned when an import carries no records.
	ErrEmptyDataset = errors.New("dataset contains no records")
	// ErrInvalidStatus is returned when a status filter names no known status.
	ErrInvalidStatus = errors.New("unknown status")
)

// ConfigurationError reports a record whose region has no configured lead time
type ConfigurationError struct {
	Region string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: no lead time configured for region %q", e.Region)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// InvalidHistoryLengthError reports a monthly series that is not exactly 12 entries long
type InvalidHistoryLengthError struct {
	Field  string // "history" or "recent_history"
	Length int
}

func (e *InvalidHistoryLengthError) Error() string {
	return fmt.Sprintf("invalid history length: %s has %d entries, want %d", e.Field, e.Length, MonthsPerYear)
}

func (e *InvalidHistoryLengthError) Is(target error) bool {
	return target == ErrInvalidHistoryLength
}

// MissingSKUError reports a record that references a SKU absent from the dataset
type MissingSKUError struct {
	SKUID string
}

func (e *MissingSKUError) Error() string {
	return fmt.Sprintf("record references unknown sku %q", e.SKUID)
}

func (e *MissingSKUError) Is(target error) bool {
	return target == ErrMissingSKU
}
