package settings

import (
	"errors"
	"fmt"
)

// ErrConfigMissing is returned when a property or environment entry is not
// defined in the tiers that were consulted.
var ErrConfigMissing = errors.New("configuration option not found")

// ErrUnrepresentable is returned when a key or value would not read back
// unchanged from the settings file.
var ErrUnrepresentable = errors.New("value cannot be stored in the settings file")

// MissingError names the key that could not be found.
type MissingError struct {
	Section string
	Key     string
	// Tier is empty when both tiers were consulted.
	Tier Tier
}

func (e *MissingError) Error() string {
	if e.Tier == "" {
		return fmt.Sprintf("no option %q in section %q", e.Key, e.Section)
	}
	return fmt.Sprintf("no option %q in section %q of the %s configuration", e.Key, e.Section, e.Tier)
}

func (e *MissingError) Is(target error) bool {
	return target == ErrConfigMissing
}

// StoreError wraps I/O and parse failures of a tier file.
type StoreError struct {
	Path      string
	Operation string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("settings store %s %s failed: %v", e.Path, e.Operation, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
