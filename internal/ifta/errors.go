package ifta

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRecord is returned for ledger records that must never enter an aggregation.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrUnknownJurisdiction marks a jurisdiction with ledger activity but no tax rate.
	ErrUnknownJurisdiction = errors.New("tax rate not found for jurisdiction")
	// ErrUndefinedMPG marks a calculation where no fuel was recorded to derive MPG from.
	ErrUndefinedMPG = errors.New("insufficient mileage/fuel data to derive mpg")
	// ErrUnknownStrategy is returned by ParseStrategy for unrecognised names.
	ErrUnknownStrategy = errors.New("unknown mpg strategy")
)

// InvalidRecordError describes which field of a record failed validation.
type InvalidRecordError struct {
	Kind   string // "mileage", "fuel_purchase" or "tax_rate"
	Field  string
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid %s record: %s %s", e.Kind, e.Field, e.Reason)
}

func (e *InvalidRecordError) Unwrap() error {
	return ErrInvalidRecord
}

func invalid(kind, field, reason string) error {
	return &InvalidRecordError{Kind: kind, Field: field, Reason: reason}
}
