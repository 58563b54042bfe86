package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means the stock changed underneath the caller.
	ErrConflict = errors.New("stock changed, please retry")
	// ErrAlreadyCommitted means a delivery note already exists for the
	// session. Retrying the commit cannot succeed.
	ErrAlreadyCommitted = fmt.Errorf("%w: session already committed", ErrConflict)
)

type UnavailableReason string

const (
	ReasonMaintenance  UnavailableReason = "maintenance"
	ReasonRetired      UnavailableReason = "retired"
	ReasonLost         UnavailableReason = "lost"
	ReasonInsufficient UnavailableReason = "insufficient-stock"
	ReasonInstanceBusy UnavailableReason = "instance-unavailable"
)

type UnavailableError struct {
	EquipmentID string
	Reason      UnavailableReason
	Available   int32
	Requested   int32
}

func (e *UnavailableError) Error() string {
	if e.Reason == ReasonInsufficient {
		return fmt.Sprintf("equipment %s unavailable: requested %d, %d available", e.EquipmentID, e.Requested, e.Available)
	}
	return fmt.Sprintf("equipment %s unavailable: %s", e.EquipmentID, e.Reason)
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// PersistenceError wraps a gateway failure. All of them are retryable by the operator.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Retryable() bool { return true }

func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
