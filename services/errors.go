package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the engine's failure taxonomy. Handlers use errors.Is
// to translate these into distinct API outcomes.
var (
	// ErrValidation covers malformed input: non-numeric or negative amounts,
	// missing required context for a context-dependent action.
	ErrValidation = errors.New("validation failed")

	// ErrActionNotFound is returned when the action key is unknown or the
	// action has been deactivated.
	ErrActionNotFound = errors.New("action not found or inactive")

	// ErrConflict signals a duplicate issuance attempt caught by the
	// idempotency guard. Callers treat it as a successful no-op.
	ErrConflict = errors.New("already completed")

	// ErrInsufficientBalance rejects a spend exceeding the current balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrPersistence wraps transient storage failures after retries are
	// exhausted. The caller may retry the whole operation.
	ErrPersistence = errors.New("storage failure")

	// ErrInvalidTransition rejects a pioneer access-status change that the
	// state machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// PartialFailureError reports that one leg of a referral distribution failed
// while the rest of the operation succeeded. The primary credit is never
// rolled back because of it.
type PartialFailureError struct {
	DirectErr   error
	IndirectErr error
}

func (e *PartialFailureError) Error() string {
	var parts []string
	if e.DirectErr != nil {
		parts = append(parts, fmt.Sprintf("direct payout: %v", e.DirectErr))
	}
	if e.IndirectErr != nil {
		parts = append(parts, fmt.Sprintf("indirect payout: %v", e.IndirectErr))
	}
	return "referral distribution partially failed: " + strings.Join(parts, "; ")
}

// Failed reports whether any leg actually failed.
func (e *PartialFailureError) Failed() bool {
	return e.DirectErr != nil || e.IndirectErr != nil
}
