package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"reward-ledger/dbctx"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// Outcome describes how a reward operation ended when it did not fail.
// Anything other than OutcomeGranted means nothing was changed.
type Outcome string

const (
	OutcomeGranted           Outcome = "granted"
	OutcomeDailyLimitReached Outcome = "daily_limit_reached"
	OutcomeAlreadyAwarded    Outcome = "already_awarded"
	OutcomeAlreadyOwned      Outcome = "already_owned"
)

// Reason maps an error to the stable string handed back to callers.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, dbctx.ErrTransientConflict):
		return "transient_conflict"
	default:
		return "internal_error"
	}
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// translate turns gorm's missing-row error into ErrNotFound.
func translate(err error, what string, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("%s %s", what, id)
	}
	return err
}
