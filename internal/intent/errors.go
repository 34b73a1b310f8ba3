package intent

import (
	"errors"
	"fmt"

	"github.com/Veraticus/till/internal/model"
)

// ValidationCode identifies why an intent was rejected before any network
// call.
type ValidationCode string

// Validation codes.
const (
	CodeInvalidAmount         ValidationCode = "InvalidAmount"
	CodeBelowMinimum          ValidationCode = "BelowMinimum"
	CodeAboveMaximum          ValidationCode = "AboveMaximum"
	CodeInsufficientBalance   ValidationCode = "InsufficientBalance"
	CodeMissingChannelDetails ValidationCode = "MissingChannelDetails"
	CodeStaleBalance          ValidationCode = "StaleBalance"
)

// Sentinels matched with errors.Is against a *ValidationError.
var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrBelowMinimum          = errors.New("amount below minimum")
	ErrAboveMaximum          = errors.New("amount above maximum")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrMissingChannelDetails = errors.New("missing channel details")
	ErrStaleBalance          = errors.New("balance is out of date")
)

// Pipeline errors.
var (
	// ErrBusy is returned when a confirmation is attempted while a call for
	// the same form is still outstanding.
	ErrBusy = errors.New("a submission is already in progress")
	// ErrInvalidTransition is returned when an operation does not apply to
	// the intent's current status.
	ErrInvalidTransition = errors.New("invalid intent transition")
)

var sentinels = map[ValidationCode]error{
	CodeInvalidAmount:         ErrInvalidAmount,
	CodeBelowMinimum:          ErrBelowMinimum,
	CodeAboveMaximum:          ErrAboveMaximum,
	CodeInsufficientBalance:   ErrInsufficientBalance,
	CodeMissingChannelDetails: ErrMissingChannelDetails,
	CodeStaleBalance:          ErrStaleBalance,
}

// ValidationError is a client-detected problem with user input. Message is
// written for the user.
type ValidationError struct {
	Code    ValidationCode
	Message string
}

func newValidationError(code ValidationCode, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return sentinels[e.Code]
}

func transitionError(op string, from model.IntentStatus) error {
	return fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, op, from)
}
