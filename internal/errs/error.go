package errs

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// ValidationError reports missing, malformed or duplicate input. The caller
// corrects the input and retries.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func Validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a referenced record that does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NotFoundf(format string, args ...any) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// RuleViolationError reports a business rule that blocks the operation:
// penalized member, loan limit, unavailable copy, already-returned loan.
type RuleViolationError struct {
	Message string
}

func (e *RuleViolationError) Error() string { return e.Message }

func RuleViolationf(format string, args ...any) error {
	return &RuleViolationError{Message: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsRuleViolation(err error) bool {
	var re *RuleViolationError
	return errors.As(err, &re)
}
