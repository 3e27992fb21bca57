package listview

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrPageOutOfRange is returned when a page change targets a page outside [1, totalPages].
	ErrPageOutOfRange = errors.New("listview: page out of range")
	// ErrActionInFlight is returned when the same action is already running on a row.
	ErrActionInFlight = errors.New("listview: action already in flight")
	// ErrRowNotFound is returned when the row key is not in the loaded page.
	ErrRowNotFound = errors.New("listview: row not found")
	// ErrUnknownAction is returned for an action kind the resource does not support.
	ErrUnknownAction = errors.New("listview: unsupported action")
)

// ValidationError reports a precondition failure detected before any network call.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "listview: validation failed: " + e.Reason
	}
	return fmt.Sprintf("listview: validation failed on %s: %s", strings.Join(e.Fields, ", "), e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

var validate = validator.New()

// CheckStruct validates v with its struct tags and converts failures to ValidationError.
func CheckStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationError{Reason: "required field missing or invalid"}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, fe.Field())
	}
	return out
}

// ContactTarget is the precondition for send-type actions.
type ContactTarget struct {
	Email string `validate:"required"`
}

// PaymentTarget is the precondition for payment links.
type PaymentTarget struct {
	Identifier  string `validate:"required"`
	DisplayName string `validate:"required"`
	Email       string `validate:"required"`
}

// AmountInput is the precondition for saving an amount.
type AmountInput struct {
	Amount string `validate:"required,numeric"`
}

// RequireContact checks that email is present.
func RequireContact(email string) error {
	return CheckStruct(ContactTarget{Email: strings.TrimSpace(email)})
}

// RequirePaymentTarget checks identifier, display name and email.
func RequirePaymentTarget(id, name, email string) error {
	return CheckStruct(PaymentTarget{
		Identifier:  strings.TrimSpace(id),
		DisplayName: strings.TrimSpace(name),
		Email:       strings.TrimSpace(email),
	})
}

// RequireAmount checks that amount is a non-empty numeric string.
func RequireAmount(amount string) error {
	return CheckStruct(AmountInput{Amount: strings.TrimSpace(amount)})
}
