// Package errs defines the failure taxonomy shared by every core
// component: validation, not-found, integration and computation errors.
// Expected failures travel as these typed errors; only genuinely
// unexpected faults are passed through wrapped.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// ValidationError: caller input can be corrected (missing field, wrong
// status, combine conflict). Never retried automatically.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFoundError: unknown load/customer/carrier/document id.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Collection, e.ID)
}

func NotFound(collection, id string) error {
	return &NotFoundError{Collection: collection, ID: id}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IntegrationError: a provider is unreachable, misconfigured or
// answered with an error. Carries the provider's raw detail for
// operator diagnosis; distinct from "provider returned no data".
type IntegrationError struct {
	Provider   string
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

func (e *IntegrationError) Error() string {
	msg := fmt.Sprintf("%s: %s failed", e.Provider, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (http %d)", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IntegrationError) Unwrap() error { return e.Err }

func Integration(provider, op string, status int, detail string, err error) error {
	return &IntegrationError{Provider: provider, Op: op, StatusCode: status, Detail: detail, Err: err}
}

// NotConfigured is the integration failure for a provider whose
// required credentials are absent.
func NotConfigured(provider string) error {
	return &IntegrationError{Provider: provider, Op: "configure", Detail: "provider is not configured"}
}

func IsIntegration(err error) bool {
	var ie *IntegrationError
	return errors.As(err, &ie)
}

// ComputationError: degenerate numeric input (e.g. target margin
// >= 100%). Raised before any side effect.
type ComputationError struct {
	Msg string
}

func (e *ComputationError) Error() string { return e.Msg }

func Computationf(format string, args ...any) error {
	return &ComputationError{Msg: fmt.Sprintf(format, args...)}
}

func IsComputation(err error) bool {
	var ce *ComputationError
	return errors.As(err, &ce)
}
