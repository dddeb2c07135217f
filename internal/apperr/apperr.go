// Package apperr defines the closed set of error kinds the domain
// packages raise and the HTTP status each maps to at the handler
// boundary (spec §7).
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-multierror"
)

// Kind is the closed enumeration of domain error kinds.
type Kind string

const (
	Validation            Kind = "validation"
	JSONDecode            Kind = "json_decode"
	Database              Kind = "database"
	Unauthorized          Kind = "unauthorized"
	Forbidden             Kind = "forbidden"
	InvalidCredentials    Kind = "invalid_credentials"
	UserAlreadyExists     Kind = "user_already_exists"
	UserNotFound          Kind = "user_not_found"
	MarketNotFound        Kind = "market_not_found"
	MarketAlreadyResolved Kind = "market_already_resolved"
	BuyOrderNotFound      Kind = "buy_order_not_found"
	InsufficientFunds     Kind = "insufficient_funds"
	AirdropCooldown       Kind = "airdrop_cooldown"
	Ledger                Kind = "ledger"
	Unexpected            Kind = "unexpected"
)

// AppError is the error type propagated out of every core operation.
type AppError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *AppError {
	return &AppError{Kind: kind, Message: message, Cause: cause}
}

// DatabaseErr wraps a low-level storage failure. Database and Ledger
// errors carry a generic message and map to a 500, so the cause never
// reaches the client; neither constructor logs the cause.
func DatabaseErr(cause error) *AppError {
	return Wrap(Database, "database operation failed", cause)
}

func LedgerErr(cause error) *AppError {
	return Wrap(Ledger, "ledger operation failed", cause)
}

// StatusFor maps a Kind to its HTTP status code (spec §6/§7).
func StatusFor(k Kind) int {
	switch k {
	case Validation, JSONDecode, MarketAlreadyResolved:
		return http.StatusBadRequest
	case Unauthorized, InvalidCredentials:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case UserNotFound, MarketNotFound, BuyOrderNotFound:
		return http.StatusNotFound
	case UserAlreadyExists:
		return http.StatusConflict
	case InsufficientFunds, AirdropCooldown:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an *AppError from err, or reports Unexpected if it is
// not already one.
func As(err error) *AppError {
	if err == nil {
		return nil
	}
	var ae *AppError
	if ok := errors.As(err, &ae); ok {
		return ae
	}
	return Wrap(Unexpected, "unexpected error", err)
}

// FieldValidator accumulates per-field validation failures and
// joins them comma-separated on Err(), matching spec §7 ("Validation
// errors enumerate every field message, comma-joined.").
type FieldValidator struct {
	errs *multierror.Error
}

func (v *FieldValidator) Require(cond bool, field, message string) {
	if !cond {
		v.errs = multierror.Append(v.errs, fmt.Errorf("%s: %s", field, message))
	}
}

func (v *FieldValidator) Err() error {
	if v.errs == nil || len(v.errs.Errors) == 0 {
		return nil
	}
	v.errs.ErrorFormat = func(errs []error) string {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		joined := ""
		for i, m := range msgs {
			if i > 0 {
				joined += ", "
			}
			joined += m
		}
		return joined
	}
	return New(Validation, v.errs.Error())
}
