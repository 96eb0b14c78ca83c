// Package apperr defines the application error taxonomy and its HTTP mapping.
// Every handler funnels errors through HTTPStatus so the same failure always
// maps to the same status code, instead of each route inventing its own.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindCrossRestaurantCart
	KindAuthentication
	KindPaymentGateway
	KindSignatureMismatch
	KindNotFound
)

// Error carries a kind, a client-safe message, and an optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports missing or malformed input.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// CrossRestaurantCart reports a cart mixing items from multiple restaurants.
func CrossRestaurantCart(msg string) *Error {
	return &Error{Kind: KindCrossRestaurantCart, Msg: msg}
}

// Authentication reports a missing, invalid, or expired credential.
func Authentication(msg string, cause error) *Error {
	return &Error{Kind: KindAuthentication, Msg: msg, Err: cause}
}

// PaymentGateway reports an upstream payment gateway failure.
func PaymentGateway(msg string, cause error) *Error {
	return &Error{Kind: KindPaymentGateway, Msg: msg, Err: cause}
}

// SignatureMismatch reports a forged or corrupted payment confirmation.
func SignatureMismatch(msg string) *Error {
	return &Error{Kind: KindSignatureMismatch, Msg: msg}
}

// NotFound reports an unknown entity.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// KindOf extracts the Kind from err, if it wraps an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// Message returns the client-safe message for err, or a generic fallback.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Msg
	}
	return "internal server error"
}

// HTTPStatus maps an error to its HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindCrossRestaurantCart, KindSignatureMismatch:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindPaymentGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
