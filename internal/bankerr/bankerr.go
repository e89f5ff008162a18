// Package bankerr defines the error taxonomy shared by the account store, the
// transfer engine and the HTTP layer. Every rejection carries a stable kind tag
// that callers match with errors.Is against the sentinel values below.
package bankerr

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Kind is a stable, transport independent error tag.
type Kind string

const (
	KindInvalidAmount         Kind = "invalid_amount"
	KindSameAccount           Kind = "same_account"
	KindNotFound              Kind = "not_found"
	KindInsufficientFunds     Kind = "insufficient_funds"
	KindConflict              Kind = "conflict"
	KindTimeout               Kind = "timeout"
	KindInternalInconsistency Kind = "internal_inconsistency"
	KindInvalidRequest        Kind = "invalid_request"
	KindUnauthorized          Kind = "unauthorized"
	KindForbidden             Kind = "forbidden"
	KindInternal              Kind = "internal"
)

// Error is the concrete error type returned across component boundaries.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Msg != "" {
		b.WriteString(e.Msg)
	} else {
		b.WriteString(strings.ReplaceAll(string(e.Kind), "_", " "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind, so a detailed error
// matches the bare sentinel of its kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	// ErrInvalidAmount: amount is zero, negative, or malformed.
	ErrInvalidAmount = &Error{Kind: KindInvalidAmount}
	// ErrSameAccount: source and destination are the same account.
	ErrSameAccount = &Error{Kind: KindSameAccount}
	// ErrNotFound: a referenced account or record does not exist.
	ErrNotFound = &Error{Kind: KindNotFound}
	// ErrInsufficientFunds: the debit would leave a balance below zero.
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	// ErrConflict: a uniqueness constraint was violated.
	ErrConflict = &Error{Kind: KindConflict}
	// ErrTimeout: coordination could not be acquired in time. Nothing was mutated.
	ErrTimeout = &Error{Kind: KindTimeout}
	// ErrInternalInconsistency: a post-lock mutation failed unexpectedly.
	ErrInternalInconsistency = &Error{Kind: KindInternalInconsistency}
	ErrInvalidRequest        = &Error{Kind: KindInvalidRequest}
	ErrUnauthorized          = &Error{Kind: KindUnauthorized}
	ErrForbidden             = &Error{Kind: KindForbidden}
)

// New builds an error of the given kind with a human readable message.
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the kind of err. Context expiry maps to KindTimeout and any
// untyped error is KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindInternal
}

// Retryable reports whether the caller may safely repeat the request.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindInsufficientFunds:
		return true
	default:
		return false
	}
}

// HTTPStatus maps a kind onto a transport status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidAmount, KindSameAccount, KindInsufficientFunds, KindInvalidRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTimeout:
		return http.StatusServiceUnavailable
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
