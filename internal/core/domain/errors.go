package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the core wraps exactly one of these,
// so the transport layer can map it with errors.Is.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("access forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("conflict")
	ErrUpstream          = errors.New("upstream failure")
)

var (
	ErrTokenExpired   = fmt.Errorf("%w: token expired", ErrUnauthenticated)
	ErrTokenMalformed = fmt.Errorf("%w: token malformed", ErrUnauthenticated)
	ErrTokenWrongType = fmt.Errorf("%w: wrong token type", ErrUnauthenticated)
	ErrMissingToken   = fmt.Errorf("%w: token not found", ErrUnauthenticated)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	ErrUserExists         = fmt.Errorf("%w: user already exists", ErrConflict)

	ErrOrderNotFound   = fmt.Errorf("%w: order", ErrNotFound)
	ErrProductNotFound = fmt.Errorf("%w: product", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("%w: user", ErrNotFound)
)

// Kind is the machine-readable category of an error.
type Kind string

const (
	KindUnauthenticated   Kind = "unauthenticated"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindInvalidInput      Kind = "invalid_input"
	KindInvalidTransition Kind = "invalid_transition"
	KindConflict          Kind = "conflict"
	KindUpstream          Kind = "upstream_failure"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrUnauthenticated, KindUnauthenticated},
	{ErrForbidden, KindForbidden},
	{ErrNotFound, KindNotFound},
	{ErrInvalidInput, KindInvalidInput},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrConflict, KindConflict},
	{ErrUpstream, KindUpstream},
}

// KindOf returns the kind wrapped by err, or "" when err is not a domain error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return ""
}

// Upstream wraps a storage or transport failure. Errors that already carry a
// domain kind are returned unchanged.
func Upstream(op string, err error) error {
	if err == nil || KindOf(err) != "" {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}
