// Package apperr classifies failures into the kinds the HTTP surface is
// allowed to expose. Internal detail stays server-side; callers only ever see
// the kind-level message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Authentication Kind = iota + 1 // credential could not be verified
	Authorization                  // valid identity, wrong owner
	NotFound                       // referenced entity absent
	Validation                     // malformed, oversized or unsupported input
	Dependency                     // object store, record store or engine failure
)

type Error struct {
	Kind   Kind
	Op     string // stage or collaborator, for server logs
	Public string // caller-visible message
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Public)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, op, public string) *Error {
	return &Error{Kind: kind, Op: op, Public: public}
}

func Wrap(kind Kind, op, public string, err error) *Error {
	return &Error{Kind: kind, Op: op, Public: public, Err: err}
}

// KindOf returns the kind of err, or Dependency for unclassified errors so
// that nothing unexpected leaks as anything other than a server failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Dependency
}

func Status(err error) int {
	switch KindOf(err) {
	case Authentication:
		return http.StatusUnauthorized
	case Authorization:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Validation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to include in a response body.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Public != "" {
		return e.Public
	}
	return "internal error"
}
