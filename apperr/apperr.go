// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can tell them apart.
type Kind string

const (
	KindInternal            Kind = "internal"
	KindNotFound            Kind = "not_found"
	KindForbidden           Kind = "forbidden"
	KindIneligible          Kind = "eligibility_denied"
	KindValidation          Kind = "validation_failed"
	KindPolicyConflict      Kind = "policy_conflict"
	KindConcurrencyConflict Kind = "concurrency_conflict"
)

// Error is a classified, terminal failure.
type Error struct {
	Kind    Kind
	Message string
	Details []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newError(KindForbidden, format, args...)
}

func Ineligible(format string, args ...any) *Error {
	return newError(KindIneligible, format, args...)
}

func Invalid(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func PolicyConflict(format string, args ...any) *Error {
	return newError(KindPolicyConflict, format, args...)
}

func ConcurrencyConflict(format string, args ...any) *Error {
	return newError(KindConcurrencyConflict, format, args...)
}

// WithDetails attaches per-field or per-check detail lines.
func (e *Error) WithDetails(details ...string) *Error {
	e.Details = append(e.Details, details...)
	return e
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error to its response code. Every kind has its own code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindIneligible:
		return http.StatusUnprocessableEntity
	case KindValidation:
		return http.StatusBadRequest
	case KindPolicyConflict:
		return http.StatusConflict
	case KindConcurrencyConflict:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
