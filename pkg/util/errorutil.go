package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the closed set of failure classes seen at the backend call boundary.
type ErrorKind string

const (
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindForbidden       ErrorKind = "forbidden"
	KindValidation      ErrorKind = "validation"
	KindNotFound        ErrorKind = "not_found"
	KindTransport       ErrorKind = "transport"
	KindBackend         ErrorKind = "backend"
	KindInternal        ErrorKind = "internal"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Kind       ErrorKind
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code string, kind ErrorKind, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Kind: kind, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", KindValidation, message, http.StatusBadRequest, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", KindUnauthenticated, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", KindForbidden, message, http.StatusForbidden, nil)
}

// NewTransportError wraps a failure to reach the backend at all.
func NewTransportError(err error) error {
	return transportError(err)
}

func transportError(err error) *DomainError {
	return &DomainError{
		Code:       "BACKEND_UNREACHABLE",
		Kind:       KindTransport,
		Message:    "backend unreachable",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewBackendError reports a non-authorization failure returned by the backend.
func NewBackendError(status int, message string) error {
	if message == "" {
		message = http.StatusText(status)
	}
	return NewDomainError("BACKEND_ERROR", KindBackend, message, status, nil)
}

func NewInternalError(err error) error {
	return internalError(err)
}

func internalError(err error) *DomainError {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Kind:       KindInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// FromStatus classifies a backend HTTP status and message into a DomainError.
func FromStatus(status int, message string) error {
	switch {
	case status == http.StatusUnauthorized:
		return NewUnauthorized(orStatusText(message, status))
	case status == http.StatusForbidden:
		return NewForbidden(orStatusText(message, status))
	case status == http.StatusNotFound:
		return NewDomainError("NOT_FOUND", KindNotFound, orStatusText(message, status), status, nil)
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return NewDomainError("VALIDATION_FAILED", KindValidation, orStatusText(message, status), status, nil)
	default:
		return NewBackendError(status, message)
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return transportError(err)
	}
	return internalError(err)
}

// KindOf reports the ErrorKind carried by err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	return ToDomainError(err).Kind
}

func orStatusText(message string, status int) string {
	if message != "" {
		return message
	}
	return http.StatusText(status)
}
