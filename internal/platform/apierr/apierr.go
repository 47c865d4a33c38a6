package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeUnauthenticated     = "unauthenticated"
	CodeForbidden           = "forbidden"
	CodeNotFound            = "not_found"
	CodeConflict            = "conflict"
	CodeBadRequest          = "bad_request"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeOAuthExchangeFailed = "oauth_exchange_failed"
	CodeInternal            = "internal_error"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so that errors.Is(err, apierr.ErrNotFound) holds for
// any not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

var (
	ErrUnauthenticated     = New(http.StatusUnauthorized, CodeUnauthenticated, nil)
	ErrForbidden           = New(http.StatusForbidden, CodeForbidden, nil)
	ErrNotFound            = New(http.StatusNotFound, CodeNotFound, nil)
	ErrConflict            = New(http.StatusConflict, CodeConflict, nil)
	ErrBadRequest          = New(http.StatusBadRequest, CodeBadRequest, nil)
	ErrUpstreamUnavailable = New(http.StatusBadGateway, CodeUpstreamUnavailable, nil)
	ErrOAuthExchangeFailed = New(http.StatusBadRequest, CodeOAuthExchangeFailed, nil)
)

func Unauthenticated(format string, args ...any) *Error {
	return New(http.StatusUnauthorized, CodeUnauthenticated, fmt.Errorf(format, args...))
}

func Forbidden(format string, args ...any) *Error {
	return New(http.StatusForbidden, CodeForbidden, fmt.Errorf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func Conflict(format string, args ...any) *Error {
	return New(http.StatusConflict, CodeConflict, fmt.Errorf(format, args...))
}

func BadRequest(format string, args ...any) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, fmt.Errorf(format, args...))
}

func UpstreamUnavailable(format string, args ...any) *Error {
	return New(http.StatusBadGateway, CodeUpstreamUnavailable, fmt.Errorf(format, args...))
}

func OAuthExchangeFailed(format string, args ...any) *Error {
	return New(http.StatusBadRequest, CodeOAuthExchangeFailed, fmt.Errorf(format, args...))
}

// As extracts the classified error from err, falling back to a 500.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae
	}
	return New(http.StatusInternalServerError, CodeInternal, err)
}
