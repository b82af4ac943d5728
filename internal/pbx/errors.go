package pbx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Code is a stable machine-readable classification for PBX failures.
// Handlers map codes to HTTP statuses; clients branch on codes, never on
// message text.
type Code string

const (
	CodeNotConnected Code = "not_connected"
	CodeUnreachable  Code = "unreachable"
	CodeUnauthorized Code = "unauthorized"
	CodeTimeout      Code = "timeout"
	CodeTLS          Code = "tls_failure"
	CodeVendor       Code = "vendor_error"
	CodeNoActivePBX  Code = "no_active_pbx"
)

// Error wraps every vendor-facing failure. Callers never see a raw
// transport error from this package.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pbx: %s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("pbx: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Errf builds an *Error with a formatted message and no cause.
func Errf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrNoActivePBX signals that no PBX configuration is active. It is a
// distinct condition so the UI can render "not configured" instead of a
// generic failure.
var ErrNoActivePBX = &Error{Code: CodeNoActivePBX, Message: "no active PBX configuration"}

// ErrNotConnected signals a data call issued before Connect.
var ErrNotConnected = &Error{Code: CodeNotConnected, Message: "adapter is not connected"}

// CodeOf extracts the classification from err, or CodeVendor when err is
// not a *pbx.Error.
func CodeOf(err error) Code {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeVendor
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// classifyTransport maps a transport-level error from the HTTP client to a
// stable code, preserving the cause.
func classifyTransport(err error, msg string) *Error {
	code := CodeUnreachable
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		code = CodeTimeout
	case isTLSError(err):
		code = CodeTLS
	}
	return &Error{Code: code, Message: msg, Cause: err}
}

func isTLSError(err error) bool {
	var (
		recordErr   tls.RecordHeaderError
		certErr     *tls.CertificateVerificationError
		hostnameErr x509.HostnameError
		unknownErr  x509.UnknownAuthorityError
	)
	return errors.As(err, &recordErr) || errors.As(err, &certErr) ||
		errors.As(err, &hostnameErr) || errors.As(err, &unknownErr)
}

// classifyStatus maps a non-2xx vendor response to a code.
func classifyStatus(status int, msg string) *Error {
	code := CodeVendor
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		code = CodeUnauthorized
	}
	return &Error{Code: code, Message: fmt.Sprintf("%s: vendor returned HTTP %d", msg, status)}
}
