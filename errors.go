package deluge

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrorCode classifies transport- and framing-level failures for
// client-side handling. Daemon-side rejections never appear here; they
// arrive as RPCError values inside a Response.
type ErrorCode string

const (
	// ErrorCodeNone indicates no error
	ErrorCodeNone ErrorCode = ""

	// ErrorCodeConnection indicates the endpoint could not be reached for a
	// reason that resists finer classification
	ErrorCodeConnection ErrorCode = "CONNECTION_ERROR"

	// ErrorCodeConnectionRefused indicates the server actively refused the connection
	ErrorCodeConnectionRefused ErrorCode = "CONNECTION_REFUSED"

	// ErrorCodeNetworkUnreachable indicates network routing issues
	ErrorCodeNetworkUnreachable ErrorCode = "NETWORK_UNREACHABLE"

	// ErrorCodeDNS indicates DNS resolution failure - check hostname configuration
	ErrorCodeDNS ErrorCode = "DNS_ERROR"

	// ErrorCodeSSL indicates an SSL/TLS certificate or connection error
	ErrorCodeSSL ErrorCode = "SSL_ERROR"

	// ErrorCodeHTTPSRequired indicates HTTP was used but HTTPS is required
	ErrorCodeHTTPSRequired ErrorCode = "HTTPS_REQUIRED"

	// ErrorCodeTimeout indicates the request exceeded the configured duration
	ErrorCodeTimeout ErrorCode = "TIMEOUT"

	// ErrorCodeHTTP indicates a non-2xx status from the endpoint; the
	// ClientError carries the status code
	ErrorCodeHTTP ErrorCode = "HTTP_ERROR"

	// ErrorCodeProtocol indicates HTTP succeeded but the body is not a
	// well-formed result envelope
	ErrorCodeProtocol ErrorCode = "PROTOCOL_ERROR"

	// ErrorCodeIO indicates a local file read failure, raised before any
	// network activity
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeUnknown indicates an unclassified error
	ErrorCodeUnknown ErrorCode = "UNKNOWN"
)

// ClientError represents a structured error with classification.
type ClientError struct {
	Code    ErrorCode
	Message string
	Err     error
	// StatusCode is set for ErrorCodeHTTP only.
	StatusCode int
	// Permanent indicates whether this error requires user intervention (true)
	// or can be resolved by retrying (false). The client never retries on its
	// own; callers layering retry externally can branch on this.
	Permanent bool
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// IsPermanent returns true if the error requires user intervention.
func (e *ClientError) IsPermanent() bool {
	return e.Permanent
}

// NewClientError creates a new ClientError.
func NewClientError(code ErrorCode, message string, err error, permanent bool) *ClientError {
	return &ClientError{
		Code:      code,
		Message:   message,
		Err:       err,
		Permanent: permanent,
	}
}

// newHTTPError wraps a non-2xx HTTP status. Client errors other than 408/429
// point at a wrong URL or setup and are marked permanent.
func newHTTPError(statusCode int, body string) *ClientError {
	return &ClientError{
		Code:       ErrorCodeHTTP,
		Message:    fmt.Sprintf("request failed with status %d: %s", statusCode, strings.TrimSpace(body)),
		StatusCode: statusCode,
		Permanent:  statusCode >= 400 && statusCode < 500 && statusCode != 408 && statusCode != 429,
	}
}

// ClassifyError analyzes an error and returns a structured ClientError.
func ClassifyError(err error) *ClientError {
	if err == nil {
		return nil
	}

	// Already a ClientError
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewClientError(
			ErrorCodeTimeout,
			"request timed out",
			err,
			false,
		)
	}

	// DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NewClientError(
			ErrorCodeDNS,
			fmt.Sprintf("failed to resolve hostname: %s", dnsErr.Name),
			err,
			true,
		)
	}

	// Network operation errors (connection refused, timeout, etc.)
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return classifyOpError(opErr, err)
	}

	// URL errors
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Check if it wraps another error we can classify
		if urlErr.Err != nil {
			if classified := ClassifyError(urlErr.Err); classified != nil && classified.Code != ErrorCodeUnknown {
				return classified
			}
		}

		if urlErr.Timeout() {
			return NewClientError(
				ErrorCodeTimeout,
				"request timed out",
				err,
				false,
			)
		}
	}

	// TLS/SSL errors
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return NewClientError(
			ErrorCodeSSL,
			"SSL certificate verification failed",
			err,
			true,
		)
	}

	// Check for common error patterns in the error string
	return classifyByMessage(err.Error(), err)
}

// classifyOpError classifies net.OpError errors.
func classifyOpError(opErr *net.OpError, originalErr error) *ClientError {
	if opErr.Op == "dial" {
		if strings.Contains(opErr.Error(), "connection refused") {
			return NewClientError(
				ErrorCodeConnectionRefused,
				"connection refused - daemon may be down or port is incorrect",
				originalErr,
				false,
			)
		}

		if strings.Contains(opErr.Error(), "no route to host") ||
			strings.Contains(opErr.Error(), "network is unreachable") {
			return NewClientError(
				ErrorCodeNetworkUnreachable,
				"network unreachable - check network connectivity",
				originalErr,
				false,
			)
		}
	}

	if opErr.Timeout() {
		return NewClientError(
			ErrorCodeTimeout,
			"connection timed out",
			originalErr,
			false,
		)
	}

	return NewClientError(
		ErrorCodeConnection,
		"network operation failed",
		originalErr,
		false,
	)
}

// classifyByMessage classifies errors based on error message patterns.
func classifyByMessage(errStr string, err error) *ClientError {
	lowerErr := strings.ToLower(errStr)

	// Timeout patterns
	if strings.Contains(lowerErr, "timeout") ||
		strings.Contains(lowerErr, "deadline exceeded") ||
		strings.Contains(lowerErr, "context canceled") {
		return NewClientError(
			ErrorCodeTimeout,
			"request timed out",
			err,
			false,
		)
	}

	// SSL/TLS patterns
	if strings.Contains(lowerErr, "certificate") ||
		strings.Contains(lowerErr, "x509") ||
		strings.Contains(lowerErr, "tls") ||
		strings.Contains(lowerErr, "ssl") {
		return NewClientError(
			ErrorCodeSSL,
			"SSL/TLS connection failed - check certificate configuration",
			err,
			true,
		)
	}

	// HTTP/HTTPS mismatch
	if strings.Contains(lowerErr, "malformed http response") ||
		strings.Contains(lowerErr, "first record does not look like a tls handshake") {
		return NewClientError(
			ErrorCodeHTTPSRequired,
			"protocol mismatch - try using HTTPS instead of HTTP",
			err,
			true,
		)
	}

	// Connection refused
	if strings.Contains(lowerErr, "connection refused") {
		return NewClientError(
			ErrorCodeConnectionRefused,
			"connection refused - daemon may be down",
			err,
			false,
		)
	}

	// DNS patterns
	if strings.Contains(lowerErr, "no such host") ||
		strings.Contains(lowerErr, "lookup") ||
		strings.Contains(lowerErr, "dns") {
		return NewClientError(
			ErrorCodeDNS,
			"DNS resolution failed - check hostname",
			err,
			true,
		)
	}

	return NewClientError(
		ErrorCodeUnknown,
		"unknown error occurred",
		err,
		false,
	)
}

// connectionCodes are the codes meaning the endpoint could not be reached.
var connectionCodes = map[ErrorCode]bool{
	ErrorCodeConnection:         true,
	ErrorCodeConnectionRefused:  true,
	ErrorCodeNetworkUnreachable: true,
	ErrorCodeDNS:                true,
	ErrorCodeSSL:                true,
	ErrorCodeHTTPSRequired:      true,
}

// IsConnectionError reports whether err means the endpoint was unreachable
// (DNS failure, refused connection, TLS failure, routing).
func IsConnectionError(err error) bool {
	return connectionCodes[GetErrorCode(err)]
}

// IsTimeoutError reports whether err means the configured duration elapsed.
func IsTimeoutError(err error) bool {
	return GetErrorCode(err) == ErrorCodeTimeout
}

// IsHTTPError reports whether err is a non-2xx HTTP status failure.
func IsHTTPError(err error) bool {
	return GetErrorCode(err) == ErrorCodeHTTP
}

// IsProtocolError reports whether err means the response body was not a
// well-formed result envelope.
func IsProtocolError(err error) bool {
	return GetErrorCode(err) == ErrorCodeProtocol
}

// IsIOError reports whether err is a local file read failure.
func IsIOError(err error) bool {
	return GetErrorCode(err) == ErrorCodeIO
}

// HTTPStatus extracts the status code from an HTTP_ERROR, or 0.
func HTTPStatus(err error) int {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.StatusCode
	}
	return 0
}

// IsRetryableError returns true if the error is temporary and can be retried.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return !clientErr.Permanent
	}

	return !ClassifyError(err).Permanent
}

// IsPermanentError returns true if the error requires user intervention.
func IsPermanentError(err error) bool {
	if err == nil {
		return false
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Permanent
	}

	return ClassifyError(err).Permanent
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ErrorCodeNone
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Code
	}

	return ClassifyError(err).Code
}
