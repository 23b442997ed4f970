package model

import (
	"fmt"
	"net/http"
)

// FailureKind classifies why a lookup did not produce a response.
type FailureKind int

const (
	NotFound FailureKind = iota + 1
	ClientError
	RateLimited
	ServerError
	Transient
	Unexpected
)

func (k FailureKind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case ClientError:
		return "client_error"
	case RateLimited:
		return "rate_limited"
	case ServerError:
		return "server_error"
	case Transient:
		return "transient"
	case Unexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// Failure is a classified lookup error.
type Failure struct {
	Kind   FailureKind
	Code   int
	Detail string
	Err    error
}

func (f *Failure) Error() string {
	switch f.Kind {
	case NotFound:
		return "404 Not Found"
	case ClientError, ServerError:
		return fmt.Sprintf("HTTP %d", f.Code)
	case RateLimited:
		return fmt.Sprintf("HTTP %d", http.StatusTooManyRequests)
	case Transient:
		if f.Err != nil {
			return "network/timeout: " + f.Err.Error()
		}
		return "network/timeout"
	default:
		return "Unexpected: " + f.Detail
	}
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Retryable reports whether another attempt may succeed.
func (f *Failure) Retryable() bool {
	switch f.Kind {
	case RateLimited, ServerError, Transient:
		return true
	default:
		return false
	}
}

// StatusFailure classifies a non-success HTTP status code.
func StatusFailure(code int) *Failure {
	switch {
	case code == http.StatusNotFound:
		return &Failure{Kind: NotFound, Code: code}
	case code == http.StatusTooManyRequests:
		return &Failure{Kind: RateLimited, Code: code}
	case code >= 400 && code < 500:
		return &Failure{Kind: ClientError, Code: code}
	case code >= 500:
		return &Failure{Kind: ServerError, Code: code}
	default:
		return &Failure{Kind: Unexpected, Code: code, Detail: fmt.Sprintf("unexpected status %d", code)}
	}
}

// TransientFailure wraps a connection or timeout error.
func TransientFailure(err error) *Failure {
	return &Failure{Kind: Transient, Err: err}
}

// UnexpectedFailure wraps any other error, keeping its text for diagnostics.
func UnexpectedFailure(err error) *Failure {
	return &Failure{Kind: Unexpected, Detail: fmt.Sprintf("%T: %v", err, err), Err: err}
}
