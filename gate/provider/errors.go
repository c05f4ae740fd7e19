package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when the provider answers with a body
// whose result field does not have the expected shape.
var ErrMalformedResponse = errors.New("provider: malformed response")

// APIError is a provider-side failure: a non-2xx status or an error field
// in an otherwise successful response.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider %s: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("provider %s: %s", e.Op, e.Message)
}

// Code returns a short label for logs.
func (e *APIError) Code() string {
	return "PROVIDER_API"
}

// Reason classifies err into a short label used in logs and metrics.
func Reason(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.As(err, &apiErr):
		return "api"
	default:
		return "transport"
	}
}
