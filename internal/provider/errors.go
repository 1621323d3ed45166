package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a provider API failure.
type Kind string

const (
	KindAuthFailed  Kind = "auth_failed"
	KindForbidden   Kind = "forbidden"
	KindRateLimited Kind = "rate_limited"
	KindTimeout     Kind = "timeout"
	KindNetwork     Kind = "network"
	KindUpstream    Kind = "upstream"
	KindNotFound    Kind = "not_found"
)

// Error is a classified provider API failure. A lookup that finds nothing
// is NOT an error (clients return a nil server for that); KindNotFound is
// raised only where a resolved target is required, i.e. reboot.
type Error struct {
	Provider string
	Kind     Kind
	// Status is the upstream HTTP status for KindUpstream, 0 otherwise.
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindUpstream && e.Status != 0:
		return fmt.Sprintf("%s: upstream error: status %d", e.Provider, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from an error chain. Returns "" for
// non-provider errors.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// statusError maps a non-2xx upstream status to a classified error.
func statusError(providerName string, status int) *Error {
	switch status {
	case 401:
		return &Error{Provider: providerName, Kind: KindAuthFailed}
	case 403:
		return &Error{Provider: providerName, Kind: KindForbidden}
	case 429:
		return &Error{Provider: providerName, Kind: KindRateLimited}
	default:
		return &Error{Provider: providerName, Kind: KindUpstream, Status: status}
	}
}

// transportError maps a transport-level failure to a classified error.
func transportError(providerName string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Provider: providerName, Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Provider: providerName, Kind: KindTimeout, Err: err}
	}
	return &Error{Provider: providerName, Kind: KindNetwork, Err: err}
}
