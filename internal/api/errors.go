// Package api provides the HTTP client for the Sakhi backend.
package api

import (
	"errors"
	"fmt"
)

// Sentinel errors for backend requests.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnreachable indicates the transport failed to reach the backend at
	// all. Distinct from credential problems so callers can tell "server is
	// down" from "session is stale".
	ErrUnreachable = errors.New("backend unreachable")

	// ErrAuthentication indicates the request was rejected for missing or
	// expired credentials and the refresh-and-retry path was exhausted. The
	// token store has been cleared by the time this surfaces.
	ErrAuthentication = errors.New("authentication failed")
)

// StatusError is a structured error payload returned by the backend, such as
// a wrong password or a duplicate email. The detail is intended to be shown
// to the user largely verbatim.
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("server returned status %d", e.Status)
}

// IsStatus reports whether err is a StatusError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
