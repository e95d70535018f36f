package client

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthenticated is returned when an operation needs a session and
// none is present. Callers should redirect to sign-in instead of retrying.
var ErrUnauthenticated = errors.New("not signed in")

// ErrNotFound is returned when an identifier does not resolve on the hub.
var ErrNotFound = errors.New("not found")

// ErrOutOfStock is returned when the hub reports insufficient available
// quantity at processing time. This can happen even after a passing
// client-side check; a concurrent importer may have drained the pool.
var ErrOutOfStock = errors.New("out of stock")

// ValidationError reports input problems detected before any request is
// sent. It never reaches the network.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %s", strings.Join(e.Fields, ", "))
}

// NetworkError wraps a transport-level failure with no server response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network failure: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError is a well-formed rejection from the hub for a well-formed
// request.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("hub rejected request (%d): %s", e.Status, e.Message)
}
