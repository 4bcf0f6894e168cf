package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrResponseTooLarge is returned when a response body exceeds the size the
// client reads.
var ErrResponseTooLarge = errors.New("response too large")

// DefaultLoginMessage is used when a failed login carries no server message.
const DefaultLoginMessage = "Errore durante il login"

// AuthError reports rejected credentials.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// FetchError reports a non-2xx answer to a read.
type FetchError struct {
	Path    string
	Status  int
	Message string
}

func (e *FetchError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("GET %s: status %d: %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("GET %s: status %d", e.Path, e.Status)
}

// MutationError reports a non-2xx answer to a write. Message holds the
// server-supplied message when there was one.
type MutationError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *MutationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

// NetworkError reports a request that never produced a response.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a read that answered 404.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Status == http.StatusNotFound
}

// IsUnauthorized reports whether err is a 401 from any request kind.
func IsUnauthorized(err error) bool {
	var (
		fe *FetchError
		me *MutationError
		ae *AuthError
	)
	switch {
	case errors.As(err, &fe):
		return fe.Status == http.StatusUnauthorized
	case errors.As(err, &me):
		return me.Status == http.StatusUnauthorized
	case errors.As(err, &ae):
		return true
	}
	return false
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
