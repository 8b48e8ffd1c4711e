package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches any 401 from the service and any missing or
	// expired session that callers must treat the same way.
	ErrUnauthorized = errors.New("api: unauthorized")
	// ErrForbidden matches a 403: the session is valid but may not touch the
	// requested collection.
	ErrForbidden = errors.New("api: forbidden")
)

// Error is a non-2xx response from the catalog service.
type Error struct {
	Status  int
	Message string
	Path    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s: %d %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("api: %s: %d %s", e.Path, e.Status, http.StatusText(e.Status))
}

// Is lets errors.Is(err, ErrUnauthorized) and errors.Is(err, ErrForbidden)
// match on the status code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	}
	return false
}

// NetworkError means the request never produced a response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("api: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

const (
	msgGeneric     = "Something went wrong."
	msgUnreachable = "Could not reach the server."
	msgForbidden   = "You do not have permission to access this collection."
)

// Describe turns err into text that can be shown to the operator: the
// service's own message when it sent one, a reachability message when no
// response arrived, and a generic message otherwise.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return msgUnreachable
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if apiErr.Status == http.StatusForbidden {
			return msgForbidden
		}
	}
	if errors.Is(err, ErrForbidden) {
		return msgForbidden
	}
	return msgGeneric
}

// ForbiddenMessage is the text shown when a collection cannot be opened.
func ForbiddenMessage() string { return msgForbidden }

// GenericMessage is the text shown for failures without a better description.
func GenericMessage() string { return msgGeneric }

// Status returns the HTTP status carried by err, or 0.
func Status(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
