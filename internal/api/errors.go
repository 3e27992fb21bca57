package api

import (
	"errors"
	"fmt"
)

// NetworkError reports a transport failure or a non-2xx response from the backend.
type NetworkError struct {
	Op         string
	URL        string
	StatusCode int
	Detail     string
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Detail != "":
		return fmt.Sprintf("api: %s: status %d: %s", e.Op, e.StatusCode, e.Detail)
	case e.StatusCode != 0:
		return fmt.Sprintf("api: %s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("api: %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("api: %s: network error", e.Op)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError reports a response body that could not be decoded.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("api: %s: decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Detail returns the server provided reason carried by err, if any.
func Detail(err error) string {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Detail
	}
	return ""
}

// IsNetwork reports whether err is a NetworkError.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsDecode reports whether err is a DecodeError.
func IsDecode(err error) bool {
	var decErr *DecodeError
	return errors.As(err, &decErr)
}
