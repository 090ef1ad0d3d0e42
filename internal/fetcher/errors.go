package fetcher

import (
	"fmt"
)

type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindHTTPError    ErrorKind = "http_error"
	KindNetworkError ErrorKind = "network_error"
	KindUnknown      ErrorKind = "unknown"
)

const maxDetailLength = 100

// FetchError describes why a remote source could not be downloaded.
// Its message always carries the source URL.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	URL        string
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("URL not found: %s", e.URL)
	case KindHTTPError:
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
	case KindNetworkError:
		return fmt.Sprintf("network error: %s URL: %s", e.detail(), e.URL)
	default:
		return fmt.Sprintf("processing failed: %s URL: %s", e.detail(), e.URL)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) detail() string {
	if e.Err == nil {
		return "unknown error"
	}
	msg := []rune(e.Err.Error())
	if len(msg) > maxDetailLength {
		return string(msg[:maxDetailLength]) + "..."
	}
	return string(msg)
}
