package dispatch

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedTarget  = errors.New("malformed target URL")
	ErrMalformedPayload = errors.New("malformed POST payload")
)

type Kind int

const (
	KindTransport Kind = iota
	KindHTTP
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHTTP:
		return "http"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is returned for every failed network attempt. DurationMs is the
// measured round trip when the call got that far.
type Error struct {
	Kind       Kind
	StatusCode int
	StatusText string
	DurationMs int64
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.StatusText)
	case KindDecode:
		return fmt.Sprintf("invalid JSON response: %v", e.Err)
	default:
		return fmt.Sprintf("request failed: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsKind(err error, kind Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}
