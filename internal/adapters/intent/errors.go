package intent

import "errors"

var (
	// ErrUpstream wraps any failure talking to the extraction service.
	ErrUpstream = errors.New("intent service unavailable")
	// ErrMalformedReply is returned when the reply holds no usable JSON object.
	ErrMalformedReply = errors.New("malformed intent reply")
)
