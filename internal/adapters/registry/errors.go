package registry

import "errors"

var (
	// ErrAlreadyJoined is returned when a connection id is registered twice.
	ErrAlreadyJoined = errors.New("connection already joined")
	// ErrInitialSend is returned when the initial snapshot could not be delivered.
	ErrInitialSend = errors.New("initial snapshot delivery failed")
)
