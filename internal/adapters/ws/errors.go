package ws

import "errors"

// ErrClosed is returned when sending to a closed connection.
var ErrClosed = errors.New("connection closed")
