package service

import "errors"

var (
	// ErrBusy is returned when the command mailbox is full.
	ErrBusy = errors.New("hub busy")
	// ErrNotStarted is returned when a command arrives before Start or after Stop.
	ErrNotStarted = errors.New("hub not started")
	// ErrNoBaseline is returned when the generator could not produce a baseline.
	ErrNoBaseline = errors.New("baseline unavailable")
)
