package domain

import "errors"

// Recoverable failure taxonomy. All of these surface as typed result
// messages on the originating connection; none of them close it.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrAlreadyResolved = errors.New("already resolved")
	ErrNotConnected    = errors.New("not connected")
	ErrProtocol        = errors.New("protocol error")
)
