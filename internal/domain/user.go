// Package domain contains entities without logic, just meta-data
// and the error taxonomy shared by every subsystem.
package domain

import "errors"

const MaxUserIDLen = 64

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
	ErrUserIDInvalid = errors.New("user id contains invalid characters")
)

type UserID string

// ParseUserID validates the identity taken from the connection path.
// A malformed identity refuses the connection before registration.
func ParseUserID(raw string) (UserID, error) {
	if len(raw) == 0 {
		return "", ErrUserIDEmpty
	}
	if len(raw) > MaxUserIDLen {
		return "", ErrUserIDTooLong
	}
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return "", ErrUserIDInvalid
		}
	}
	return UserID(raw), nil
}

// Presence is a user's live status. Lifecycle is bound to the
// connection; the current call pointer is set by the session table.
type Presence struct {
	UserID      UserID
	Online      bool
	CurrentCall CallID
}
