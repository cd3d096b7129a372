package domain

import "time"

// UserLookup is the identity adapter's answer to "do you know this key".
type UserLookup int

const (
	UserUnknown UserLookup = iota
	UserExists
	UserDisabled
)

func (u UserLookup) String() string {
	switch u {
	case UserExists:
		return "exists"
	case UserDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Identity is a user keyed by the base64url public half of their IDK.
type Identity struct {
	UserID    string
	SUK       []byte
	VUK       []byte
	Locked    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
