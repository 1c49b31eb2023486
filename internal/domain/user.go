package domain

import "time"

// ReservedAdmin is the login of the built-in administrator account.
const ReservedAdmin = "admin"

// User is a stored account record.
type User struct {
	Login          string
	PasswordDigest string
	Salt           string
	FirstName      string
	LastName       string
	Email          string
	Permission     string
	ResetToken     *ResetToken
}

// Role returns the role granted by the user's permission.
func (u User) Role() Role {
	return RoleFromPermission(u.Permission)
}

// ResetToken is the single outstanding password reset token of a user.
type ResetToken struct {
	Value    string
	IssuedAt time.Time
}

// AddressAllowEntry is an origin pattern extending trust to the legacy identity.
// Pattern uses SQL LIKE syntax: % matches any run, _ matches one character.
type AddressAllowEntry struct {
	Pattern string
}

// Mail is an outbound email message.
type Mail struct {
	To      string
	Subject string
	Body    string
}
