package domain

import "time"

// Claims is the identity, role and expiry carried inside the credential token.
// A Claims value is never mutated after decoding; a new credential yields a new value.
type Claims struct {
	SubjectID   int64
	SubjectName string
	RoleID      Role
	IssuedAt    int64
	ExpiresAt   int64
}

// ExpiresAtTime returns the expiry as a time.Time.
func (c Claims) ExpiresAtTime() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

// IssuedAtTime returns the issue instant as a time.Time.
func (c Claims) IssuedAtTime() time.Time {
	return time.Unix(c.IssuedAt, 0)
}

// Expired reports whether the claims are no longer valid at now.
// Claims without an expiry never count as valid.
func (c Claims) Expired(now time.Time) bool {
	if c.ExpiresAt <= 0 {
		return true
	}
	return c.ExpiresAt <= now.Unix()
}

// SameSubject reports whether both claims describe the same logged-in subject.
func (c Claims) SameSubject(other Claims) bool {
	return c.SubjectID == other.SubjectID && c.SubjectName == other.SubjectName
}
