package domain

import "time"

const (
	MaxEmailLength = 120
	MaxNameLength  = 80
)

// Account is an immutable snapshot of a stored account. Lockout and session
// mutations are expressed as patches (see lockout.go) that the credential
// store applies in a single statement.
type Account struct {
	ID                 string
	Name               string
	Email              string
	PasswordHash       string
	FailedAttempts     int
	LockedUntil        *time.Time
	RefreshTokenHashes []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AppendSessionHash returns a new session list with hash appended, evicting
// the oldest entries beyond max. Evicted sessions are silently logged out.
func AppendSessionHash(hashes []string, hash string, max int) []string {
	out := make([]string, 0, len(hashes)+1)
	out = append(out, hashes...)
	out = append(out, hash)
	if max > 0 && len(out) > max {
		out = out[len(out)-max:]
	}
	return out
}

// RemoveSessionHash returns a new session list with the entry at index i removed.
func RemoveSessionHash(hashes []string, i int) []string {
	out := make([]string, 0, len(hashes)-1)
	out = append(out, hashes[:i]...)
	out = append(out, hashes[i+1:]...)
	return out
}
