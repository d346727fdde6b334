package domain

import "time"

// LockoutPolicy decides when repeated login failures lock an account.
// All functions are pure: they read an Account snapshot and return a patch
// for the store to apply, never mutating the snapshot itself.
type LockoutPolicy struct {
	MaxAttempts int
	Duration    time.Duration
}

// LockoutPatch is the pair of fields the store must write together. A nil
// LockedUntil clears the lock.
type LockoutPatch struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// IsLocked reports whether the account is locked at the given instant.
// An expired lock counts as open (lazy expiry, no background sweep).
func (p LockoutPolicy) IsLocked(a *Account, now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// OnFailure computes the state after one more failed login attempt.
// A failure observed after the lock expired starts a fresh count at 1.
// The failure that reaches MaxAttempts sets the lock.
func (p LockoutPolicy) OnFailure(a *Account, now time.Time) LockoutPatch {
	if a.LockedUntil != nil && !a.LockedUntil.After(now) {
		return LockoutPatch{FailedAttempts: 1}
	}

	patch := LockoutPatch{FailedAttempts: a.FailedAttempts + 1}
	if patch.FailedAttempts >= p.MaxAttempts && !p.IsLocked(a, now) {
		until := now.Add(p.Duration)
		patch.LockedUntil = &until
	} else {
		patch.LockedUntil = a.LockedUntil
	}

	return patch
}

// Remaining returns how many attempts are left before the lock engages.
func (p LockoutPolicy) Remaining(patch LockoutPatch) int {
	remaining := p.MaxAttempts - patch.FailedAttempts
	if remaining < 0 {
		return 0
	}
	return remaining
}
