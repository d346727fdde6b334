package domain

//go:generate mockgen -destination=../../mocks/mock_credential_store.go -package=mocks github.com/fctanu/ClassConnect/internal/auth/domain CredentialStore

import (
	"context"
	"time"
)

// CredentialStore persists accounts and their security state. GetByEmail and
// GetByID return (nil, nil) when no account exists. Each write method is a
// single atomic statement; concurrent writers are last-writer-wins on the
// session list, which at worst triggers a spurious reuse detection.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, account *Account) error
	RecordLoginFailure(ctx context.Context, id string, patch LockoutPatch) error
	RecordLoginSuccess(ctx context.Context, id string, sessionHashes []string) error
	ReplaceSessions(ctx context.Context, id string, sessionHashes []string) error
	ClearStaleSessions(ctx context.Context, inactiveSince time.Time) (int64, error)
}
