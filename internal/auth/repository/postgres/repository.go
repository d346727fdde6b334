package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fctanu/ClassConnect/internal/auth/domain"
	autherror "github.com/fctanu/ClassConnect/internal/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository uses, narrow enough for
// pgxmock to stand in during tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, name, email, password_hash, failed_attempts, locked_until, refresh_token_hashes, created_at, updated_at`

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE email = $1
		LIMIT 1;
	`
	return r.scanAccount(r.db.QueryRow(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
		LIMIT 1;
	`
	return r.scanAccount(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO accounts (id, name, email, password_hash, failed_attempts, refresh_token_hashes, created_at, updated_at)
        VALUES ($1, $2, $3, $4, 0, '{}', $5, $6)
    `, account.ID, account.Name, account.Email, account.PasswordHash, account.CreatedAt, account.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return autherror.ErrDuplicateAccount
	}

	return err
}

// RecordLoginFailure writes the failure counter and lock timestamp in a
// single statement so concurrent attempts never observe one without the other.
func (r *PostgresRepository) RecordLoginFailure(ctx context.Context, id string, patch domain.LockoutPatch) error {
	_, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET failed_attempts = $2, locked_until = $3, updated_at = now()
		WHERE id = $1
	`, id, patch.FailedAttempts, patch.LockedUntil)
	return err
}

func (r *PostgresRepository) RecordLoginSuccess(ctx context.Context, id string, sessionHashes []string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET failed_attempts = 0, locked_until = NULL, refresh_token_hashes = $2, updated_at = now()
		WHERE id = $1
	`, id, sessionHashes)
	return err
}

func (r *PostgresRepository) ReplaceSessions(ctx context.Context, id string, sessionHashes []string) error {
	if sessionHashes == nil {
		sessionHashes = []string{}
	}
	_, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET refresh_token_hashes = $2, updated_at = now()
		WHERE id = $1
	`, id, sessionHashes)
	return err
}

// ClearStaleSessions force-logs-out accounts with no activity since the
// cutoff and reports how many were touched.
func (r *PostgresRepository) ClearStaleSessions(ctx context.Context, inactiveSince time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET refresh_token_hashes = '{}'
		WHERE updated_at < $1 AND cardinality(refresh_token_hashes) > 0
	`, inactiveSince)
	if err != nil {
		return 0, fmt.Errorf("clear stale sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.FailedAttempts,
		&account.LockedUntil,
		&account.RefreshTokenHashes,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	return &account, nil
}
