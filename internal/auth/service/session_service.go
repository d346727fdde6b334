package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/fctanu/ClassConnect/config"
	"github.com/fctanu/ClassConnect/internal/auth/domain"
	"github.com/fctanu/ClassConnect/internal/auth/dto"
	"github.com/fctanu/ClassConnect/internal/defense"
	autherror "github.com/fctanu/ClassConnect/internal/errors"
	"github.com/google/uuid"
)

// SessionService orchestrates registration, login, refresh rotation and
// logout against the credential store and token issuer. It holds no
// per-request state; all session state lives in the store.
type SessionService struct {
	store   domain.CredentialStore
	tokens  TokenGenerator
	sink    defense.Sink
	lockout domain.LockoutPolicy
	cfg     *config.Config
	now     func() time.Time
}

func NewSessionService(store domain.CredentialStore, tokens TokenGenerator, sink defense.Sink, cfg *config.Config) *SessionService {
	if sink == nil {
		sink = defense.NoopSink{}
	}
	return &SessionService{
		store:  store,
		tokens: tokens,
		sink:   sink,
		lockout: domain.LockoutPolicy{
			MaxAttempts: cfg.LoginMaxAttempts,
			Duration:    cfg.LockoutDuration(),
		},
		cfg: cfg,
		now: time.Now,
	}
}

// Register creates a new account. A duplicate email is reported to the
// caller with the same external message as any other bad request; the
// distinct error kind exists for logging only.
func (s *SessionService) Register(ctx context.Context, input dto.RegisterInput) (*domain.Account, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > domain.MaxNameLength {
		return nil, fmt.Errorf("%w: name is required and must be at most %d characters", autherror.ErrValidation, domain.MaxNameLength)
	}

	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	if err := ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	existing, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.emit("register_duplicate", "", email, input.IPAddress, input.UserAgent)
		return nil, autherror.ErrDuplicateAccount
	}

	passwordHash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	account := &domain.Account{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, account); err != nil {
		return nil, err
	}

	s.emit("register_success", account.ID, email, input.IPAddress, input.UserAgent)

	return account, nil
}

// Login verifies credentials, enforces the lockout policy and opens a new
// session. The refresh token is returned for cookie transport only.
func (s *SessionService) Login(ctx context.Context, input dto.LoginInput) (*dto.TokenPair, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, autherror.ErrInvalidCredentials
	}

	account, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		// identical external outcome as a wrong password
		s.emit("login_failed", "", email, input.IPAddress, input.UserAgent)
		return nil, autherror.ErrInvalidCredentials
	}

	now := s.now()
	if s.lockout.IsLocked(account, now) {
		s.emit("login_locked", account.ID, email, input.IPAddress, input.UserAgent)
		return nil, autherror.ErrAccountLocked
	}

	if !VerifyPassword(input.Password, account.PasswordHash) {
		patch := s.lockout.OnFailure(account, now)
		if err := s.store.RecordLoginFailure(ctx, account.ID, patch); err != nil {
			return nil, err
		}

		s.emit("login_failed", account.ID, email, input.IPAddress, input.UserAgent)
		if patch.LockedUntil != nil {
			s.emit("account_locked", account.ID, email, input.IPAddress, input.UserAgent)
		}

		return nil, fmt.Errorf("%w: %d attempts remaining", autherror.ErrInvalidCredentials, s.lockout.Remaining(patch))
	}

	pair, hash, err := s.issuePair(account.ID)
	if err != nil {
		return nil, err
	}

	hashes := domain.AppendSessionHash(account.RefreshTokenHashes, hash, s.cfg.MaxActiveSessions)
	if err := s.store.RecordLoginSuccess(ctx, account.ID, hashes); err != nil {
		return nil, err
	}

	s.emit("login_success", account.ID, email, input.IPAddress, input.UserAgent)

	return pair, nil
}

// Refresh rotates a refresh token. Presentation of a token that verifies but
// is no longer stored is treated as theft: every session for the account is
// revoked before the error is returned.
func (s *SessionService) Refresh(ctx context.Context, refreshToken, ip string) (*dto.TokenPair, error) {
	accountID, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	account, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, autherror.ErrInvalidToken
	}

	matched := -1
	for i, hash := range account.RefreshTokenHashes {
		if VerifyTokenHash(refreshToken, hash) {
			matched = i
			break
		}
	}

	if matched == -1 {
		if err := s.store.ReplaceSessions(ctx, account.ID, nil); err != nil {
			return nil, err
		}
		s.sink.Emit(defense.Event{
			Type:      "token_reuse",
			AccountID: account.ID,
			Email:     account.Email,
			IP:        ip,
			Detail:    "all sessions revoked",
		})
		return nil, autherror.ErrTokenReused
	}

	pair, hash, err := s.issuePair(account.ID)
	if err != nil {
		return nil, err
	}

	hashes := domain.RemoveSessionHash(account.RefreshTokenHashes, matched)
	hashes = domain.AppendSessionHash(hashes, hash, s.cfg.MaxActiveSessions)
	if err := s.store.ReplaceSessions(ctx, account.ID, hashes); err != nil {
		return nil, err
	}

	return pair, nil
}

// Logout removes the session matching refreshToken. It is best-effort and
// idempotent from the client's point of view: every failure is swallowed.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) {
	accountID, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return
	}

	account, err := s.store.GetByID(ctx, accountID)
	if err != nil || account == nil {
		return
	}

	remaining := make([]string, 0, len(account.RefreshTokenHashes))
	for _, hash := range account.RefreshTokenHashes {
		if !VerifyTokenHash(refreshToken, hash) {
			remaining = append(remaining, hash)
		}
	}

	if len(remaining) == len(account.RefreshTokenHashes) {
		return
	}

	if err := s.store.ReplaceSessions(ctx, account.ID, remaining); err != nil {
		return
	}

	s.sink.Emit(defense.Event{Type: "logout", AccountID: account.ID, Email: account.Email})
}

func (s *SessionService) issuePair(accountID string) (*dto.TokenPair, string, error) {
	accessToken, err := s.tokens.IssueAccessToken(accountID)
	if err != nil {
		return nil, "", err
	}

	refreshToken, err := s.tokens.IssueRefreshToken(accountID)
	if err != nil {
		return nil, "", err
	}

	hash, err := HashToken(refreshToken)
	if err != nil {
		return nil, "", err
	}

	return &dto.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, hash, nil
}

func (s *SessionService) emit(eventType, accountID, email, ip, userAgent string) {
	s.sink.Emit(defense.Event{
		Type:      eventType,
		AccountID: accountID,
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
	})
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" || len(normalized) > domain.MaxEmailLength {
		return "", fmt.Errorf("%w: email is required and must be at most %d characters", autherror.ErrValidation, domain.MaxEmailLength)
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", fmt.Errorf("%w: malformed email address", autherror.ErrValidation)
	}
	return normalized, nil
}
