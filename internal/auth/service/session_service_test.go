package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fctanu/ClassConnect/config"
	"github.com/fctanu/ClassConnect/internal/auth/domain"
	"github.com/fctanu/ClassConnect/internal/auth/dto"
	autherror "github.com/fctanu/ClassConnect/internal/errors"
	"github.com/fctanu/ClassConnect/internal/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		MaxActiveSessions:  5,
		LoginMaxAttempts:   5,
		LockoutDurationMin: 120,
		AccessExpiryMin:    15,
		RefreshExpiryMin:   43200,
	}
}

func TestSessionService_Register_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockCredentialStore(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)

	s := NewSessionService(mockStore, mockTokens, nil, testConfig())

	input := dto.RegisterInput{
		Name:     "  Test User  ",
		Email:    " Test@Example.com ",
		Password: "Password1",
	}

	var created *domain.Account
	mockStore.EXPECT().GetByEmail(gomock.Any(), "test@example.com").Return(nil, nil)
	mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, account *domain.Account) error {
			created = account
			return nil
		})

	account, err := s.Register(context.Background(), input)

	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, "Test User", account.Name)
	assert.Equal(t, "test@example.com", account.Email)
	assert.NotEmpty(t, account.ID)
	assert.NotEmpty(t, account.PasswordHash)
	assert.NotContains(t, account.PasswordHash, "Password1")
	assert.Equal(t, created, account)
}

func TestSessionService_Register_Duplicate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockCredentialStore(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)

	s := NewSessionService(mockStore, mockTokens, nil, testConfig())

	existing := &domain.Account{ID: "existing-id", Email: "test@example.com"}
	mockStore.EXPECT().GetByEmail(gomock.Any(), "test@example.com").Return(existing, nil)

	account, err := s.Register(context.Background(), dto.RegisterInput{
		Name:     "Test User",
		Email:    "test@example.com",
		Password: "Password1",
	})

	assert.ErrorIs(t, err, autherror.ErrDuplicateAccount)
	assert.Nil(t, account)
}

func TestSessionService_Register_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// no store expectations: validation failures must not reach the store
	mockStore := mocks.NewMockCredentialStore(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)

	s := NewSessionService(mockStore, mockTokens, nil, testConfig())

	tests := []struct {
		name  string
		input dto.RegisterInput
	}{
		{"missing name", dto.RegisterInput{Email: "a@b.com", Password: "Password1"}},
		{"name too long", dto.RegisterInput{Name: strings.Repeat("x", 81), Email: "a@b.com", Password: "Password1"}},
		{"malformed email", dto.RegisterInput{Name: "Test", Email: "not-an-email", Password: "Password1"}},
		{"email too long", dto.RegisterInput{Name: "Test", Email: strings.Repeat("x", 115) + "@b.com", Password: "Password1"}},
		{"weak password", dto.RegisterInput{Name: "Test", Email: "a@b.com", Password: "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := s.Register(context.Background(), tt.input)

			assert.ErrorIs(t, err, autherror.ErrValidation)
			assert.NotErrorIs(t, err, autherror.ErrDuplicateAccount)
			assert.Nil(t, account)
		})
	}
}

func TestSessionService_Login_UnknownAccount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockCredentialStore(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)

	s := NewSessionService(mockStore, mockTokens, nil, testConfig())

	mockStore.EXPECT().GetByEmail(gomock.Any(), "ghost@example.com").Return(nil, nil)

	pair, err := s.Login(context.Background(), dto.LoginInput{Email: "ghost@example.com", Password: "Password1"})

	assert.ErrorIs(t, err, autherror.ErrInvalidCredentials)
	assert.Nil(t, pair)
}

func TestSessionService_Login_WrongPassword(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockCredentialStore(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)

	s := NewSessionService(mockStore, mockTokens, nil, testConfig())

	hash, err := HashPassword("Password1")
	require.NoError(t, err)
	account := &domain.Account{ID: "account-1", Email: "test@example.com", PasswordHash: hash}

	mockStore.EXPECT().GetByEmail(gomock.Any(), "test@example.com").Return(account, nil)
	mockStore.EXPECT().RecordLoginFailure(gomock.Any(), "account-1", domain.LockoutPatch{FailedAttempts: 1}).Return(nil)

	pair, err := s.Login(context.Background(), dto.LoginInput{Email: "test@example.com", Password: "WrongPass1"})

	assert.ErrorIs(t, err, autherror.ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "4 attempts remaining")
	assert.Nil(t, pair)
}

func TestSessionService_Login_Locked(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockCredentialStore(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)

	s := NewSessionService(mockStore, mockTokens, nil, testConfig())

	hash, err := HashPassword("Password1")
	require.NoError(t, err)
	until := time.Now().Add(time.Hour)
	account := &domain.Account{ID: "account-1", Email: "test@example.com", PasswordHash: hash, FailedAttempts: 5, LockedUntil: &until}

	mockStore.EXPECT().GetByEmail(gomock.Any(), "test@example.com").Return(account, nil)

	// correct password, but the lock wins; the password is not even checked
	pair, err := s.Login(context.Background(), dto.LoginInput{Email: "test@example.com", Password: "Password1"})

	assert.ErrorIs(t, err, autherror.ErrAccountLocked)
	assert.Nil(t, pair)
}

func TestSessionService_Login_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockCredentialStore(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)

	s := NewSessionService(mockStore, mockTokens, nil, testConfig())

	hash, err := HashPassword("Password1")
	require.NoError(t, err)
	account := &domain.Account{ID: "account-1", Email: "test@example.com", PasswordHash: hash, FailedAttempts: 3}

	var storedHashes []string
	mockStore.EXPECT().GetByEmail(gomock.Any(), "test@example.com").Return(account, nil)
	mockTokens.EXPECT().IssueAccessToken("account-1").Return("access-token", nil)
	mockTokens.EXPECT().IssueRefreshToken("account-1").Return("refresh-token", nil)
	mockStore.EXPECT().RecordLoginSuccess(gomock.Any(), "account-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, hashes []string) error {
			storedHashes = hashes
			return nil
		})

	pair, err := s.Login(context.Background(), dto.LoginInput{Email: "test@example.com", Password: "Password1"})

	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, "access-token", pair.AccessToken)
	assert.Equal(t, "refresh-token", pair.RefreshToken)
	require.Len(t, storedHashes, 1)
	assert.True(t, VerifyTokenHash("refresh-token", storedHashes[0]))
}

func TestSessionService_Refresh_InvalidToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockCredentialStore(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)

	s := NewSessionService(mockStore, mockTokens, nil, testConfig())

	mockTokens.EXPECT().VerifyRefreshToken("garbage").Return("", autherror.ErrInvalidToken)

	pair, err := s.Refresh(context.Background(), "garbage", "1.2.3.4")

	assert.ErrorIs(t, err, autherror.ErrInvalidToken)
	assert.Nil(t, pair)
}

func TestSessionService_Logout_SwallowsFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockCredentialStore(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)

	s := NewSessionService(mockStore, mockTokens, nil, testConfig())

	// token fails verification: no store access, no panic
	mockTokens.EXPECT().VerifyRefreshToken("stale").Return("", autherror.ErrInvalidToken)
	s.Logout(context.Background(), "stale")

	// token verifies but the account is gone
	mockTokens.EXPECT().VerifyRefreshToken("orphan").Return("account-gone", nil)
	mockStore.EXPECT().GetByID(gomock.Any(), "account-gone").Return(nil, nil)
	s.Logout(context.Background(), "orphan")
}

// ---- flow tests against a stateful in-memory store and real tokens ----

type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: make(map[string]*domain.Account)}
}

func (f *fakeStore) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == email {
			snapshot := *a
			return &snapshot, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, nil
	}
	snapshot := *a
	return &snapshot, nil
}

func (f *fakeStore) Create(_ context.Context, account *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := *account
	f.accounts[account.ID] = &snapshot
	return nil
}

func (f *fakeStore) RecordLoginFailure(_ context.Context, id string, patch domain.LockoutPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.accounts[id]
	a.FailedAttempts = patch.FailedAttempts
	a.LockedUntil = patch.LockedUntil
	return nil
}

func (f *fakeStore) RecordLoginSuccess(_ context.Context, id string, hashes []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.accounts[id]
	a.FailedAttempts = 0
	a.LockedUntil = nil
	a.RefreshTokenHashes = hashes
	return nil
}

func (f *fakeStore) ReplaceSessions(_ context.Context, id string, hashes []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[id].RefreshTokenHashes = hashes
	return nil
}

func (f *fakeStore) ClearStaleSessions(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeStore) account(t *testing.T, email string) *domain.Account {
	t.Helper()
	a, err := f.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	require.NotNil(t, a)
	return a
}

// newFlowService wires a SessionService over the fake store with a movable
// clock. The token clock ticks on every call so consecutively issued tokens
// are never byte-identical.
func newFlowService(t *testing.T) (*SessionService, *fakeStore, *time.Time) {
	t.Helper()

	store := newFakeStore()
	tokens := NewTokenService("flow-access-secret", "flow-refresh-secret", 15, 43200)

	clock := time.Now()
	var mu sync.Mutex
	var tick time.Duration
	tokens.Now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick += time.Second
		return clock.Add(tick)
	}

	s := NewSessionService(store, tokens, nil, testConfig())
	s.now = func() time.Time { return clock }

	return s, store, &clock
}

func registerFlowAccount(t *testing.T, s *SessionService) {
	t.Helper()
	_, err := s.Register(context.Background(), dto.RegisterInput{
		Name:     "Flow User",
		Email:    "flow@example.com",
		Password: "Password1",
	})
	require.NoError(t, err)
}

func TestSessionService_LockoutFlow(t *testing.T) {
	s, store, clock := newFlowService(t)
	registerFlowAccount(t, s)
	ctx := context.Background()

	login := func(password string) error {
		_, err := s.Login(ctx, dto.LoginInput{Email: "flow@example.com", Password: password})
		return err
	}

	for i := 0; i < 4; i++ {
		assert.ErrorIs(t, login("WrongPass1"), autherror.ErrInvalidCredentials)
	}
	assert.Nil(t, store.account(t, "flow@example.com").LockedUntil)

	// fifth failure engages the lock
	assert.ErrorIs(t, login("WrongPass1"), autherror.ErrInvalidCredentials)
	require.NotNil(t, store.account(t, "flow@example.com").LockedUntil)

	// correct password immediately afterwards: still locked
	*clock = clock.Add(time.Millisecond)
	assert.ErrorIs(t, login("Password1"), autherror.ErrAccountLocked)

	// after the window elapses the lock expires lazily and login succeeds
	*clock = clock.Add(2*time.Hour + time.Second)
	require.NoError(t, login("Password1"))
	assert.Equal(t, 0, store.account(t, "flow@example.com").FailedAttempts)
	assert.Nil(t, store.account(t, "flow@example.com").LockedUntil)
}

func TestSessionService_RotationReuseFlow(t *testing.T) {
	s, store, _ := newFlowService(t)
	registerFlowAccount(t, s)
	ctx := context.Background()

	first, err := s.Login(ctx, dto.LoginInput{Email: "flow@example.com", Password: "Password1"})
	require.NoError(t, err)

	second, err := s.Refresh(ctx, first.RefreshToken, "1.2.3.4")
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// replaying the rotated-out token is treated as theft
	_, err = s.Refresh(ctx, first.RefreshToken, "1.2.3.4")
	assert.ErrorIs(t, err, autherror.ErrTokenReused)
	assert.Empty(t, store.account(t, "flow@example.com").RefreshTokenHashes)

	// the mass revocation takes the still-valid second token with it
	_, err = s.Refresh(ctx, second.RefreshToken, "1.2.3.4")
	assert.ErrorIs(t, err, autherror.ErrTokenReused)
}

func TestSessionService_SessionCapFlow(t *testing.T) {
	s, store, _ := newFlowService(t)
	registerFlowAccount(t, s)
	ctx := context.Background()

	var pairs []*dto.TokenPair
	for i := 0; i < 6; i++ {
		pair, err := s.Login(ctx, dto.LoginInput{Email: "flow@example.com", Password: "Password1"})
		require.NoError(t, err)
		pairs = append(pairs, pair)
	}

	assert.Len(t, store.account(t, "flow@example.com").RefreshTokenHashes, 5)

	// the oldest session was silently evicted, so its token now trips
	// reuse detection
	_, err := s.Refresh(ctx, pairs[0].RefreshToken, "1.2.3.4")
	assert.ErrorIs(t, err, autherror.ErrTokenReused)
}

func TestSessionService_LogoutFlow(t *testing.T) {
	s, store, _ := newFlowService(t)
	registerFlowAccount(t, s)
	ctx := context.Background()

	pair, err := s.Login(ctx, dto.LoginInput{Email: "flow@example.com", Password: "Password1"})
	require.NoError(t, err)
	require.Len(t, store.account(t, "flow@example.com").RefreshTokenHashes, 1)

	s.Logout(ctx, pair.RefreshToken)
	assert.Empty(t, store.account(t, "flow@example.com").RefreshTokenHashes)

	// a second logout with the now-invalid token is a no-op
	s.Logout(ctx, pair.RefreshToken)
	assert.Empty(t, store.account(t, "flow@example.com").RefreshTokenHashes)
}
