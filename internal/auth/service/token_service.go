package service

//go:generate mockgen -destination=../../mocks/mock_token_generator.go -package=mocks github.com/fctanu/ClassConnect/internal/auth/service TokenGenerator

import (
	"fmt"
	"time"

	autherror "github.com/fctanu/ClassConnect/internal/errors"
	"github.com/golang-jwt/jwt/v5"
)

type TokenGenerator interface {
	IssueAccessToken(accountID string) (string, error)
	IssueRefreshToken(accountID string) (string, error)
	VerifyAccessToken(tokenString string) (string, error)
	VerifyRefreshToken(tokenString string) (string, error)
	RefreshTokenExpiry() time.Duration
}

// TokenService mints and verifies signed access and refresh tokens. The two
// token kinds use separate secrets so that a leaked access secret cannot mint
// refresh tokens and vice versa. Now is overridable for expiry tests.
type TokenService struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessExpiry       time.Duration
	RefreshExpiry      time.Duration
	Now                func() time.Time
}

func NewTokenService(accessSecret, refreshSecret string, accessMinutes, refreshMinutes int) *TokenService {
	return &TokenService{
		AccessTokenSecret:  accessSecret,
		RefreshTokenSecret: refreshSecret,
		AccessExpiry:       time.Duration(accessMinutes) * time.Minute,
		RefreshExpiry:      time.Duration(refreshMinutes) * time.Minute,
		Now:                time.Now,
	}
}

func (ts *TokenService) IssueAccessToken(accountID string) (string, error) {
	return ts.issue(accountID, ts.AccessTokenSecret, ts.AccessExpiry)
}

func (ts *TokenService) IssueRefreshToken(accountID string) (string, error) {
	return ts.issue(accountID, ts.RefreshTokenSecret, ts.RefreshExpiry)
}

// VerifyAccessToken validates the token and returns the account id it carries.
func (ts *TokenService) VerifyAccessToken(tokenString string) (string, error) {
	return ts.verify(tokenString, ts.AccessTokenSecret)
}

// VerifyRefreshToken validates the token and returns the account id it carries.
func (ts *TokenService) VerifyRefreshToken(tokenString string) (string, error) {
	return ts.verify(tokenString, ts.RefreshTokenSecret)
}

func (ts *TokenService) RefreshTokenExpiry() time.Duration {
	return ts.RefreshExpiry
}

func (ts *TokenService) issue(accountID, secret string, expiry time.Duration) (string, error) {
	now := ts.Now()

	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return token, nil
}

func (ts *TokenService) verify(tokenString, secret string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(ts.Now))

	if err != nil {
		return "", fmt.Errorf("%w: %v", autherror.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return "", autherror.ErrInvalidToken
	}

	return claims.Subject, nil
}
