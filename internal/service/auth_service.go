package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/cwrk-planet/support-relay/internal/security"
)

const operatorRole = "admin"

type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
}

// AuthService checks the operator account and hands out a token. Nothing else in the relay
// validates that token.
type AuthService struct {
	creds *security.Credentials
	jwt   *security.JWTSigner
	now   func() time.Time
}

func NewAuthService(creds *security.Credentials, jwt *security.JWTSigner, now func() time.Time) *AuthService {
	if now == nil {
		now = time.Now
	}
	return &AuthService{creds: creds, jwt: jwt, now: now}
}

func (s *AuthService) Login(_ context.Context, username, password string) (*LoginResult, error) {
	if err := s.creds.Verify(username, password); err != nil {
		slog.Warn("auth.login rejected", slog.String("username", username))
		return nil, security.ErrInvalidCredentials
	}

	now := s.now()
	token, err := s.jwt.SignAccessToken(username, operatorRole, now)
	if err != nil {
		slog.Error("auth.login.signAccessToken failed", slog.Any("err", err))
		return nil, err
	}

	return &LoginResult{AccessToken: token, ExpiresAt: now.Add(s.jwt.TTL())}, nil
}
