package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/AZMA1N/Debate-Calender/internal/config"
	"github.com/AZMA1N/Debate-Calender/internal/model"
	"github.com/AZMA1N/Debate-Calender/pkg/auth"
	"github.com/AZMA1N/Debate-Calender/pkg/errors"
	"github.com/AZMA1N/Debate-Calender/pkg/logger"
	"github.com/AZMA1N/Debate-Calender/pkg/security"
)

const (
	maxLoginAttempts = 5
	lockoutDuration  = 15 * time.Minute
)

type AuthServicer interface {
	Login(ctx context.Context, email, password string) (*model.TokenResponse, error)
	ValidateToken(ctx context.Context, token string) (*auth.Claims, error)
}

// Service authenticates the single configured club administrator.
type Service struct {
	admin    config.AdminConfig
	jwtSvc   auth.JWTService
	hasher   security.PasswordHasher
	attempts *cache.Cache
	logger   *logger.Logger
}

var _ AuthServicer = (*Service)(nil)

func NewService(admin config.AdminConfig, jwtSvc auth.JWTService, hasher security.PasswordHasher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		admin:    admin,
		jwtSvc:   jwtSvc,
		hasher:   hasher,
		attempts: cache.New(lockoutDuration, lockoutDuration),
		logger:   log,
	}
}

// Login issues an access token for the administrator. Repeated failures
// for one email lock it out for lockoutDuration.
func (s *Service) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if n, ok := s.attempts.Get(email); ok && n.(int) >= maxLoginAttempts {
		return nil, errors.Unauthorized(model.ErrAccountLocked)
	}

	if s.admin.Email == "" || email != strings.ToLower(s.admin.Email) ||
		s.hasher.Compare(s.admin.PasswordHash, password) != nil {
		s.recordFailure(email)
		return nil, errors.Unauthorized(model.ErrInvalidCredentials)
	}
	s.attempts.Delete(email)

	if s.hasher.NeedsRehash(s.admin.PasswordHash) {
		s.logger.Warn("admin.password_hash uses a different bcrypt cost, regenerate it")
	}

	token, expiresAt, err := s.jwtSvc.GenerateAccessToken(email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("Administrator logged in", "email", email)
	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *Service) recordFailure(email string) {
	if _, err := s.attempts.IncrementInt(email, 1); err != nil {
		s.attempts.Set(email, 1, cache.DefaultExpiration)
	}
	s.logger.Warn("Failed administrator login", "email", email)
}

func (s *Service) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, errors.Unauthorized(err)
	}
	if !strings.EqualFold(claims.Email, s.admin.Email) {
		return nil, errors.Unauthorized(auth.ErrInvalidToken)
	}
	return claims, nil
}
