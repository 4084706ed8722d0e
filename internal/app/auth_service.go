package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"books-api/internal/metrics"
	"books-api/internal/model"
	"books-api/internal/pkg/jwtutil"
	"books-api/internal/pkg/password"
	"books-api/internal/repository"
)

const TokenTypeBearer = "bearer"

type AuthService struct {
	users  UserStore
	hasher *password.Hasher
	tokens *jwtutil.Manager
	log    logrus.FieldLogger
}

type RegisterInput struct {
	Username string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type AuthResult struct {
	Token     string
	TokenType string
	User      *model.User
}

func NewAuthService(users UserStore, hasher *password.Hasher, tokens *jwtutil.Manager, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if input.Username == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}
	if len(input.Password) > password.MaxBytes {
		verr := &ValidationError{}
		verr.add("body", "password", fmt.Sprintf("ensure this value has at most %d bytes", password.MaxBytes), "value_error.any_str.max_length")
		return nil, verr
	}

	existing, err := s.users.GetByUsername(ctx, input.Username)
	if err != nil {
		return nil, storeError("lookup user", err)
	}
	if existing != nil {
		return nil, ErrUsernameExists
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:       input.Username,
		HashedPassword: hash,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent registration can win the race between lookup and insert.
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrUsernameExists
		}
		return nil, storeError("create user", err)
	}

	return s.issue(user, "register")
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	if input.Username == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.users.GetByUsername(ctx, input.Username)
	if err != nil {
		return nil, storeError("lookup user", err)
	}
	if user == nil || !s.hasher.Verify(input.Password, user.HashedPassword) {
		metrics.LoginFailuresTotal.Inc()
		return nil, ErrInvalidCredential
	}

	return s.issue(user, "login")
}

// ResolveIdentity verifies a bearer token and loads the user it names. Every
// token or lookup failure collapses to ErrUnauthenticated; the cause is only
// logged.
func (s *AuthService) ResolveIdentity(ctx context.Context, token string) (*model.User, error) {
	subject, err := s.tokens.Subject(token)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, jwtutil.ErrTokenExpired) {
			reason = "expired"
		}
		metrics.TokenRejectionsTotal.WithLabelValues(reason).Inc()
		s.log.WithError(err).WithField("reason", reason).Debug("bearer token rejected")
		return nil, ErrUnauthenticated
	}

	user, err := s.users.GetByUsername(ctx, subject)
	if err != nil {
		return nil, storeError("resolve identity", err)
	}
	if user == nil {
		metrics.TokenRejectionsTotal.WithLabelValues("unknown_subject").Inc()
		s.log.WithField("subject", subject).Debug("bearer token names unknown user")
		return nil, ErrUnauthenticated
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User, flow string) (*AuthResult, error) {
	token, err := s.tokens.GenerateToken(user.Username)
	if err != nil {
		return nil, err
	}
	metrics.TokensIssuedTotal.WithLabelValues(flow).Inc()
	return &AuthResult{Token: token, TokenType: TokenTypeBearer, User: user}, nil
}
