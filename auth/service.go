package auth

import (
	"context"
	"fmt"

	"Mikrotik-Dashboard/errs"
	"Mikrotik-Dashboard/models"

	"go.uber.org/zap"
)

// UserStore is the persistence the auth service needs.
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Count(ctx context.Context) (int, error)
}

var errInvalidCredentials = errs.New(errs.Unauthorized, "invalid username or password")

// Service authenticates dashboard operators.
type Service struct {
	users  UserStore
	tokens *TokenService
	log    *zap.Logger
}

func NewService(users UserStore, tokens *TokenService, log *zap.Logger) *Service {
	return &Service{users: users, tokens: tokens, log: log}
}

func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Login checks the credentials and issues an access token. Unknown users and
// wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errs.Is(err, errs.NotFound) {
			s.log.Info("login rejected", zap.String("username", username))
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		s.log.Info("login rejected", zap.String("username", username))
		return nil, errInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	s.log.Info("operator logged in", zap.String("username", username), zap.String("user_id", user.ID))
	return &models.LoginResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// EnsureAdmin creates the initial operator when no users exist yet.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	n, err := s.users.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if username == "" || password == "" {
		return errs.New(errs.Validation, "ADMIN_USER and ADMIN_PASS are required to create the first operator")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := s.users.Create(ctx, username, hash); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	s.log.Info("initial operator account created", zap.String("username", username))
	return nil
}
