package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskhub/internal/model"
	"github.com/BuzzLyutic/taskhub/internal/repo"
)

type TokenManager interface {
	Issue(userID string) (string, time.Time, error)
	Parse(token string) (string, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
	VerifyNothing(password string)
}

type RegisterInput struct {
	Name     string `json:"name" validate:"min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is the outcome of a successful register or login.
type Session struct {
	User      model.UserRef
	Token     string
	ExpiresAt time.Time
}

type AuthService struct {
	users  repo.UserRepository
	hasher PasswordHasher
	tokens TokenManager
	logger *zap.Logger
}

func NewAuthService(users repo.UserRepository, hasher PasswordHasher, tokens TokenManager, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return Session{}, err
	}

	_, err := s.users.GetByEmail(ctx, in.Email)
	if err == nil {
		return Session{}, ErrUserExists
	}
	if !errors.Is(err, repo.ErrorNotFound) {
		return Session{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if errors.Is(err, repo.ErrorConflict) { // гонка двух регистраций с одним email
		return Session{}, ErrUserExists
	}
	if err != nil {
		return Session{}, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.session(user)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return Session{}, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, repo.ErrorNotFound) {
		s.hasher.VerifyNothing(in.Password)
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(user)
}

// Authenticate resolves a session token to a user that still exists.
func (s *AuthService) Authenticate(ctx context.Context, token string) (model.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}

	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, repo.ErrorNotFound) {
		return model.User{}, ErrNotAuthenticated
	}
	return user, err
}

func (s *AuthService) session(user model.User) (Session, error) {
	token, expires, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{User: user.Ref(), Token: token, ExpiresAt: expires}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
