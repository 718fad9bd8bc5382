package user

import (
	"context"

	"github.com/Allmight-456/event-management-go/pkg/apperrors"
	"github.com/Allmight-456/event-management-go/pkg/logger"
	"github.com/Allmight-456/event-management-go/pkg/security/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Service defines the business logic interface for user accounts
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

type service struct {
	repo   Repository
	jwt    *auth.JWTService
	logger *logger.Logger
}

// NewService creates a new user service instance
func NewService(repo Repository, jwt *auth.JWTService, log *logger.Logger) Service {
	return &service{repo: repo, jwt: jwt, logger: log}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if existing, err := s.repo.GetByUsername(ctx, req.Username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, apperrors.Validation("username %q is already taken", req.Username)
	}
	if existing, err := s.repo.GetByEmail(ctx, req.Email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, apperrors.Validation("email %q is already registered", req.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         RoleUser,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("username", u.Username))
	return u, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	u, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, apperrors.PermissionDenied("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.PermissionDenied("invalid credentials")
	}

	token, err := s.jwt.GenerateToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		return nil, err
	}

	return &LoginResponse{Token: token, User: *u}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperrors.NotFound("user %s not found", id)
	}
	return u, nil
}
