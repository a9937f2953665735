package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TooLazyToCreate/counseling-service/internal/model"
	"github.com/TooLazyToCreate/counseling-service/internal/password"
	"github.com/TooLazyToCreate/counseling-service/internal/repository"
	"github.com/TooLazyToCreate/counseling-service/internal/token"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const TokenType = "bearer"

type RegisterRequest struct {
	Email    string     `json:"email" validate:"required,email"`
	Password *string    `json:"password" validate:"required"`
	FullName string     `json:"full_name" validate:"required"`
	Role     model.Role `json:"role" validate:"omitempty,oneof=patient psychologist"`
}

type LoginRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password *string `json:"password" validate:"required"`
}

type LoginResult struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	User        model.PublicUser `json:"user"`
}

type AuthService struct {
	logger   *zap.Logger
	users    repository.UserRepository
	hasher   *password.Hasher
	tokens   *token.Service
	validate *validator.Validate
	/* Verified against when the email is unknown, so that a failed login
	 * costs one hash computation whichever way it fails. */
	dummyHash string
}

func NewAuthService(logger *zap.Logger, users repository.UserRepository, hasher *password.Hasher, tokens *token.Service) (*AuthService, error) {
	dummyHash, err := hasher.Hash("counseling-service/dummy-password")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &AuthService{
		logger:    logger,
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		validate:  newValidator(),
		dummyHash: dummyHash,
	}, nil
}

// Register creates a user. The role defaults to patient when omitted.
func (service *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if req.Role == "" {
		req.Role = model.RolePatient
	}
	if err := validateStruct(service.validate, &req); err != nil {
		return nil, err
	}

	/* Fast path only; the unique index decides races below */
	if _, err := service.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hashedPassword, err := service.hasher.Hash(*req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:          req.Email,
		FullName:       req.FullName,
		Role:           req.Role,
		HashedPassword: hashedPassword,
	}
	if err = service.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	service.logger.Info("User registered", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Login checks the credentials and issues an access token for the user.
// Unknown email and wrong password are reported identically.
func (service *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validateStruct(service.validate, &req); err != nil {
		return nil, err
	}

	user, err := service.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			service.hasher.Verify(*req.Password, service.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !service.hasher.Verify(*req.Password, user.HashedPassword) {
		return nil, ErrInvalidCredentials
	}

	accessToken, claims, err := service.tokens.Issue(token.Subject{
		Email:  user.Email,
		UserID: user.ID,
		Role:   string(user.Role),
	}, service.tokens.Now())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	service.logger.Debug("Access token issued",
		zap.Int64("user_id", user.ID),
		zap.String("jti", claims.ID),
		zap.Time("expires_at", claims.ExpiresAt))
	return &LoginResult{
		AccessToken: accessToken,
		TokenType:   TokenType,
		User:        user.Public(),
	}, nil
}

// Authenticate resolves the value of an Authorization header to a user.
// Every token problem collapses into ErrUnauthorized.
func (service *AuthService) Authenticate(ctx context.Context, authorization string) (*model.User, error) {
	rawToken, ok := bearerToken(authorization)
	if !ok {
		return nil, ErrMissingToken
	}

	claims, err := service.tokens.Verify(rawToken)
	if err != nil {
		service.logger.Debug("Access token rejected", zap.Error(err))
		return nil, ErrUnauthorized
	}

	user, err := service.users.GetByEmail(ctx, claims.Subject.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			service.logger.Debug("Access token subject no longer exists", zap.String("jti", claims.ID))
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("resolve token subject: %w", err)
	}
	return user, nil
}

func bearerToken(authorization string) (string, bool) {
	scheme, value, found := strings.Cut(strings.TrimSpace(authorization), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
