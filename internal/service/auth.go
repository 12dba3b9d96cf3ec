package service

import (
	"context"
	"errors"
	"fmt"

	"portfolio_chat/internal/config"
	"portfolio_chat/internal/domain"
	"portfolio_chat/internal/repository"
	apperrors "portfolio_chat/pkg/errors"
	"portfolio_chat/pkg/jwt"
	"portfolio_chat/pkg/logger"
)

// AuthService turns an access token into the chat user it belongs to. Tokens are issued
// elsewhere; this side only validates them.
type AuthService interface {
	ValidateToken(ctx context.Context, tokenString string) (*domain.User, error)
}

type authService struct {
	userRepo repository.UserRepository
	jwtCfg   config.JWTConfig
	log      logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, jwtCfg config.JWTConfig, log logger.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		jwtCfg:   jwtCfg,
		log:      log,
	}
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := jwt.ValidateToken(tokenString, s.jwtCfg.Secret, s.jwtCfg.ClockSkew)
	if err != nil {
		return nil, err
	}
	if s.jwtCfg.Issuer != "" && claims.Issuer != "" && claims.Issuer != s.jwtCfg.Issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", apperrors.ErrInvalidToken, claims.Issuer)
	}

	return ensureUser(ctx, s.userRepo, s.log, &domain.User{
		ID:          claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.Email,
		GlobalRole:  roleOrDefault(claims.Role),
	})
}

type remoteAuthService struct {
	client   *AuthServiceClient
	userRepo repository.UserRepository
	log      logger.Logger
}

// NewRemoteAuthService delegates validation to the auth service at client's base URL.
func NewRemoteAuthService(client *AuthServiceClient, userRepo repository.UserRepository, log logger.Logger) AuthService {
	return &remoteAuthService{
		client:   client,
		userRepo: userRepo,
		log:      log,
	}
}

func (s *remoteAuthService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	resp, err := s.client.VerifyToken(ctx, tokenString)
	if err != nil {
		s.log.Error("Auth service verification failed", "error", err)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}
	if !resp.Valid || resp.UserID == nil || *resp.UserID == "" {
		return nil, apperrors.ErrInvalidToken
	}

	user := &domain.User{ID: *resp.UserID, GlobalRole: domain.GlobalRoleUser}
	if resp.Email != nil {
		user.Email = *resp.Email
		user.DisplayName = *resp.Email
	}
	if resp.DisplayName != nil {
		user.DisplayName = *resp.DisplayName
	}
	if len(resp.Roles) > 0 {
		user.GlobalRole = roleOrDefault(resp.Roles[0])
	}

	return ensureUser(ctx, s.userRepo, s.log, user)
}

// ensureUser returns the stored record for candidate.ID, creating it on first sight so a
// freshly registered account can chat before the profile service syncs it.
func ensureUser(ctx context.Context, users repository.UserRepository, log logger.Logger, candidate *domain.User) (*domain.User, error) {
	user, err := users.GetByID(ctx, candidate.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, err
	}

	created, err := users.CreateIfAbsent(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if created {
		log.Info("Provisioned chat user", "user_id", candidate.ID)
	}
	return users.GetByID(ctx, candidate.ID)
}

func roleOrDefault(role string) string {
	if role == domain.GlobalRoleAdmin {
		return role
	}
	return domain.GlobalRoleUser
}
