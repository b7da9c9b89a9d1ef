// internal/service/auth/users.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"routedesk-service/internal/domain/auth"
	xerrors "routedesk-service/internal/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// CreateUser creates a staff account (manager only)
func (s *AuthService) CreateUser(ctx context.Context, req *auth.CreateUserRequest, createdBy int64, now time.Time) (*auth.UserInfo, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", xerrors.ErrInvalidInput)
	}
	if !auth.ValidRole(req.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", xerrors.ErrInvalidInput, req.Role)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &auth.User{
		Username:     username,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: string(hashedPassword),
		Role:         req.Role,
		IsActive:     true,
		CreatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, xerrors.ErrConflict) {
			return nil, fmt.Errorf("username %s is taken: %w", username, xerrors.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created",
		zap.Int64("user_id", user.ID),
		zap.String("role", user.Role),
		zap.Int64("created_by", createdBy),
	)
	info := user.Info()
	return &info, nil
}

// ListUsers lists accounts, optionally restricted to one role
func (s *AuthService) ListUsers(ctx context.Context, role string) ([]auth.UserInfo, error) {
	if role != "" && !auth.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", xerrors.ErrInvalidInput, role)
	}
	users, err := s.users.ListByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	out := make([]auth.UserInfo, 0, len(users))
	for i := range users {
		out = append(out, users[i].Info())
	}
	return out, nil
}

// EnsureManagerExists creates a manager account if none exists (called on startup)
func (s *AuthService) EnsureManagerExists(ctx context.Context, username, password, fullName string, now time.Time) error {
	count, err := s.users.CountByRole(ctx, auth.RoleManager)
	if err != nil {
		return fmt.Errorf("failed to check manager existence: %w", err)
	}
	if count > 0 {
		s.logger.Info("manager already exists, skipping creation")
		return nil
	}

	if username == "" || password == "" {
		return fmt.Errorf("manager username and password must be provided via environment variables")
	}

	info, err := s.CreateUser(ctx, &auth.CreateUserRequest{
		Username: username,
		FullName: fullName,
		Password: password,
		Role:     auth.RoleManager,
	}, 0, now)
	if err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}

	s.logger.Info("manager created successfully",
		zap.String("username", info.Username),
		zap.Int64("user_id", info.ID),
	)
	return nil
}
