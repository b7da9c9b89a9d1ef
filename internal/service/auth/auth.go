// internal/service/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"routedesk-service/internal/domain/auth"
	xerrors "routedesk-service/internal/pkg/errors"
	"routedesk-service/internal/pkg/jwt"
	"routedesk-service/internal/pkg/session"
	"routedesk-service/internal/ports"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Disconnector drops a user's live connections.
type Disconnector interface {
	DisconnectUser(userID int64, reason string)
}

type AuthService struct {
	users          ports.UserRepository
	groupings      ports.GroupingRepository
	jwtManager     *jwt.Manager
	sessionManager *session.Manager
	rateLimiter    *session.RateLimiter
	hub            Disconnector
	logger         *zap.Logger
}

func NewAuthService(
	store ports.Repositories,
	jwtManager *jwt.Manager,
	sessionManager *session.Manager,
	rateLimiter *session.RateLimiter,
	hub Disconnector,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:          store.Users(),
		groupings:      store.Groupings(),
		jwtManager:     jwtManager,
		sessionManager: sessionManager,
		rateLimiter:    rateLimiter,
		hub:            hub,
		logger:         logger,
	}
}

// ========== Login ==========

// Login authenticates a user with username/password
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest, now time.Time) (*auth.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)

	// Rate limiting
	allowed, remaining, err := s.rateLimiter.CheckLoginAttempt(ctx, req.IPAddress, username)
	if err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}
	if !allowed {
		return nil, fmt.Errorf("too many login attempts, please try again in 15 minutes: %w", xerrors.ErrRateLimited)
	}

	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, fmt.Errorf("invalid credentials: %w", xerrors.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials (attempts remaining: %d): %w", remaining, xerrors.ErrUnauthorized)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("account is inactive: %w", xerrors.ErrForbidden)
	}

	if err := s.rateLimiter.ResetLoginAttempts(ctx, req.IPAddress, username); err != nil {
		s.logger.Warn("failed to reset login attempts", zap.Error(err))
	}

	landing, err := s.Landing(ctx, user)
	if err != nil {
		return nil, err
	}

	roles := []string{user.Role}
	accessToken, jti, err := s.jwtManager.Generator.GenerateAccessToken(user.ID, user.Username, roles, req.Device, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	expiresAt := now.Add(s.jwtManager.Generator.Ttl)

	if err := s.sessionManager.CreateSession(ctx, &session.SessionData{
		JTI:            jti,
		UserID:         user.ID,
		Username:       user.Username,
		Roles:          roles,
		Device:         req.Device,
		IPAddress:      req.IPAddress,
		UserAgent:      req.UserAgent,
		LoginAt:        now,
		LastActivityAt: now,
		ExpiresAt:      expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("user logged in",
		zap.Int64("user_id", user.ID),
		zap.String("role", user.Role),
		zap.String("landing", string(landing)),
	)

	return &auth.LoginResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.jwtManager.Generator.Ttl.Seconds()),
		ExpiresAt:   expiresAt,
		User:        user.Info(),
		Landing:     landing,
	}, nil
}

// Landing decides where a user starts: managers on the dashboard, anyone selling for
// a grouping on the sales cockpit, everyone else on their delivery board.
func (s *AuthService) Landing(ctx context.Context, user *auth.User) (auth.Landing, error) {
	switch user.Role {
	case auth.RoleManager:
		return auth.LandingDashboard, nil
	case auth.RoleSalesAgent:
		return auth.LandingSalesCockpit, nil
	}
	sells, err := s.groupings.HasSalesAgent(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve landing: %w", err)
	}
	if sells {
		return auth.LandingSalesCockpit, nil
	}
	return auth.LandingDeliveryBoard, nil
}

// ========== Logout ==========

// Logout invalidates the current session and revokes its token
func (s *AuthService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if err := s.sessionManager.InvalidateSession(ctx, claims.UserID, claims.ID); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}

	var remaining time.Duration
	if claims.ExpiresAt != nil {
		remaining = time.Until(claims.ExpiresAt.Time)
	}
	if err := s.sessionManager.BlacklistToken(ctx, claims.ID, remaining); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	if s.hub != nil {
		s.hub.DisconnectUser(claims.UserID, "User logged out")
	}
	s.logger.Info("user logged out", zap.Int64("user_id", claims.UserID))
	return nil
}

// ValidateToken validates a JWT token and session
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.jwtManager.Verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %v: %w", err, xerrors.ErrUnauthorized)
	}

	blacklisted, err := s.sessionManager.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check blacklist: %w", err)
	}
	if blacklisted {
		return nil, fmt.Errorf("token has been revoked: %w", xerrors.ErrUnauthorized)
	}

	if _, err := s.sessionManager.GetSession(ctx, claims.UserID, claims.ID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, xerrors.ErrSessionExpired
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	return claims, nil
}

// Me returns the caller's profile and landing
func (s *AuthService) Me(ctx context.Context, userID int64) (*auth.UserInfo, auth.Landing, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	landing, err := s.Landing(ctx, user)
	if err != nil {
		return nil, "", err
	}
	info := user.Info()
	return &info, landing, nil
}
