// Package services provides staff authentication for analytics endpoints.
package services

import (
	"errors"

	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/security"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/tenant"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when a login attempt fails.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService issues and validates staff session tokens.
type AuthService struct {
	logger *logging.ChanneledLogger
}

// NewAuthService creates a new auth service.
func NewAuthService(logger *logging.ChanneledLogger) *AuthService {
	return &AuthService{logger: logger}
}

// Login verifies the staff password for a tenant and returns a session token.
func (s *AuthService) Login(tenantCtx *tenant.Context, password string) (string, error) {
	hash := tenantCtx.Config.AdminPasswordHash
	if hash == "" {
		s.logger.Auth().Error("Login rejected: tenant has no admin password configured",
			"tenantId", tenantCtx.TenantID)
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		s.logger.Auth().Warn("Login failed", "tenantId", tenantCtx.TenantID)
		return "", ErrInvalidCredentials
	}

	token, err := security.GenerateStaffToken(tenantCtx.TenantID, tenantCtx.Config.JWTSecret)
	if err != nil {
		return "", err
	}

	s.logger.Auth().Info("Staff login succeeded", "tenantId", tenantCtx.TenantID)
	return token, nil
}

// ValidateStaffToken checks a bearer token and confirms it carries the
// staff role for this tenant.
func (s *AuthService) ValidateStaffToken(tenantCtx *tenant.Context, token string) bool {
	claims, err := security.ValidateJWT(token, tenantCtx.Config.JWTSecret)
	if err != nil {
		return false
	}
	return security.IsStaffClaims(claims, tenantCtx.TenantID)
}
