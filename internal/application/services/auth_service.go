package services

import (
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/security"
	"golang.org/x/crypto/bcrypt"
)

// adminSessionTTL is how long an admin login token stays valid.
const adminSessionTTL = 24 * time.Hour

// AuthService handles admin authentication and session token validation.
type AuthService struct {
	jwtSecret         string
	adminPasswordHash string
	logger            *logging.ChanneledLogger
}

// NewAuthService creates the authentication service.
func NewAuthService(jwtSecret, adminPasswordHash string, logger *logging.ChanneledLogger) *AuthService {
	return &AuthService{
		jwtSecret:         jwtSecret,
		adminPasswordHash: adminPasswordHash,
		logger:            logger,
	}
}

// AuthResult holds authentication result data
type AuthResult struct {
	Token   string `json:"token"`
	Role    string `json:"role,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Authenticate validates the admin password and mints a session token.
func (a *AuthService) Authenticate(password string) *AuthResult {
	if a.adminPasswordHash == "" {
		a.logger.Auth().Warn("Login attempted with no admin password configured")
		return &AuthResult{Success: false, Error: "Authentication is not configured"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.adminPasswordHash), []byte(password)); err != nil {
		a.logger.Auth().Warn("Failed login attempt")
		return &AuthResult{Success: false, Error: "Invalid credentials"}
	}

	token, err := security.GenerateAdminToken(a.jwtSecret, adminSessionTTL)
	if err != nil {
		a.logger.Auth().Error("Token generation failed", "error", err.Error())
		return &AuthResult{Success: false, Error: "Token generation failed"}
	}

	a.logger.Auth().Info("Admin authenticated")
	return &AuthResult{Token: token, Role: "admin", Success: true}
}

// ValidateToken checks whether a session token is a valid admin token.
func (a *AuthService) ValidateToken(tokenString string) bool {
	if tokenString == "" {
		return false
	}
	return security.IsAdminToken(tokenString, a.jwtSecret)
}
