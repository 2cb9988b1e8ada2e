package services

import (
	"testing"

	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func silentLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: false,
		JSONFormat:      true,
	})
	require.NoError(t, err)
	return logger
}

func TestAuthenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	auth := NewAuthService("test-secret", string(hash), silentLogger(t))

	result := auth.Authenticate("correct-horse")
	require.True(t, result.Success)
	assert.Equal(t, "admin", result.Role)
	assert.NotEmpty(t, result.Token)
	assert.True(t, auth.ValidateToken(result.Token))

	result = auth.Authenticate("wrong-password")
	assert.False(t, result.Success)
	assert.Equal(t, "Invalid credentials", result.Error)
	assert.Empty(t, result.Token)
}

func TestAuthenticateUnconfigured(t *testing.T) {
	auth := NewAuthService("test-secret", "", silentLogger(t))

	result := auth.Authenticate("anything")
	assert.False(t, result.Success)
	assert.Equal(t, "Authentication is not configured", result.Error)
}

func TestValidateTokenRejectsForeignTokens(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)

	auth := NewAuthService("secret-a", string(hash), silentLogger(t))
	other := NewAuthService("secret-b", string(hash), silentLogger(t))

	result := auth.Authenticate("pw")
	require.True(t, result.Success)

	assert.False(t, other.ValidateToken(result.Token))
	assert.False(t, auth.ValidateToken(""))
	assert.False(t, auth.ValidateToken("garbage"))
}
