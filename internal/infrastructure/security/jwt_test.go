package security_test

import (
	"testing"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func TestAdminTokenRoundTrip(t *testing.T) {
	token, err := security.GenerateAdminToken(testSecret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.True(t, security.IsAdminToken(token, testSecret))

	claims, err := security.ValidateJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims["role"])
	assert.Equal(t, "admin_auth", claims["type"])
}

func TestAdminTokenWrongSecret(t *testing.T) {
	token, err := security.GenerateAdminToken(testSecret, time.Hour)
	require.NoError(t, err)

	assert.False(t, security.IsAdminToken(token, "some-other-secret"))

	_, err = security.ValidateJWT(token, "some-other-secret")
	assert.Error(t, err)
}

func TestExpiredAdminToken(t *testing.T) {
	token, err := security.GenerateAdminToken(testSecret, -time.Minute)
	require.NoError(t, err)

	assert.False(t, security.IsAdminToken(token, testSecret))
}

func TestIsAdminTokenRejectsGarbage(t *testing.T) {
	assert.False(t, security.IsAdminToken("not.a.token", testSecret))
	assert.False(t, security.IsAdminToken("", testSecret))
}

func TestGenerateSecureKey(t *testing.T) {
	key, err := security.GenerateSecureKey(64)
	require.NoError(t, err)
	assert.Len(t, key, 64)

	other, err := security.GenerateSecureKey(64)
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}
