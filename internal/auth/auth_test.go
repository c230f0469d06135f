package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-backend/internal/config"
	"loan-backend/internal/models"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "unit-test-secret"
	cfg.JWT.ExpirationHours = 2
	cfg.JWT.Issuer = "loan-backend"
	return cfg
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := NewJWTManager(testConfig())
	user := &models.User{ID: 42, Email: "admin@example.com", Role: models.RoleAdmin}

	token, err := m.GenerateToken(user)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "loan-backend", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestValidateToken_Rejects(t *testing.T) {
	m := NewJWTManager(testConfig())
	user := &models.User{ID: 1, Email: "a@example.com", Role: models.RoleAgent}

	t.Run("wrong secret", func(t *testing.T) {
		other := testConfig()
		other.JWT.Secret = "another-secret"
		token, err := NewJWTManager(other).GenerateToken(user)
		require.NoError(t, err)
		_, err = m.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewJWTManager(testConfig())
		past.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
		token, err := past.GenerateToken(user)
		require.NoError(t, err)
		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1, Role: models.RoleAdmin})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.ValidateToken(signed)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.ValidateToken("not-a-token")
		assert.Error(t, err)
	})
}

func TestTempToken(t *testing.T) {
	m := NewJWTManager(testConfig())
	user := &models.User{ID: 9, Email: "admin@example.com", Role: models.RoleAdmin}

	temp, err := m.GenerateTempToken(user)
	require.NoError(t, err)

	claims, err := m.ValidateTempToken(temp)
	require.NoError(t, err)
	assert.Equal(t, 9, claims.UserID)

	// an access token is not a 2FA token
	access, err := m.GenerateToken(user)
	require.NoError(t, err)
	_, err = m.ValidateTempToken(access)
	assert.Error(t, err)

	// and a 2FA token is not an access token
	_, err = m.ValidateToken(temp)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, VerifyPassword(hash, "s3cret-pass"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}
