package token

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	m := NewJWTManager("secret", 1)

	tok, err := m.GenerateToken(7, "root", RoleAdmin)
	require.NoError(t, err)

	claims, err := m.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "root", claims.Username)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestVerify_WrongSecret(t *testing.T) {
	tok, err := NewJWTManager("a", 1).GenerateToken(1, "u", "USER")
	require.NoError(t, err)

	_, err = NewJWTManager("b", 1).VerifyToken(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestVerify_Expired(t *testing.T) {
	tok, err := NewJWTManager("s", -1).GenerateToken(1, "u", "USER")
	require.NoError(t, err)

	_, err = NewJWTManager("s", 1).VerifyToken(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerify_Garbage(t *testing.T) {
	_, err := NewJWTManager("s", 1).VerifyToken("not-a-token")
	assert.Error(t, err)
}
