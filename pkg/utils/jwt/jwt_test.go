package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	Init("test-secret", time.Hour)

	token, err := GenerateToken(7, "agente@inmuebles.bo", 3, "admin")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, uint(3), claims.CompanyID)
	assert.Equal(t, "admin", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	Init("one", time.Hour)
	token, err := GenerateToken(1, "a@b.c", 1, "agente")
	require.NoError(t, err)

	Init("two", time.Hour)
	_, err = ValidateToken(token)
	assert.Error(t, err)

	_, err = ValidateToken("garbage")
	assert.Error(t, err)
}
