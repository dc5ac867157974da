package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccessToken(t *testing.T) {
	tok, err := NewAccessToken("secret", "ST1ORG", "Org", "ORGANIZER", 30)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), tok.Exp, 5*time.Second)

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(tok.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, "ST1ORG", claims["sub"])
	assert.Equal(t, "Org", claims["name"])
	assert.Equal(t, "ORGANIZER", claims["role"])
}

func TestNewAccessTokenRequiresInputs(t *testing.T) {
	_, err := NewAccessToken("", "ST1ORG", "", "ORGANIZER", 30)
	assert.Error(t, err)
	_, err = NewAccessToken("secret", "", "", "ORGANIZER", 30)
	assert.Error(t, err)
}
