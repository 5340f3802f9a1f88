package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestResetTokenRoundTrip(t *testing.T) {
	token, err := GenerateResetToken(secret, "rider@example.com", time.Minute)
	require.NoError(t, err)

	email, err := VerifyResetToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "rider@example.com", email)
}

func TestResetTokenRejections(t *testing.T) {
	expired, err := GenerateResetToken(secret, "rider@example.com", -time.Minute)
	require.NoError(t, err)
	_, err = VerifyResetToken(secret, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	token, err := GenerateResetToken(secret, "rider@example.com", time.Minute)
	require.NoError(t, err)
	_, err = VerifyResetToken([]byte("other-secret"), token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":   "rider@example.com",
		"purpose": "login",
		"exp":     time.Now().Add(time.Minute).Unix(),
	})
	signed, err := other.SignedString(secret)
	require.NoError(t, err)
	_, err = VerifyResetToken(secret, signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = GenerateResetToken(nil, "rider@example.com", time.Minute)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestBuildResetLink(t *testing.T) {
	link, err := BuildResetLink("https://ecbarko.test/reset?lang=en", "a.b.c")
	require.NoError(t, err)
	assert.Equal(t, "https://ecbarko.test/reset?lang=en&token=a.b.c", link)

	_, err = BuildResetLink("/reset", "a.b.c")
	assert.Error(t, err)
}

func TestGenerateOTP(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 50; i++ {
		otp, err := GenerateOTP(DefaultOTPDigits)
		require.NoError(t, err)
		assert.Regexp(t, pattern, otp)
	}

	_, err := GenerateOTP(0)
	assert.Error(t, err)
	_, err = GenerateOTP(19)
	assert.Error(t, err)
}
