package utils

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dgrijalva/jwt-go"
)

const resetPurpose = "reset"

var (
	ErrMissingSecret = errors.New("SECRET_KEY not set")
	ErrInvalidToken  = errors.New("invalid reset token")
)

// GenerateResetToken signs a short-lived HS256 token naming the account email.
func GenerateResetToken(secret []byte, email string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrMissingSecret
	}

	claims := jwt.MapClaims{}
	claims["email"] = email
	claims["purpose"] = resetPurpose
	claims["exp"] = time.Now().Add(ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyResetToken returns the email a valid, unexpired reset token was issued for.
func VerifyResetToken(secret []byte, tokenString string) (string, error) {
	if len(secret) == 0 {
		return "", ErrMissingSecret
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid || claims["purpose"] != resetPurpose {
		return "", ErrInvalidToken
	}

	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return "", ErrInvalidToken
	}

	return email, nil
}

// BuildResetLink appends the token to base as the "token" query parameter.
func BuildResetLink(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("reset base url %q is not absolute", base)
	}

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
