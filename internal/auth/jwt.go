// Package auth issues and checks the signed tokens that identify a user.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. A reset token is never accepted as a session and the
// other way round.
const (
	PurposeSession = "session"
	PurposeReset   = "password_reset"
)

// Claims represents the JWT claims.
type Claims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Role    string `json:"role,omitempty"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenExpiry is the session token lifetime.
const TokenExpiry = 7 * 24 * time.Hour

// ResetExpiry is the password reset token lifetime.
const ResetExpiry = time.Hour

// ErrWrongPurpose is returned when a token is presented for the wrong use.
var ErrWrongPurpose = errors.New("token not valid for this use")

// GenerateToken creates a session token for a user with a unique JTI.
func GenerateToken(secret, userID, email, role string) (string, error) {
	return sign(secret, Claims{UserID: userID, Email: email, Role: role, Purpose: PurposeSession}, TokenExpiry)
}

// GenerateResetToken creates a short-lived password reset token.
func GenerateResetToken(secret, userID, email string) (string, error) {
	return sign(secret, Claims{UserID: userID, Email: email, Purpose: PurposeReset}, ResetExpiry)
}

func sign(secret string, claims Claims, ttl time.Duration) (string, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", fmt.Errorf("generating JTI: %w", err)
	}

	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        jti,
		Subject:   claims.UserID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses a JWT and checks that it was issued for purpose.
func ValidateToken(secret, tokenStr, purpose string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token has no user")
	}
	return claims, nil
}

// generateJTI creates a random token ID.
func generateJTI() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
