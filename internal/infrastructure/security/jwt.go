// Package security provides JWT token utilities
package security

import (
	"errors"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// GenerateStaffToken creates a JWT token for an authenticated staff session
func GenerateStaffToken(tenantID, jwtSecret string) (string, error) {
	claims := jwt.MapClaims{
		"tenantId": tenantID,
		"role":     "staff",
		"iat":      time.Now().UTC().Unix(),
		"exp":      time.Now().UTC().Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	result, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		log.Printf("ERROR: Failed to sign JWT token: %v", err)
		return "", err
	}

	return result, nil
}

// IsStaffClaims reports whether claims carry the staff role for the given tenant
func IsStaffClaims(claims jwt.MapClaims, tenantID string) bool {
	role, _ := claims["role"].(string)
	claimTenant, _ := claims["tenantId"].(string)
	return role == "staff" && claimTenant == tenantID
}
