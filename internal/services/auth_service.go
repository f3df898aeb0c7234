package services

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// AdminRole is the role claim that unlocks catalog management routes.
const AdminRole = "admin"

// AuthService issues and checks the bearer tokens guarding admin routes.
// There are no user accounts: operators mint tokens with cmd/admintoken.
type AuthService struct {
	jwtSecret  []byte
	tokenDurat time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(jwtSecret string, tokenDuration time.Duration) *AuthService {
	if tokenDuration <= 0 {
		tokenDuration = 24 * time.Hour
	}
	return &AuthService{
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: tokenDuration,
	}
}

// IssueAdminToken signs a token for subject carrying the admin role.
func (s *AuthService) IssueAdminToken(subject string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": AdminRole,
		"exp":  time.Now().Add(s.tokenDurat).Unix(),
		"iat":  time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// ValidateAdminToken is ValidateToken plus a check of the role claim.
func (s *AuthService) ValidateAdminToken(tokenString string) (jwt.MapClaims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if role, _ := claims["role"].(string); role != AdminRole {
		return nil, fmt.Errorf("token lacks the %s role", AdminRole)
	}
	return claims, nil
}
