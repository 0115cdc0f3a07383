package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yukifiles/yukifiles/internal/models"
)

// AuthService turns authenticated users into signed session tokens and
// back. Credential checking itself lives in UserService's demo policy.
type AuthService struct {
	users           *UserService
	jwtSecret       []byte
	sessionDuration time.Duration
}

func NewAuthService(users *UserService, jwtSecret string, sessionDuration time.Duration) (*AuthService, error) {
	if jwtSecret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	if sessionDuration <= 0 {
		sessionDuration = 24 * time.Hour
	}
	return &AuthService{
		users:           users,
		jwtSecret:       []byte(jwtSecret),
		sessionDuration: sessionDuration,
	}, nil
}

type Claims struct {
	UserID string      `json:"uid"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Login authenticates and issues a session token.
func (s *AuthService) Login(email, credential string) (*models.User, string, error) {
	user, err := s.users.Authenticate(email, credential)
	if err != nil {
		return nil, "", err
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionDuration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}

// GetUserByID passes through to the user store; handlers use it to resolve
// the authenticated user.
func (s *AuthService) GetUserByID(id string) (*models.User, error) {
	return s.users.GetByID(id)
}
