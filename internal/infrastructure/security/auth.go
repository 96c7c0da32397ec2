// Package security provides operator authentication for the admin API
package security

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cartwise/v3/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService issues and validates operator tokens. Operators present a
// shared key, verified against a bcrypt hash from config, and receive a
// short-lived JWT for subsequent admin calls.
type AuthService struct {
	config    *config.Config
	logger    *zap.Logger
	jwtSecret []byte
}

// NewAuthService creates a new operator authentication service
func NewAuthService(cfg *config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		config:    cfg,
		logger:    logger.Named("auth-service"),
		jwtSecret: []byte(cfg.Auth.JWTSecret),
	}
}

// OperatorClaims is the JWT claims structure for operator tokens
type OperatorClaims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// TokenRequest is the credential payload operators exchange for a token
type TokenRequest struct {
	Operator string `json:"operator" validate:"required,max=64"`
	Key      string `json:"key" validate:"required"`
}

// TokenResponse carries an issued operator token
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Operator  string    `json:"operator"`
}

// VerifyOperatorKey checks the presented key against the configured
// bcrypt hash
func (a *AuthService) VerifyOperatorKey(key string) error {
	if a.config.Auth.OperatorKeyHash == "" {
		return fmt.Errorf("no operator key configured")
	}
	return bcrypt.CompareHashAndPassword([]byte(a.config.Auth.OperatorKeyHash), []byte(key))
}

// HashOperatorKey hashes a raw operator key for storage in config
func (a *AuthService) HashOperatorKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), a.config.Auth.BCryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash operator key: %w", err)
	}
	return string(hash), nil
}

// IssueToken creates a signed operator token
func (a *AuthService) IssueToken(operator string) (*TokenResponse, error) {
	now := time.Now()
	ttl := a.config.Auth.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	expiresAt := now.Add(ttl)

	claims := &OperatorClaims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "cartwise",
			Subject:   operator,
			Audience:  []string{"cartwise-admin"},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &TokenResponse{
		Token:     signed,
		ExpiresAt: expiresAt,
		Operator:  operator,
	}, nil
}

// ValidateToken validates and parses an operator token
func (a *AuthService) ValidateToken(tokenString string) (*OperatorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*OperatorClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// AuthMiddleware guards admin routes with bearer token authentication
func (a *AuthService) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := a.ValidateToken(parts[1])
		if err != nil {
			a.logger.Info("Token validation failed",
				zap.String("error", err.Error()),
				zap.String("ip", c.ClientIP()),
			)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("operator", claims.Operator)
		c.Next()
	}
}
