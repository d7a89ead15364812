package iam

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/config"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// Token error codes
const (
	ErrCodeInvalidToken       = "TOKEN_NOT_VALID"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
)

// JWTClaims represents JWT token claims
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 access tokens
type TokenManager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenManager creates a token manager from the JWT configuration
func NewTokenManager(cfg *config.JWTConfig) *TokenManager {
	return &TokenManager{
		secret:   []byte(cfg.SecretKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      time.Duration(cfg.AccessTokenTTL) * time.Second,
		now:      time.Now,
	}
}

// TTL returns the lifetime of issued tokens
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Issue signs an access token for user
func (tm *TokenManager) Issue(user *types.User) (string, time.Time, error) {
	now := tm.now()

	claims := &JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    tm.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if tm.audience != "" {
		claims.Audience = jwt.ClaimStrings{tm.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, now, nil
}

// ValidateJWT validates a token and returns its claims
func (tm *TokenManager) ValidateJWT(tokenString string) (*types.UserClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tm.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	}
	if tm.audience != "" {
		opts = append(opts, jwt.WithAudience(tm.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, &types.AppError{
			Type:    types.ErrorTypeAuthentication,
			Code:    ErrCodeInvalidToken,
			Message: "Given token not valid for any token type.",
			Cause:   err,
		}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || claims.UserID == "" {
		return nil, types.NewAuthenticationError(ErrCodeInvalidToken, "Token contained no recognizable user identification.")
	}

	return &types.UserClaims{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   types.UserRole(claims.Role),
	}, nil
}
