package service

import (
	"fmt"

	"consenthub/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

// JWTTokenService implements ports.TokenService using HS256 JWT. Tokens are
// issued by the identity provider; this service only verifies them.
type JWTTokenService struct {
	secret []byte
	issuer string
}

// NewJWTTokenService creates a new JWT token service.
func NewJWTTokenService(secret, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// Validate parses and validates a JWT token, returning the identity claims.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("missing subject claim")
	}
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return nil, fmt.Errorf("missing role claim")
	}
	switch role {
	case "customer", "csr", "admin":
	default:
		return nil, fmt.Errorf("unknown role: %s", role)
	}

	partyID, _ := claims["party_id"].(string)

	return &ports.TokenClaims{
		UID:     sub,
		Role:    role,
		PartyID: partyID,
	}, nil
}
