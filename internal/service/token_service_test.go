package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret-key"
	testIssuer = "consenthub-idp"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestTokenService_Validate_Success(t *testing.T) {
	svc := NewJWTTokenService(testSecret, testIssuer)

	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"iss":      testIssuer,
		"sub":      "user-42",
		"role":     "csr",
		"party_id": "8a6f3f1e-0000-0000-0000-000000000042",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	claims, err := svc.Validate(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.UID)
	assert.Equal(t, "csr", claims.Role)
	assert.Equal(t, "8a6f3f1e-0000-0000-0000-000000000042", claims.PartyID)
}

func TestTokenService_Validate_NoPartyID(t *testing.T) {
	svc := NewJWTTokenService(testSecret, testIssuer)

	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"iss":  testIssuer,
		"sub":  "admin-1",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	claims, err := svc.Validate(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
	assert.Empty(t, claims.PartyID)
}

func TestTokenService_Validate_WrongSecret(t *testing.T) {
	svc := NewJWTTokenService(testSecret, testIssuer)

	tokenString := signToken(t, "other-secret", jwt.MapClaims{
		"iss":  testIssuer,
		"sub":  "user-42",
		"role": "customer",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	claims, err := svc.Validate(tokenString)
	assert.Nil(t, claims)
	assert.Error(t, err)
}

func TestTokenService_Validate_WrongIssuer(t *testing.T) {
	svc := NewJWTTokenService(testSecret, testIssuer)

	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"iss":  "someone-else",
		"sub":  "user-42",
		"role": "customer",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	claims, err := svc.Validate(tokenString)
	assert.Nil(t, claims)
	assert.Error(t, err)
}

func TestTokenService_Validate_Expired(t *testing.T) {
	svc := NewJWTTokenService(testSecret, testIssuer)

	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"iss":  testIssuer,
		"sub":  "user-42",
		"role": "customer",
		"exp":  time.Now().Add(-time.Hour).Unix(),
	})

	claims, err := svc.Validate(tokenString)
	assert.Nil(t, claims)
	assert.Error(t, err)
}

func TestTokenService_Validate_MissingRole(t *testing.T) {
	svc := NewJWTTokenService(testSecret, testIssuer)

	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"iss": testIssuer,
		"sub": "user-42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	claims, err := svc.Validate(tokenString)
	assert.Nil(t, claims)
	assert.Error(t, err)
}

func TestTokenService_Validate_UnknownRole(t *testing.T) {
	svc := NewJWTTokenService(testSecret, testIssuer)

	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"iss":  testIssuer,
		"sub":  "user-42",
		"role": "superuser",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	claims, err := svc.Validate(tokenString)
	assert.Nil(t, claims)
	assert.Error(t, err)
}

func TestTokenService_Validate_Garbage(t *testing.T) {
	svc := NewJWTTokenService(testSecret, testIssuer)

	claims, err := svc.Validate("not.a.token")
	assert.Nil(t, claims)
	assert.Error(t, err)
}
