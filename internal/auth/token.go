package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/paras-verma7454/DriveDeck/internal"
)

const bearerPrefix = "Bearer "

type JWTTokenGenerator struct {
	secret         []byte
	accessTokenTTL time.Duration
	parser         *jwt.Parser
}

func NewJWTTokenGenerator(cfg internal.SecurityConfig) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		secret:         []byte(cfg.JWTSecret),
		accessTokenTTL: cfg.AccessTokenDuration,
		parser:         jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// GenerateAccessToken signs a token for userID. A zero TTL issues a token
// without exp.
func (j *JWTTokenGenerator) GenerateAccessToken(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if j.accessTokenTTL != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(j.accessTokenTTL))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// VerifyHeader extracts the bearer token from an Authorization header value
// and returns the subject id it was issued for.
func (j *JWTTokenGenerator) VerifyHeader(header string) (string, error) {
	if header == "" || !strings.HasPrefix(header, bearerPrefix) {
		return "", internal.ErrMissingAuthHeader
	}

	parts := strings.Split(header, " ")
	claims, err := j.Verify(parts[1])
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (j *JWTTokenGenerator) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, internal.ErrInvalidToken
	}

	token, err := j.parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	})
	if err != nil {
		return nil, internal.ErrInvalidToken.WithCause(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}
