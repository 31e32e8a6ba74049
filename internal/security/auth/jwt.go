package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultIssuer = "leadintake"

var (
	// ErrMalformedHeader means the Authorization header is not "Bearer <token>"
	ErrMalformedHeader = errors.New("authorization header must be 'Bearer <token>'")
	// ErrInvalidToken wraps every token rejection
	ErrInvalidToken = errors.New("invalid token")
)

// Claims identify an operator session
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 session tokens for one issuer
type TokenManager struct {
	key    []byte
	issuer string
	parser *jwt.Parser
	now    func() time.Time
}

func NewTokenManager(secret, issuer string) *TokenManager {
	if secret == "" {
		secret = "change-me-in-production"
	}
	if issuer == "" {
		issuer = defaultIssuer
	}
	return &TokenManager{
		key:    []byte(secret),
		issuer: issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
		now: time.Now,
	}
}

// GenerateToken issues a token for the user that expires after ttl
func (tm *TokenManager) GenerateToken(userID, email, role string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required to issue a token")
	}

	issued := tm.now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.key)
}

// ValidateToken verifies signature, issuer and expiry and returns the claims
func (tm *TokenManager) ValidateToken(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, err := tm.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return tm.key, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return claims, nil
}

// ExtractToken pulls the token out of an Authorization header value
func ExtractToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMalformedHeader
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsRune(token, ' ') {
		return "", ErrMalformedHeader
	}
	return token, nil
}
