package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/infrastructure/config"
)

// TokenTypeAccess is the only token type accepted by this service
const TokenTypeAccess = "access"

// Permissions checked by the returns API
const (
	PermissionReturnsCreate = "returns:create"
	PermissionReturnsManage = "returns:manage" // approve, reject, complete, delete
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingStoreID   = errors.New("missing store_id in claims")
	ErrMissingUserID    = errors.New("missing user_id in claims")
	ErrTokenRevoked     = errors.New("token has been revoked")
)

// Claims are the claims of an access token issued by the POS login service
type Claims struct {
	jwt.RegisteredClaims
	StoreID     string   `json:"store_id"`
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	Permissions []string `json:"permissions,omitempty"`
	TokenType   string   `json:"token_type"`
}

// JWTService validates access tokens. It can also issue them, which the
// test suites and local tooling use.
type JWTService struct {
	secret []byte
	issuer string
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
	}
}

// IssueInput contains input for token generation
type IssueInput struct {
	StoreID     uuid.UUID
	UserID      uuid.UUID
	Username    string
	Permissions []string
	TTL         time.Duration
}

// IssueAccessToken signs an access token
func (s *JWTService) IssueAccessToken(in IssueInput) (string, error) {
	now := time.Now()
	if in.TTL <= 0 {
		in.TTL = 15 * time.Minute
	}
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   in.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(in.TTL)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		StoreID:     in.StoreID.String(),
		UserID:      in.UserID.String(),
		Username:    in.Username,
		Permissions: in.Permissions,
		TokenType:   TokenTypeAccess,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ValidateAccessToken validates an access token and returns its claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrInvalidTokenType
	}
	if claims.StoreID == "" {
		return nil, ErrMissingStoreID
	}
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	if _, _, err := claims.Actor(); err != nil {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// Actor parses the user and store IDs of the claims
func (c *Claims) Actor() (userID, storeID uuid.UUID, err error) {
	if userID, err = uuid.Parse(c.UserID); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if storeID, err = uuid.Parse(c.StoreID); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, storeID, nil
}

// HasPermission checks if the claims contain a specific permission
func (c *Claims) HasPermission(permission string) bool {
	return slices.Contains(c.Permissions, permission)
}

// IssuedAtTime returns the token's issued-at time
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}
