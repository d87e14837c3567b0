package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/retailpos/backoffice/internal/infrastructure/auth"
	"github.com/retailpos/backoffice/internal/infrastructure/logger"
	"github.com/retailpos/backoffice/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const (
	JWTClaimsKey  = "jwt_claims"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// ErrMissingCredentials is reported when no usable bearer token was sent
var ErrMissingCredentials = errors.New("missing bearer token")

// JWTMiddlewareConfig configures JWTAuthMiddlewareWithConfig. Only
// JWTService is required.
type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	// Revocations, when set, refuses tokens revoked by logout or by a
	// per-user cutoff
	Revocations      auth.RevocationList
	SkipPaths        []string
	SkipPathPrefixes []string
	// OnError replaces the default 401 response
	OnError func(c *gin.Context, err error)
	Logger  *zap.Logger
}

// DefaultJWTConfig leaves the health endpoints open
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService:       jwtService,
		SkipPaths:        []string{"/health", "/healthz", "/api/v1/health"},
		SkipPathPrefixes: []string{"/health/"},
	}
}

func (cfg JWTMiddlewareConfig) skips(path string) bool {
	if slices.Contains(cfg.SkipPaths, path) {
		return true
	}
	return slices.ContainsFunc(cfg.SkipPathPrefixes, func(p string) bool { return strings.HasPrefix(path, p) })
}

func (cfg JWTMiddlewareConfig) log() *zap.Logger {
	if cfg.Logger == nil {
		return zap.NewNop()
	}
	return cfg.Logger
}

func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(jwtService))
}

// JWTAuthMiddlewareWithConfig validates the bearer token and stores its
// claims for the handlers. A revocation lookup that fails lets the request
// through: a Redis outage must not lock every till out.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.skips(c.Request.URL.Path) {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(c.GetHeader(AuthHeaderKey), BearerPrefix)
		if !ok || token == "" {
			rejectToken(c, cfg, ErrMissingCredentials)
			return
		}
		claims, err := cfg.JWTService.ValidateAccessToken(token)
		if err != nil {
			rejectToken(c, cfg, err)
			return
		}

		if cfg.Revocations != nil {
			revoked, err := cfg.Revocations.IsRevoked(c.Request.Context(), claims)
			if err != nil {
				cfg.log().Error("Token revocation check failed",
					zap.String("jti", claims.ID),
					zap.String("user_id", claims.UserID),
					zap.Error(err))
			} else if revoked {
				rejectToken(c, cfg, auth.ErrTokenRevoked)
				return
			}
		}

		c.Set(JWTClaimsKey, claims)
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), claims.UserID, claims.StoreID))
		c.Next()
	}
}

// tokenErrors maps validation failures onto response codes. Anything not
// listed is a plain 401 UNAUTHORIZED.
var tokenErrors = []struct {
	err     error
	code    string
	message string
}{
	{auth.ErrExpiredToken, dto.ErrCodeTokenExpired, "Token has expired"},
	{auth.ErrTokenNotYetValid, dto.ErrCodeTokenNotYetValid, "Token is not yet valid"},
	{auth.ErrTokenRevoked, dto.ErrCodeTokenRevoked, "Token has been revoked"},
	{auth.ErrInvalidToken, dto.ErrCodeTokenInvalid, "Invalid token"},
	{auth.ErrInvalidTokenType, dto.ErrCodeTokenInvalid, "Invalid token"},
	{auth.ErrInvalidClaims, dto.ErrCodeTokenInvalid, "Invalid token"},
	{auth.ErrMissingStoreID, dto.ErrCodeTokenInvalid, "Invalid token"},
	{auth.ErrMissingUserID, dto.ErrCodeTokenInvalid, "Invalid token"},
}

func rejectToken(c *gin.Context, cfg JWTMiddlewareConfig, err error) {
	if cfg.OnError != nil {
		cfg.OnError(c, err)
		return
	}
	cfg.log().Warn("JWT authentication failed", zap.Error(err), zap.String("path", c.Request.URL.Path))

	code, message := dto.ErrCodeUnauthorized, "Authentication required"
	for _, te := range tokenErrors {
		if errors.Is(err, te.err) {
			code, message = te.code, te.message
			break
		}
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, message, c.GetString(RequestIDKey)))
}

// GetJWTClaims returns the claims stored by the JWT middleware, or nil
func GetJWTClaims(c *gin.Context) *auth.Claims {
	v, _ := c.Get(JWTClaimsKey)
	claims, _ := v.(*auth.Claims)
	return claims
}

func GetJWTUserID(c *gin.Context) string {
	if claims := GetJWTClaims(c); claims != nil {
		return claims.UserID
	}
	return ""
}

func GetJWTStoreID(c *gin.Context) string {
	if claims := GetJWTClaims(c); claims != nil {
		return claims.StoreID
	}
	return ""
}
