package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/retailpos/backoffice/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// PermissionConfig tunes how refusals are reported
type PermissionConfig struct {
	// Logger receives one warning per refusal when set
	Logger *zap.Logger
	// OnDenied replaces the default 403 response
	OnDenied func(c *gin.Context, requiredPerms []string)
}

// RequirePermission refuses callers whose token lacks permission. It must
// run after JWTAuthMiddleware.
func RequirePermission(permission string) gin.HandlerFunc {
	return RequireAnyPermissionWithConfig(PermissionConfig{}, permission)
}

func RequirePermissionWithConfig(permission string, cfg PermissionConfig) gin.HandlerFunc {
	return RequireAnyPermissionWithConfig(cfg, permission)
}

// RequireAnyPermissionWithConfig admits callers holding at least one of
// permissions
func RequireAnyPermissionWithConfig(cfg PermissionConfig, permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims != nil {
			for _, p := range permissions {
				if claims.HasPermission(p) {
					c.Next()
					return
				}
			}
		}

		if cfg.OnDenied != nil {
			cfg.OnDenied(c, permissions)
			return
		}
		if cfg.Logger != nil {
			fields := []zap.Field{
				zap.Strings("required_permissions", permissions),
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
			}
			if claims != nil {
				fields = append(fields,
					zap.String("user_id", claims.UserID),
					zap.String("store_id", claims.StoreID),
					zap.Strings("user_permissions", claims.Permissions),
				)
			}
			cfg.Logger.Warn("Permission denied", fields...)
		}
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeForbidden, "Access denied: insufficient permissions", c.GetString(RequestIDKey)))
	}
}
