package middleware

import (
	"net/http"

	"github.com/dbcb2b/backend/internal/domain/identity"
	"github.com/dbcb2b/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PermissionConfig holds configuration for permission middleware
type PermissionConfig struct {
	// Logger for middleware logging
	Logger *zap.Logger
	// OnDenied is called when permission is denied (optional)
	OnDenied func(c *gin.Context, requiredPerms []identity.Permission)
}

// RequirePermission creates middleware that requires any of the given permissions.
// Own-scoped permissions are checked here only at the role level; ownership of
// the addressed record is enforced by the services.
func RequirePermission(permissions ...identity.Permission) gin.HandlerFunc {
	return RequirePermissionWithConfig(PermissionConfig{}, permissions...)
}

// RequirePermissionWithConfig creates middleware with custom config
func RequirePermissionWithConfig(cfg PermissionConfig, permissions ...identity.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			handlePermissionDenied(c, cfg, permissions, "No authenticated principal")
			return
		}

		for _, perm := range permissions {
			if principal.Can(perm) {
				if cfg.Logger != nil {
					cfg.Logger.Debug("Permission check passed",
						zap.String("user_id", principal.UserID.String()),
						zap.String("role", string(principal.Role)),
						zap.String("permission", string(perm)),
					)
				}
				c.Next()
				return
			}
		}

		handlePermissionDenied(c, cfg, permissions, "Role lacks required permission")
	}
}

// RequireAdmin allows only operators
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok || !principal.IsAdmin() {
			handlePermissionDenied(c, PermissionConfig{}, nil, "Admin role required")
			return
		}
		c.Next()
	}
}

// handlePermissionDenied handles permission denied scenarios
func handlePermissionDenied(c *gin.Context, cfg PermissionConfig, requiredPerms []identity.Permission, reason string) {
	if cfg.OnDenied != nil {
		cfg.OnDenied(c, requiredPerms)
		return
	}

	if cfg.Logger != nil {
		required := make([]string, len(requiredPerms))
		for i, p := range requiredPerms {
			required[i] = string(p)
		}
		cfg.Logger.Warn("Permission denied",
			zap.String("reason", reason),
			zap.String("user_id", GetJWTUserID(c)),
			zap.String("role", GetJWTRole(c)),
			zap.Strings("required_permissions", required),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
	}

	c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeForbidden,
		"Access denied: insufficient permissions",
		GetRequestID(c),
	))
}
