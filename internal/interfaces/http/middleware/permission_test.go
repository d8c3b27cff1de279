package middleware

import (
	"net/http"
	"testing"

	"github.com/dbcb2b/backend/internal/domain/identity"
	"github.com/dbcb2b/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestRequirePermission(t *testing.T) {
	jwtService := newTestJWTService()
	clientToken, _ := newTestToken(t, jwtService, identity.RoleClient)
	adminToken, _ := newTestToken(t, jwtService, identity.RoleAdmin)

	router := gin.New()
	router.Use(JWTAuthMiddleware(jwtService))
	router.GET("/catalog", RequirePermission(identity.PermCatalogRead), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/catalog/import", RequirePermissionWithConfig(
		PermissionConfig{Logger: zaptest.NewLogger(t)},
		identity.PermCatalogImport,
	), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/orders", RequirePermission(identity.PermOrderReadOwn, identity.PermOrderReadAll), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"client reads catalog", "/catalog", clientToken, http.StatusOK},
		{"client cannot import catalog", "/catalog/import", clientToken, http.StatusForbidden},
		{"admin imports catalog", "/catalog/import", adminToken, http.StatusOK},
		{"any of own or all", "/orders", clientToken, http.StatusOK},
		{"client is not admin", "/admin", clientToken, http.StatusForbidden},
		{"admin passes admin gate", "/admin", adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(router, tt.path, "Bearer "+tt.token)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusForbidden {
				assert.Equal(t, dto.ErrCodeForbidden, errorCode(t, rec))
			}
		})
	}
}

func TestRequirePermission_NoPrincipal(t *testing.T) {
	router := gin.New()
	router.GET("/catalog", RequirePermission(identity.PermCatalogRead), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := doRequest(router, "/catalog", "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequirePermission_OnDenied(t *testing.T) {
	var denied []identity.Permission
	cfg := PermissionConfig{OnDenied: func(c *gin.Context, perms []identity.Permission) {
		denied = perms
		c.AbortWithStatus(http.StatusNotFound)
	}}

	router := gin.New()
	router.GET("/x", RequirePermissionWithConfig(cfg, identity.PermOrderShip), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := doRequest(router, "/x", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, []identity.Permission{identity.PermOrderShip}, denied)
}
