package router

import (
	"github.com/dbcb2b/backend/internal/domain/identity"
	"github.com/dbcb2b/backend/internal/interfaces/http/handler"
	"github.com/dbcb2b/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers groups the HTTP handlers served under /api/v1
type Handlers struct {
	Catalog     *handler.CatalogHandler
	Order       *handler.OrderHandler
	OrderImport *handler.OrderImportHandler
	Unit        *handler.UnitHandler
	System      *handler.SystemHandler
}

// uploadGuard rate limits spreadsheet uploads when a limiter is configured
func uploadGuard(limiter *middleware.RateLimiter) []gin.HandlerFunc {
	if limiter == nil {
		return nil
	}
	return []gin.HandlerFunc{middleware.RateLimit(limiter)}
}

// chain builds a handler chain: permission check, optional extras, endpoint
func chain(perm gin.HandlerFunc, extra []gin.HandlerFunc, endpoint gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(extra)+2)
	out = append(out, perm)
	out = append(out, extra...)
	return append(out, endpoint)
}

// CatalogRoutes registers catalog browsing and the supplier catalog import
func CatalogRoutes(h *handler.CatalogHandler, uploads *middleware.RateLimiter) *DomainGroup {
	read := middleware.RequirePermission(identity.PermCatalogRead)

	g := NewDomainGroup("catalog", "/catalog")
	g.GET("/products", read, h.List)
	g.GET("/products/:sku", read, h.Get)
	g.GET("/neighbors", read, h.Neighbors)
	g.POST("/import", chain(middleware.RequirePermission(identity.PermCatalogImport), uploadGuard(uploads), h.Import)...)
	return g
}

// OrderRoutes registers the order lifecycle, order imports, serialized
// units and exports
func OrderRoutes(orders *handler.OrderHandler, imports *handler.OrderImportHandler, units *handler.UnitHandler, uploads *middleware.RateLimiter) *DomainGroup {
	read := middleware.RequirePermission(identity.PermOrderReadOwn, identity.PermOrderReadAll)
	update := middleware.RequirePermission(identity.PermOrderUpdateOwn, identity.PermOrderUpdateAll)
	ship := middleware.RequirePermission(identity.PermOrderShip)
	unitImport := middleware.RequirePermission(identity.PermOrderUnitImport)
	catalogImport := middleware.RequirePermission(identity.PermCatalogImport)

	g := NewDomainGroup("orders", "/orders")
	g.POST("/draft", middleware.RequirePermission(identity.PermOrderCreate), orders.CreateDraft)
	g.GET("", read, orders.List)
	g.GET("/shipping-cost", read, orders.ShippingCost)
	g.GET("/:id", read, orders.Get)
	g.PUT("/:id/items", update, orders.ReplaceItems)
	g.POST("/:id/validate", middleware.RequirePermission(identity.PermOrderValidate), orders.Validate)
	g.PUT("/:id/validate", update, orders.ReviseItems)
	g.PUT("/:id/validated-items", update, orders.ReviseItems)
	g.POST("/:id/cancel", update, orders.Cancel)
	g.POST("/:id/complete", ship, orders.Complete)
	g.POST("/:id/free-shipping", ship, orders.SetFreeShipping)
	g.DELETE("/:id", middleware.RequirePermission(identity.PermOrderDeleteOwn, identity.PermOrderDeleteAll), orders.Delete)

	g.POST("/import/preview", chain(catalogImport, uploadGuard(uploads), imports.Preview)...)
	g.POST("/import/confirm", chain(catalogImport, uploadGuard(uploads), imports.Confirm)...)

	g.POST("/:id/units/import", chain(unitImport, uploadGuard(uploads), units.Import)...)
	g.GET("/:id/units", read, units.List)
	g.DELETE("/:id/units", unitImport, units.Remove)
	g.GET("/:id/export", read, units.Export)
	return g
}

// SystemRoutes registers the informational system endpoints
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	g := NewDomainGroup("system", "/system")
	g.GET("/info", h.GetSystemInfo)
	g.GET("/ping", h.Ping)
	return g
}

// SetupAPI mounts the health probe and every versioned API route on engine.
// Versioned routes require a valid bearer token.
func SetupAPI(engine *gin.Engine, jwtConfig middleware.JWTMiddlewareConfig, h Handlers, uploads *middleware.RateLimiter) *Router {
	engine.GET("/health", h.System.Health)

	r := NewRouter(engine, WithAPIVersion("v1")).
		Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig), middleware.TracingAttributeInjector())
	r.Register(CatalogRoutes(h.Catalog, uploads)).
		Register(OrderRoutes(h.Order, h.OrderImport, h.Unit, uploads)).
		Register(SystemRoutes(h.System))
	r.Setup()
	return r
}
