package router

import (
	"github.com/retailpos/backoffice/internal/infrastructure/auth"
	"github.com/retailpos/backoffice/internal/interfaces/http/handler"
	"github.com/retailpos/backoffice/internal/interfaces/http/middleware"
)

// ReturnRoutes mounts the return endpoints under /returns. Reads need only
// a valid token; creating needs returns:create and every state change
// needs returns:manage.
func ReturnRoutes(h *handler.ReturnHandler, perms middleware.PermissionConfig) *DomainGroup {
	canCreate := middleware.RequirePermissionWithConfig(auth.PermissionReturnsCreate, perms)
	canManage := middleware.RequirePermissionWithConfig(auth.PermissionReturnsManage, perms)

	return NewDomainGroup("returns", "/returns").
		GET("", h.List).
		GET("/stats/summary", h.GetStatusSummary).
		GET("/:id", h.GetByID).
		GET("/:id/receipt", h.GetReceipt).
		POST("", canCreate, h.Create).
		PATCH("/:id/status", canManage, h.UpdateStatus).
		DELETE("/:id", canManage, h.Delete)
}

// SaleRoutes mounts the sale lookups used by the return screen
func SaleRoutes(h *handler.ReturnHandler) *DomainGroup {
	return NewDomainGroup("sales", "/sales").
		GET("/:id/returnable-lines", h.GetReturnableLines)
}
