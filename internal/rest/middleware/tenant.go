package middleware

import (
	"context"
	"net/http"

	"github.com/clinicore/clinicore/internal/types"
	"github.com/gin-gonic/gin"
)

// TenantMiddleware resolves the caller's tenant from the x-tenant-id header
// and stores it in the request context for downstream handlers. Full
// authentication (API keys, JWT) is expected to sit in front of this service,
// so the header is trusted as-is.
func TenantMiddleware(c *gin.Context) {
	tenantID := c.GetHeader(types.HeaderTenantID)
	if tenantID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing " + types.HeaderTenantID + " header"})
		c.Abort()
		return
	}

	ctx := c.Request.Context()
	ctx = context.WithValue(ctx, types.CtxTenantID, tenantID)
	ctx = context.WithValue(ctx, types.CtxUserID, types.DefaultUserID)
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}
