package middleware

import (
	"context"

	"github.com/clinicore/clinicore/internal/types"
	"github.com/gin-gonic/gin"
)

func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	// Honour an inbound request ID, generate one otherwise
	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST)
	}

	ctx = context.WithValue(ctx, types.CtxRequestID, requestID)
	c.Request = c.Request.WithContext(ctx)

	// Echo it back so callers can correlate
	c.Header(types.HeaderRequestID, requestID)

	c.Next()
}
