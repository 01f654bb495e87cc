package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/emoticket/utils"
)

// RequestID reuses the caller's X-Request-ID or assigns a fresh one.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(utils.RequestIDKey)
		if id == "" || len(id) > 64 {
			id = utils.NewRequestID()
		}
		ctx.Set(utils.RequestIDKey, id)
		ctx.Header(utils.RequestIDKey, id)
		ctx.Next()
	}
}
