package middleware

import (
	"github.com/craftops/game-backup-service/pkg/app"
	"github.com/craftops/game-backup-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// NoFound 404 处理
func NoFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := app.NewResponse(c)
		response.ToResponse(code.ErrorNotFound.Clone())
		c.Abort()
	}
}
