package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	coreport "balanceledger/internal/domain/port/core"
	"balanceledger/internal/infrastructure/adapter/api/dto"
)

// Recovery turns panics into a 500 problem document
func Recovery(logger coreport.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic recovered in API request", map[string]any{
					"error":      r,
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
					"request_id": c.GetString(RequestIDKey),
				})

				problem := dto.InternalServerErrorProblem(c.Request.URL.Path)
				body, err := json.Marshal(problem)
				if err != nil {
					c.AbortWithStatus(http.StatusInternalServerError)
					return
				}
				c.Data(http.StatusInternalServerError, dto.ContentTypeProblem, body)
				c.Abort()
			}
		}()

		c.Next()
	}
}
