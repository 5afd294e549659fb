package handler

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"balanceledger/internal/infrastructure/adapter/api/dto"
)

// writeProblem renders a problem document with the RFC 9457 media type
func writeProblem(c *gin.Context, p dto.Problem) {
	body, err := json.Marshal(p)
	if err != nil {
		c.Status(p.Status)
		return
	}
	c.Data(p.Status, dto.ContentTypeProblem, body)
	c.Abort()
}
