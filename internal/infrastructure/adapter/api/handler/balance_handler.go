package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	errs "balanceledger/internal/domain/error"
	coreport "balanceledger/internal/domain/port/core"
	"balanceledger/internal/domain/usecase/balance"
	"balanceledger/internal/infrastructure/adapter/api/dto"
)

// BalanceHandler handles balance queries
type BalanceHandler struct {
	useCase *balance.UseCase
	logger  coreport.Logger
}

// NewBalanceHandler creates a new balance handler
func NewBalanceHandler(useCase *balance.UseCase, logger coreport.Logger) *BalanceHandler {
	return &BalanceHandler{useCase: useCase, logger: logger}
}

// GetBalance handles GET /users/:userId/balance
func (h *BalanceHandler) GetBalance(c *gin.Context) {
	userID := c.Param("userId")
	instance := "/users/" + userID + "/balance"

	result, err := h.useCase.GetBalance(c.Request.Context(), userID)
	switch {
	case errors.Is(err, errs.ErrAggregateNotFound):
		writeProblem(c, dto.NotFoundProblem("No balance found for this user.", instance))
		return
	case errors.Is(err, errs.ErrInvalidUserID):
		writeProblem(c, dto.BadRequestProblem(err.Error(), instance))
		return
	case err != nil:
		h.logger.Error("Balance query failed", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		writeProblem(c, dto.InternalServerErrorProblem(instance))
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{
		UserID:  userID,
		Balance: result,
	})
}
