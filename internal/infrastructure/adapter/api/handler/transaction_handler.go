package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	errs "balanceledger/internal/domain/error"
	coreport "balanceledger/internal/domain/port/core"
	"balanceledger/internal/domain/usecase/transaction"
	"balanceledger/internal/infrastructure/adapter/api/dto"
)

const transactionsInstance = "/transactions"

// NegativeBalanceDetail is the user-facing detail for refused debits
const NegativeBalanceDetail = "Your balance can't be negative."

// TransactionHandler handles transaction submissions
type TransactionHandler struct {
	service *transaction.Service
	logger  coreport.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(service *transaction.Service, logger coreport.Logger) *TransactionHandler {
	return &TransactionHandler{service: service, logger: logger}
}

// SubmitTransaction handles POST /transactions
func (h *TransactionHandler) SubmitTransaction(c *gin.Context) {
	var req dto.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, dto.BadRequestProblem("Invalid request body: "+err.Error(), transactionsInstance))
		return
	}

	result, err := h.service.Submit(c.Request.Context(), transaction.SubmitRequest{
		UserID:        req.UserID,
		IdempotentKey: req.IdempotentKey,
		Amount:        req.Amount,
		Type:          req.Type,
	})
	if err != nil {
		h.writeSubmitError(c, req, err)
		return
	}

	c.JSON(http.StatusOK, dto.TransactionResponse{
		UserID:        result.UserID,
		IdempotentKey: result.IdempotentKey,
		Amount:        req.Amount,
		Type:          req.Type,
		Status:        string(result.Status),
		Balance:       result.Balance,
	})
}

func (h *TransactionHandler) writeSubmitError(c *gin.Context, req dto.TransactionRequest, err error) {
	switch {
	case errs.IsNegativeBalanceError(err):
		writeProblem(c, dto.UnprocessableEntityProblem(NegativeBalanceDetail, transactionsInstance))

	case errs.IsAggregateLockedError(err):
		writeProblem(c, dto.ConflictProblem(
			"Another transaction for this user is in flight. Please retry.",
			transactionsInstance,
		))

	case errors.Is(err, errs.ErrInvalidUserID),
		errors.Is(err, errs.ErrInvalidIdempotentKey),
		errors.Is(err, errs.ErrInvalidTransactionType),
		errors.Is(err, errs.ErrInvalidAmount):
		writeProblem(c, dto.BadRequestProblem(err.Error(), transactionsInstance))

	default:
		h.logger.Error("Transaction submission failed", map[string]any{
			"user_id":        req.UserID,
			"idempotent_key": req.IdempotentKey,
			"error":          err.Error(),
			"error_code":     errs.ErrorCode(err),
		})
		writeProblem(c, dto.InternalServerErrorProblem(transactionsInstance))
	}
}
