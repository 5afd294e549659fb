package routes

import (
	"github.com/gin-gonic/gin"

	coreport "balanceledger/internal/domain/port/core"
	"balanceledger/internal/infrastructure/adapter/api/handler"
	"balanceledger/internal/infrastructure/adapter/api/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(
	router *gin.Engine,
	transactionHandler *handler.TransactionHandler,
	balanceHandler *handler.BalanceHandler,
) {
	router.POST("/transactions", transactionHandler.SubmitTransaction)
	router.GET("/users/:userId/balance", balanceHandler.GetBalance)
}

// SetupMiddlewares configures global middlewares in order
func SetupMiddlewares(router *gin.Engine, logger coreport.Logger) {
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger))
}
