package dto

// TransactionRequest is the body of POST /transactions
type TransactionRequest struct {
	UserID        string `json:"userId" binding:"required"`
	IdempotentKey string `json:"idempotentKey" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	Type          string `json:"type" binding:"required,oneof=CREDIT DEBIT"`
}

// TransactionResponse is the success body of POST /transactions
type TransactionResponse struct {
	UserID        string `json:"userId"`
	IdempotentKey string `json:"idempotentKey"`
	Amount        string `json:"amount"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Balance       string `json:"balance"`
}
