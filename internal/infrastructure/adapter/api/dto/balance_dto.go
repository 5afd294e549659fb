package dto

// BalanceResponse is the body of GET /users/:userId/balance
type BalanceResponse struct {
	UserID  string `json:"userId"`
	Balance string `json:"balance"`
}
