package brokerage

import (
	"context"
	"time"
)

// Transaction types within a group.
const (
	TransactionTypePayment = "Payment"
	TransactionTypeOrder   = "Order"
)

// Transaction statuses reported by the brokerage.
const (
	TransactionStatusPending = "Pending"
	TransactionStatusSettled = "Settled"
)

// ActionComplete is the only transaction action the saga issues.
const ActionComplete = "Complete"

// Gateway is the contract the order saga drives. Implementations must route
// every call through the external-call classification layer so callers can
// switch on the failure kind.
type Gateway interface {
	CreateAccount(ctx context.Context, req CreateAccountRequest) (string, error)
	CreateTransactionGroup(ctx context.Context, accountID string, instructions []TransactionInstruction) (*TransactionGroup, error)
	CompleteTransaction(ctx context.Context, transactionRef string, req CompleteTransactionRequest) (*TransactionResult, error)
	GetAccountSummary(ctx context.Context, accountID string) (*AccountSummary, error)
	GetPosition(ctx context.Context, accountID, instrumentID string) (*Position, error)
}

// CreateAccountRequest opens a wrapper account at the brokerage.
type CreateAccountRequest struct {
	FirmID      string `json:"firm_id"`
	ClientID    string `json:"client_id"`
	Currency    string `json:"currency"`
	WrapperType string `json:"wrapper_type"`
}

// TransactionInstruction is one leg of a transaction group. Amounts are
// integer minor units. Method is set for Payment legs, InstrumentID for
// Order legs.
type TransactionInstruction struct {
	Type         string `json:"type"`
	Amount       int64  `json:"amount"`
	Method       string `json:"method,omitempty"`
	InstrumentID string `json:"instrument_id,omitempty"`
}

// TransactionGroup is the brokerage's linked Payment/Order pair.
type TransactionGroup struct {
	LinkID     string `json:"link_id"`
	PaymentRef string `json:"payment_ref"`
	OrderRef   string `json:"order_ref"`
}

// ExecutionDetails accompany the completion of an Order transaction.
type ExecutionDetails struct {
	Price            int64     `json:"price"`
	ExecutedQuantity int64     `json:"executed_quantity"`
	ExecutionAmount  int64     `json:"execution_amount"`
	Venue            string    `json:"venue"`
	Timestamp        time.Time `json:"timestamp"`
}

// CompleteTransactionRequest marks a transaction complete. ExecutionDetails
// is required only for Order transactions.
type CompleteTransactionRequest struct {
	Action           string            `json:"action"`
	Reason           string            `json:"reason"`
	CompletedAt      time.Time         `json:"completed_at"`
	ExecutionDetails *ExecutionDetails `json:"execution_details,omitempty"`
}

type TransactionResult struct {
	TransactionRef string `json:"transaction_ref"`
	Status         string `json:"status"`
}

// Position is a holding as the brokerage reports it.
type Position struct {
	InstrumentID string `json:"instrument_id"`
	Quantity     int64  `json:"quantity"`
	BookValue    int64  `json:"book_value"`
	Currency     string `json:"currency"`
}

// Transaction is a brokerage-side transaction in an account summary.
type Transaction struct {
	TransactionRef string    `json:"transaction_ref"`
	Type           string    `json:"type"`
	Amount         int64     `json:"amount"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

type AccountSummary struct {
	AccountID          string        `json:"account_id"`
	Positions          []Position    `json:"positions"`
	RecentTransactions []Transaction `json:"recent_transactions"`
}
