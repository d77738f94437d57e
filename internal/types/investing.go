package types

import (
	"time"

	"gorm.io/gorm"
)

// Order statuses. Strictly forward-moving; an order never transitions back.
const (
	OrderStatusCreated          = "CREATED"
	OrderStatusPaymentCompleted = "PAYMENT_COMPLETED"
	OrderStatusOrderCompleted   = "ORDER_COMPLETED"
	OrderStatusFailed           = "FAILED"
)

// Account statuses
const (
	AccountStatusActive = "ACTIVE"
	AccountStatusClosed = "CLOSED"
)

// Account is an internal wrapper account mapped to a brokerage account.
type Account struct {
	gorm.Model         `json:"-"`
	AccountID          string    `gorm:"uniqueIndex" json:"account_id"`
	UserID             string    `gorm:"index" json:"user_id"`
	BrokerageAccountID string    `json:"brokerage_account_id"`
	Currency           string    `json:"currency"`
	WrapperType        string    `json:"wrapper_type"` // GIA or ISA
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Order is one money-denominated buy request. All amounts are integer
// minor currency units (pence).
type Order struct {
	gorm.Model        `json:"-"`
	OrderID           string    `gorm:"uniqueIndex" json:"order_id"`
	IdempotencyKey    string    `gorm:"uniqueIndex" json:"idempotency_key"`
	UserID            string    `json:"user_id"`
	AccountID         string    `gorm:"index" json:"account_id"`
	InstrumentID      string    `json:"instrument_id"`
	RequestedAmount   int64     `json:"requested_amount"`
	FeeAdjustedAmount int64     `json:"fee_adjusted_amount"`
	Currency          string    `json:"currency"`
	LinkID            string    `json:"link_id"`
	PaymentRef        string    `json:"payment_ref"`
	OrderRef          string    `json:"order_ref"`
	Status            string    `json:"status"`
	ExecutedQuantity  int64     `json:"executed_quantity"`
	ExecutionPrice    int64     `json:"execution_price"`
	ExecutedAmount    int64     `json:"executed_amount"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Position is the accumulated holding for one (account, instrument) pair.
// ExternalKey is "account|instrument" and is unique; every completed order
// adds to the running totals rather than replacing them.
type Position struct {
	gorm.Model    `json:"-"`
	ExternalKey   string    `gorm:"uniqueIndex" json:"external_key"`
	AccountID     string    `gorm:"index" json:"account_id"`
	InstrumentID  string    `json:"instrument_id"`
	Quantity      int64     `json:"quantity"`
	BookValue     int64     `json:"book_value"`
	CurrentValue  int64     `json:"current_value"`
	Growth        int64     `json:"growth"`
	GrowthPercent float64   `json:"growth_percent"`
	Currency      string    `json:"currency"`
	LastUpdated   time.Time `json:"last_updated"`
}

// PositionKey builds the composite external key for a position row.
func PositionKey(accountID, instrumentID string) string {
	return accountID + "|" + instrumentID
}
