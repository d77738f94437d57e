package brokerage

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ksred/invest-api/pkg/external"
)

// Mock is an in-memory Gateway used in development mode and in tests. All
// state lives behind the mutex; nothing is package level.
type Mock struct {
	mu sync.Mutex

	accounts     map[string]*mockAccount
	transactions map[string]*mockTransaction
	groups       map[string]*TransactionGroup

	// Failure injection for tests. While a field is set, every call to
	// the corresponding operation fails with that error; clear the field
	// to recover.
	FailCreateGroup       error
	FailPaymentCompletion error
	FailOrderCompletion   error

	// Call counters, guarded by mu.
	CreateAccountCalls int
	CreateGroupCalls   int
	CompleteCalls      int
	SummaryCalls       int
}

type mockAccount struct {
	id        string
	currency  string
	positions map[string]*Position // by instrument
	history   []Transaction
}

type mockTransaction struct {
	ref          string
	accountID    string
	txType       string
	amount       int64
	instrumentID string
	status       string
}

// NewMock creates an empty in-memory brokerage.
func NewMock() *Mock {
	return &Mock{
		accounts:     make(map[string]*mockAccount),
		transactions: make(map[string]*mockTransaction),
		groups:       make(map[string]*TransactionGroup),
	}
}

func (m *Mock) CreateAccount(_ context.Context, req CreateAccountRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateAccountCalls++

	id := "BRK-" + uuid.New().String()
	m.accounts[id] = &mockAccount{
		id:        id,
		currency:  req.Currency,
		positions: make(map[string]*Position),
	}
	return id, nil
}

func (m *Mock) CreateTransactionGroup(_ context.Context, accountID string, instructions []TransactionInstruction) (*TransactionGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateGroupCalls++

	if m.FailCreateGroup != nil {
		return nil, m.FailCreateGroup
	}

	account, ok := m.accounts[accountID]
	if !ok {
		return nil, external.ClassifyStatus(providerName, http.StatusNotFound, "ACCOUNT_NOT_FOUND", nil)
	}
	if len(instructions) != 2 {
		return nil, external.ClassifyStatus(providerName, http.StatusBadRequest, "INVALID_GROUP", nil)
	}

	group := &TransactionGroup{LinkID: "grp-" + uuid.New().String()}
	for _, ins := range instructions {
		tx := &mockTransaction{
			ref:          "txn-" + uuid.New().String(),
			accountID:    account.id,
			txType:       ins.Type,
			amount:       ins.Amount,
			instrumentID: ins.InstrumentID,
			status:       TransactionStatusPending,
		}
		m.transactions[tx.ref] = tx
		switch ins.Type {
		case TransactionTypePayment:
			group.PaymentRef = tx.ref
		case TransactionTypeOrder:
			group.OrderRef = tx.ref
		default:
			return nil, external.ClassifyStatus(providerName, http.StatusBadRequest, "INVALID_TRANSACTION_TYPE", nil)
		}
	}
	if group.PaymentRef == "" || group.OrderRef == "" {
		return nil, external.ClassifyStatus(providerName, http.StatusBadRequest, "INVALID_GROUP", nil)
	}

	m.groups[group.LinkID] = group
	return group, nil
}

func (m *Mock) CompleteTransaction(_ context.Context, transactionRef string, req CompleteTransactionRequest) (*TransactionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteCalls++

	tx, ok := m.transactions[transactionRef]
	if !ok {
		return nil, external.ClassifyStatus(providerName, http.StatusNotFound, "TRANSACTION_NOT_FOUND", nil)
	}

	if tx.txType == TransactionTypeOrder {
		if m.FailOrderCompletion != nil {
			return nil, m.FailOrderCompletion
		}
		if req.ExecutionDetails == nil {
			return nil, external.ClassifyStatus(providerName, http.StatusBadRequest, "EXECUTION_DETAILS_REQUIRED", nil)
		}
	} else if m.FailPaymentCompletion != nil {
		return nil, m.FailPaymentCompletion
	}

	if req.Action != ActionComplete {
		return nil, external.ClassifyStatus(providerName, http.StatusBadRequest, "UNSUPPORTED_ACTION", nil)
	}
	if tx.status == TransactionStatusSettled {
		return nil, external.ClassifyStatus(providerName, http.StatusBadRequest, "ALREADY_SETTLED", nil)
	}

	tx.status = TransactionStatusSettled

	account := m.accounts[tx.accountID]
	account.history = append(account.history, Transaction{
		TransactionRef: tx.ref,
		Type:           tx.txType,
		Amount:         tx.amount,
		Status:         tx.status,
		CreatedAt:      time.Now(),
	})

	if tx.txType == TransactionTypeOrder {
		pos, ok := account.positions[tx.instrumentID]
		if !ok {
			pos = &Position{InstrumentID: tx.instrumentID, Currency: account.currency}
			account.positions[tx.instrumentID] = pos
		}
		pos.Quantity += req.ExecutionDetails.ExecutedQuantity
		pos.BookValue += req.ExecutionDetails.ExecutionAmount
	}

	return &TransactionResult{TransactionRef: tx.ref, Status: tx.status}, nil
}

func (m *Mock) GetAccountSummary(_ context.Context, accountID string) (*AccountSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummaryCalls++

	account, ok := m.accounts[accountID]
	if !ok {
		return nil, external.ClassifyStatus(providerName, http.StatusNotFound, "ACCOUNT_NOT_FOUND", nil)
	}

	summary := &AccountSummary{AccountID: account.id}
	for _, pos := range account.positions {
		summary.Positions = append(summary.Positions, *pos)
	}
	summary.RecentTransactions = append(summary.RecentTransactions, account.history...)
	return summary, nil
}

func (m *Mock) GetPosition(_ context.Context, accountID, instrumentID string) (*Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[accountID]
	if !ok {
		return nil, external.ClassifyStatus(providerName, http.StatusNotFound, "ACCOUNT_NOT_FOUND", nil)
	}
	pos, ok := account.positions[instrumentID]
	if !ok {
		return nil, external.ClassifyStatus(providerName, http.StatusNotFound, "POSITION_NOT_FOUND", nil)
	}
	out := *pos
	return &out, nil
}
