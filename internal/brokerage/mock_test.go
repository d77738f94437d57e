package brokerage

import (
	"context"
	"testing"
	"time"

	"github.com/ksred/invest-api/pkg/external"
)

func newMockAccount(t *testing.T, m *Mock) string {
	t.Helper()
	id, err := m.CreateAccount(context.Background(), CreateAccountRequest{
		FirmID: "firm-test", ClientID: "user-1", Currency: "GBP", WrapperType: "GIA",
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return id
}

func TestMockTransactionGroupLifecycle(t *testing.T) {
	mock := NewMock()
	ctx := context.Background()
	accountID := newMockAccount(t, mock)

	group, err := mock.CreateTransactionGroup(ctx, accountID, []TransactionInstruction{
		{Type: TransactionTypePayment, Amount: 10000, Method: "BankTransfer"},
		{Type: TransactionTypeOrder, Amount: 9800, InstrumentID: "FUND-1"},
	})
	if err != nil {
		t.Fatalf("CreateTransactionGroup: %v", err)
	}
	if group.LinkID == "" || group.PaymentRef == "" || group.OrderRef == "" {
		t.Fatalf("group refs incomplete: %+v", group)
	}

	if _, err := mock.CompleteTransaction(ctx, group.PaymentRef, CompleteTransactionRequest{
		Action: ActionComplete, Reason: "payment received", CompletedAt: time.Now(),
	}); err != nil {
		t.Fatalf("completing payment: %v", err)
	}

	result, err := mock.CompleteTransaction(ctx, group.OrderRef, CompleteTransactionRequest{
		Action:      ActionComplete,
		Reason:      "order executed",
		CompletedAt: time.Now(),
		ExecutionDetails: &ExecutionDetails{
			Price: 227, ExecutedQuantity: 43, ExecutionAmount: 9761,
			Venue: "PRIMARY", Timestamp: time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("completing order: %v", err)
	}
	if result.Status != TransactionStatusSettled {
		t.Errorf("status = %s, want %s", result.Status, TransactionStatusSettled)
	}

	summary, err := mock.GetAccountSummary(ctx, accountID)
	if err != nil {
		t.Fatalf("GetAccountSummary: %v", err)
	}
	if len(summary.Positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(summary.Positions))
	}
	if summary.Positions[0].Quantity != 43 || summary.Positions[0].BookValue != 9761 {
		t.Errorf("position = %+v, want quantity 43 and book value 9761", summary.Positions[0])
	}
	if len(summary.RecentTransactions) != 2 {
		t.Errorf("recent transactions = %d, want 2", len(summary.RecentTransactions))
	}

	position, err := mock.GetPosition(ctx, accountID, "FUND-1")
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}
	if position.Quantity != 43 {
		t.Errorf("position quantity = %d, want 43", position.Quantity)
	}
}

func TestMockRejectsOrderCompletionWithoutExecutionDetails(t *testing.T) {
	mock := NewMock()
	ctx := context.Background()
	accountID := newMockAccount(t, mock)

	group, err := mock.CreateTransactionGroup(ctx, accountID, []TransactionInstruction{
		{Type: TransactionTypePayment, Amount: 10000, Method: "BankTransfer"},
		{Type: TransactionTypeOrder, Amount: 9800, InstrumentID: "FUND-1"},
	})
	if err != nil {
		t.Fatalf("CreateTransactionGroup: %v", err)
	}

	_, err = mock.CompleteTransaction(ctx, group.OrderRef, CompleteTransactionRequest{
		Action: ActionComplete, Reason: "order executed", CompletedAt: time.Now(),
	})
	ce := external.AsError(err)
	if ce == nil || ce.Kind != external.KindBadRequest {
		t.Fatalf("error = %v, want classified bad request", err)
	}
}

func TestMockRejectsDoubleCompletion(t *testing.T) {
	mock := NewMock()
	ctx := context.Background()
	accountID := newMockAccount(t, mock)

	group, err := mock.CreateTransactionGroup(ctx, accountID, []TransactionInstruction{
		{Type: TransactionTypePayment, Amount: 10000, Method: "BankTransfer"},
		{Type: TransactionTypeOrder, Amount: 9800, InstrumentID: "FUND-1"},
	})
	if err != nil {
		t.Fatalf("CreateTransactionGroup: %v", err)
	}

	req := CompleteTransactionRequest{Action: ActionComplete, Reason: "payment received", CompletedAt: time.Now()}
	if _, err := mock.CompleteTransaction(ctx, group.PaymentRef, req); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	if _, err := mock.CompleteTransaction(ctx, group.PaymentRef, req); err == nil {
		t.Fatal("second completion of the same transaction should fail")
	}
}

func TestMockUnknownRefs(t *testing.T) {
	mock := NewMock()
	ctx := context.Background()

	_, err := mock.GetAccountSummary(ctx, "BRK-missing")
	if ce := external.AsError(err); ce == nil || ce.Kind != external.KindNotFound {
		t.Errorf("GetAccountSummary error = %v, want classified not found", err)
	}

	_, err = mock.CompleteTransaction(ctx, "txn-missing", CompleteTransactionRequest{Action: ActionComplete})
	if ce := external.AsError(err); ce == nil || ce.Kind != external.KindNotFound {
		t.Errorf("CompleteTransaction error = %v, want classified not found", err)
	}
}
