package accounts

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ksred/invest-api/internal/brokerage"
	"github.com/ksred/invest-api/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *brokerage.Mock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err := db.AutoMigrate(&types.Account{}); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	mock := brokerage.NewMock()
	return NewService(db, mock, "firm-test"), mock
}

func TestCreateAccount(t *testing.T) {
	svc, mock := newTestService(t)

	account, err := svc.CreateAccount(context.Background(), "user-1", "GBP", "GIA")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	if account.AccountID == "" {
		t.Error("account ID should be set")
	}
	if account.BrokerageAccountID == "" {
		t.Error("brokerage account ID should be set")
	}
	if account.Status != types.AccountStatusActive {
		t.Errorf("status = %s, want %s", account.Status, types.AccountStatusActive)
	}
	if mock.CreateAccountCalls != 1 {
		t.Errorf("brokerage create calls = %d, want 1", mock.CreateAccountCalls)
	}
}

func TestCreateAccountInvalidWrapper(t *testing.T) {
	svc, mock := newTestService(t)

	if _, err := svc.CreateAccount(context.Background(), "user-1", "GBP", "SIPP"); err == nil {
		t.Fatal("expected error for unsupported wrapper type")
	}
	if mock.CreateAccountCalls != 0 {
		t.Errorf("invalid wrapper reached the brokerage: %d calls", mock.CreateAccountCalls)
	}
}

func TestResolveOwnedAccount(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.CreateAccount(context.Background(), "user-1", "GBP", "ISA")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	resolved, err := svc.ResolveOwnedAccount("user-1", created.AccountID)
	if err != nil {
		t.Fatalf("ResolveOwnedAccount: %v", err)
	}
	if resolved.AccountID != created.AccountID {
		t.Errorf("resolved %s, want %s", resolved.AccountID, created.AccountID)
	}

	tests := []struct {
		name      string
		userID    string
		accountID string
	}{
		{"missing account", "user-1", "ACC-missing"},
		{"different owner", "user-2", created.AccountID},
	}
	for _, tt := range tests {
		if _, err := svc.ResolveOwnedAccount(tt.userID, tt.accountID); !errors.Is(err, ErrAccountNotFound) {
			t.Errorf("%s: error = %v, want ErrAccountNotFound", tt.name, err)
		}
	}
}

func TestListActiveAccounts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, "user-1", "GBP", "GIA"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if _, err := svc.CreateAccount(ctx, "user-2", "GBP", "ISA"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	active, err := svc.ListActiveAccounts()
	if err != nil {
		t.Fatalf("ListActiveAccounts: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("active accounts = %d, want 2", len(active))
	}
}
