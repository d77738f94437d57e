package investments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ksred/invest-api/internal/brokerage"
	"github.com/ksred/invest-api/internal/ledger"
	"github.com/ksred/invest-api/internal/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ErrInvalidAmount is returned for non-positive order amounts.
var ErrInvalidAmount = errors.New("order amount must be positive")

// ErrIdempotencyConflict is returned when a key resolves to an order owned
// by a different user. Replays never cross user boundaries.
var ErrIdempotencyConflict = errors.New("idempotency key already used by another user")

const executionVenue = "PRIMARY"

// AccountRegistry resolves an internal account id to a record owned by the
// caller. Satisfied by accounts.Service.
type AccountRegistry interface {
	ResolveOwnedAccount(userID, accountID string) (*types.Account, error)
}

// Economics are the configured order constants: platform fee in basis
// points and the fund's fixed share price in minor units.
type Economics struct {
	FeeBps       int64
	SharePrice   int64
	InstrumentID string
	Currency     string
}

// Service runs the order execution saga.
type Service struct {
	gormDB   *gorm.DB
	db       *Database
	registry AccountRegistry
	gateway  brokerage.Gateway
	ledger   *ledger.Service
	eco      Economics
}

func NewService(gormDB *gorm.DB, registry AccountRegistry, gateway brokerage.Gateway, ledgerSvc *ledger.Service, eco Economics) *Service {
	return &Service{
		gormDB:   gormDB,
		db:       NewDatabase(gormDB),
		registry: registry,
		gateway:  gateway,
		ledger:   ledgerSvc,
		eco:      eco,
	}
}

// PlaceOrder executes one buy saga: ownership check, idempotency check,
// transaction-group creation, payment completion, order completion with
// execution details, ledger accumulation. Everything local runs inside one
// database transaction; a failure at any step after the idempotency check
// rolls back every local write, so a client retry with the same key re-runs
// the saga from the top.
//
// Brokerage-side state committed by an earlier step is not compensated when
// a later step fails. That gap is logged; see the reconciliation processor.
func (s *Service) PlaceOrder(ctx context.Context, userID, accountID string, amount int64, idempotencyKey string) (*types.Order, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	logger := log.With().
		Str("user_id", userID).
		Str("account_id", accountID).
		Int64("amount", amount).
		Str("idempotency_key", idempotencyKey).
		Logger()

	var result *types.Order
	err := s.gormDB.Transaction(func(tx *gorm.DB) error {
		account, err := s.registry.ResolveOwnedAccount(userID, accountID)
		if err != nil {
			return err
		}

		existing, err := s.db.GetOrderByIdempotencyKeyTx(tx, idempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.UserID != userID {
				logger.Warn().Str("order_id", existing.OrderID).Msg("idempotency key belongs to another user")
				return ErrIdempotencyConflict
			}
			logger.Info().Str("order_id", existing.OrderID).Msg("idempotency key replayed, returning existing order")
			result = existing
			return nil
		}

		feeAdjusted := FeeAdjustedAmount(amount, s.eco.FeeBps)
		logger.Debug().Int64("fee_adjusted_amount", feeAdjusted).Msg("computed fee-adjusted amount")

		group, err := s.gateway.CreateTransactionGroup(ctx, account.BrokerageAccountID, []brokerage.TransactionInstruction{
			{Type: brokerage.TransactionTypePayment, Amount: amount, Method: "BankTransfer"},
			{Type: brokerage.TransactionTypeOrder, Amount: feeAdjusted, InstrumentID: s.eco.InstrumentID},
		})
		if err != nil {
			logger.Warn().Err(err).Msg("transaction group creation failed")
			return err
		}

		order := &types.Order{
			OrderID:           "ORD-" + uuid.New().String(),
			IdempotencyKey:    idempotencyKey,
			UserID:            userID,
			AccountID:         account.AccountID,
			InstrumentID:      s.eco.InstrumentID,
			RequestedAmount:   amount,
			FeeAdjustedAmount: feeAdjusted,
			Currency:          s.eco.Currency,
			LinkID:            group.LinkID,
			PaymentRef:        group.PaymentRef,
			OrderRef:          group.OrderRef,
			Status:            types.OrderStatusCreated,
		}
		if err := s.db.CreateOrderWithIdempotencyTx(tx, order); err != nil {
			return err
		}

		logger.Debug().
			Str("order_id", order.OrderID).
			Str("link_id", group.LinkID).
			Str("payment_ref", group.PaymentRef).
			Str("order_ref", group.OrderRef).
			Msg("order created against transaction group")

		if _, err := s.gateway.CompleteTransaction(ctx, group.PaymentRef, brokerage.CompleteTransactionRequest{
			Action:      brokerage.ActionComplete,
			Reason:      "payment received",
			CompletedAt: time.Now(),
		}); err != nil {
			logger.Warn().Err(err).Str("order_id", order.OrderID).Msg("payment completion failed, abandoning saga")
			return err
		}

		order.Status = types.OrderStatusPaymentCompleted
		if err := s.db.UpdateOrderTx(tx, order); err != nil {
			return err
		}

		quantity, executedAmount := ComputeExecution(feeAdjusted, s.eco.SharePrice)
		if _, err := s.gateway.CompleteTransaction(ctx, group.OrderRef, brokerage.CompleteTransactionRequest{
			Action:      brokerage.ActionComplete,
			Reason:      "order executed",
			CompletedAt: time.Now(),
			ExecutionDetails: &brokerage.ExecutionDetails{
				Price:            s.eco.SharePrice,
				ExecutedQuantity: quantity,
				ExecutionAmount:  executedAmount,
				Venue:            executionVenue,
				Timestamp:        time.Now(),
			},
		}); err != nil {
			// The payment already settled at the brokerage; that state is
			// not compensated here.
			logger.Error().Err(err).
				Str("order_id", order.OrderID).
				Str("payment_ref", group.PaymentRef).
				Msg("order completion failed after payment settled, abandoning saga without compensation")
			return err
		}

		order.Status = types.OrderStatusOrderCompleted
		order.ExecutedQuantity = quantity
		order.ExecutionPrice = s.eco.SharePrice
		order.ExecutedAmount = executedAmount
		if err := s.db.UpdateOrderTx(tx, order); err != nil {
			return err
		}

		if _, err := s.ledger.Accumulate(tx, account.AccountID, s.eco.InstrumentID, quantity, executedAmount, s.eco.Currency); err != nil {
			return err
		}

		logger.Info().
			Str("order_id", order.OrderID).
			Int64("executed_quantity", quantity).
			Int64("executed_amount", executedAmount).
			Msg("order saga completed")

		result = order
		return nil
	})

	if err != nil {
		// Two sagas racing on one key: the loser falls back to reading the
		// winner's order.
		if isWriteConflict(err) {
			existing, readErr := s.db.GetOrderByIdempotencyKey(idempotencyKey)
			if readErr == nil && existing != nil {
				if existing.UserID != userID {
					return nil, ErrIdempotencyConflict
				}
				logger.Info().Str("order_id", existing.OrderID).Msg("lost idempotency race, returning existing order")
				return existing, nil
			}
		}
		return nil, err
	}
	return result, nil
}

// isWriteConflict reports whether the saga lost to a concurrent writer:
// its insert hit the unique index, or sqlite refused a lock while another
// saga held the write lock. Transactions begin with an immediate lock so
// the latter is rare, but shared-cache table locks can still surface it.
func isWriteConflict(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// GetOrder retrieves an order scoped to the calling user.
func (s *Service) GetOrder(orderID, userID string) (*types.Order, error) {
	return s.db.GetOrderByOrderIDAndUserID(orderID, userID)
}

// ListPositions returns the accumulated positions for an owned account.
func (s *Service) ListPositions(userID, accountID string) ([]types.Position, error) {
	if _, err := s.registry.ResolveOwnedAccount(userID, accountID); err != nil {
		return nil, err
	}
	return s.ledger.ListPositions(accountID)
}

// GetAccountSummary fetches the brokerage-side view of an owned account.
func (s *Service) GetAccountSummary(ctx context.Context, userID, accountID string) (*brokerage.AccountSummary, error) {
	account, err := s.registry.ResolveOwnedAccount(userID, accountID)
	if err != nil {
		return nil, err
	}
	return s.gateway.GetAccountSummary(ctx, account.BrokerageAccountID)
}
