package investments

import (
	"errors"

	"github.com/ksred/invest-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// GetOrderByIdempotencyKeyTx resolves a key to its order inside tx, or
// (nil, nil) when the key has never completed a saga.
func (d *Database) GetOrderByIdempotencyKeyTx(tx *gorm.DB, key string) (*types.Order, error) {
	var record IdempotencyRecord
	if err := tx.Where("idempotency_key = ?", key).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var order types.Order
	if err := tx.Where("order_id = ?", record.ResourceID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("idempotency record points at missing order")
		}
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey is the non-transactional variant used for the
// duplicate-key race fallback after a rolled-back saga.
func (d *Database) GetOrderByIdempotencyKey(key string) (*types.Order, error) {
	return d.GetOrderByIdempotencyKeyTx(d.db, key)
}

// CreateOrderWithIdempotencyTx persists the order row and its idempotency
// record inside the caller's saga transaction. Either unique index firing
// surfaces as gorm.ErrDuplicatedKey.
func (d *Database) CreateOrderWithIdempotencyTx(tx *gorm.DB, order *types.Order) error {
	if err := tx.Create(order).Error; err != nil {
		return err
	}

	record := IdempotencyRecord{
		IdempotencyKey: order.IdempotencyKey,
		ResourceID:     order.OrderID,
		ResourceType:   "order",
	}
	return tx.Create(&record).Error
}

func (d *Database) UpdateOrderTx(tx *gorm.DB, order *types.Order) error {
	return tx.Save(order).Error
}

func (d *Database) GetOrderByOrderIDAndUserID(orderID, userID string) (*types.Order, error) {
	var order types.Order
	if err := d.db.Where("order_id = ? AND user_id = ?", orderID, userID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (d *Database) ListOrdersByAccountID(accountID string) ([]types.Order, error) {
	var orders []types.Order
	if err := d.db.Where("account_id = ?", accountID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
