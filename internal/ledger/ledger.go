package ledger

import (
	"errors"
	"time"

	"github.com/ksred/invest-api/internal/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service is the position ledger: one row per (account, instrument),
// accumulated on every completed order.
type Service struct {
	db *Database
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{db: NewDatabase(gormDB)}
}

// Accumulate adds quantity/amount into the position for the given pair,
// creating the row on first write. It runs against tx so the write commits
// or rolls back with the caller's saga. The increment happens in a single
// upsert statement; two sagas racing on the same key both land.
func (s *Service) Accumulate(tx *gorm.DB, accountID, instrumentID string, quantity, amount int64, currency string) (*types.Position, error) {
	position, err := s.db.AccumulateTx(tx, accountID, instrumentID, quantity, amount, currency)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("account_id", accountID).
		Str("instrument_id", instrumentID).
		Int64("added_quantity", quantity).
		Int64("added_amount", amount).
		Int64("total_quantity", position.Quantity).
		Int64("book_value", position.BookValue).
		Msg("position accumulated")

	return position, nil
}

// GetPosition returns the position for one pair, or nil when none exists.
func (s *Service) GetPosition(accountID, instrumentID string) (*types.Position, error) {
	return s.db.GetPosition(accountID, instrumentID)
}

// ListPositions returns all positions held under an account.
func (s *Service) ListPositions(accountID string) ([]types.Position, error) {
	return s.db.ListPositions(accountID)
}

// Database wraps position persistence.
type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// AccumulateTx upserts the position row inside tx. The conflict branch
// increments in SQL rather than in the caller, then growth fields are
// recomputed from the stored totals in the same transaction.
func (d *Database) AccumulateTx(tx *gorm.DB, accountID, instrumentID string, quantity, amount int64, currency string) (*types.Position, error) {
	key := types.PositionKey(accountID, instrumentID)
	now := time.Now()

	row := types.Position{
		ExternalKey:  key,
		AccountID:    accountID,
		InstrumentID: instrumentID,
		Quantity:     quantity,
		BookValue:    amount,
		CurrentValue: amount,
		Currency:     currency,
		LastUpdated:  now,
	}

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":      gorm.Expr("quantity + excluded.quantity"),
			"book_value":    gorm.Expr("book_value + excluded.book_value"),
			"current_value": gorm.Expr("current_value + excluded.current_value"),
			"last_updated":  now,
			"updated_at":    now,
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}

	// Growth derives from the accumulated totals, with the zero book value
	// case pinned to 0 instead of a division error.
	err = tx.Model(&types.Position{}).Where("external_key = ?", key).
		Updates(map[string]interface{}{
			"growth":         gorm.Expr("current_value - book_value"),
			"growth_percent": gorm.Expr("CASE WHEN book_value = 0 THEN 0 ELSE (current_value - book_value) * 100.0 / book_value END"),
		}).Error
	if err != nil {
		return nil, err
	}

	var position types.Position
	if err := tx.Where("external_key = ?", key).First(&position).Error; err != nil {
		return nil, err
	}
	return &position, nil
}

func (d *Database) GetPosition(accountID, instrumentID string) (*types.Position, error) {
	var position types.Position
	key := types.PositionKey(accountID, instrumentID)
	if err := d.db.Where("external_key = ?", key).First(&position).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &position, nil
}

func (d *Database) ListPositions(accountID string) ([]types.Position, error) {
	var positions []types.Position
	if err := d.db.Where("account_id = ?", accountID).Order("instrument_id").Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}
