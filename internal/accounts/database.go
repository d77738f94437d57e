package accounts

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

func (d *Database) CreateAccount(account *types.Account) error {
	return d.db.Create(account).Error
}

func (d *Database) GetAccountByIDAndUserID(accountID, userID string) (*types.Account, error) {
	var account types.Account
	if err := d.db.Where("account_id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (d *Database) ListAccountsByStatus(status string) ([]types.Account, error) {
	var accounts []types.Account
	if err := d.db.Where("status = ?", status).Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}
