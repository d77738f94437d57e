package database

import (
	"strings"

	"github.com/ksred/invest-api/internal/investments"
	"github.com/ksred/invest-api/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase initializes and returns a new GORM DB connection.
// TranslateError is required: the idempotency race fallback keys off
// gorm.ErrDuplicatedKey. Transactions begin with an immediate write lock
// so two sagas racing on one idempotency key serialize at BEGIN instead
// of both holding read transactions and deadlocking on lock upgrade at
// the insert.
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_txlock=immediate&_busy_timeout=5000"
}

// Migrate applies the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Account{},
		&types.Order{},
		&types.Position{},
		&investments.IdempotencyRecord{},
	)
}
