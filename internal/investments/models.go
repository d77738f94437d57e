package investments

import (
	"gorm.io/gorm"
)

// IdempotencyRecord maps a caller-supplied key to the order it produced.
// Records never expire: an expired key on a money movement would allow a
// duplicate execution.
type IdempotencyRecord struct {
	gorm.Model
	IdempotencyKey string `gorm:"uniqueIndex" json:"idempotency_key"`
	ResourceID     string `json:"resource_id"`
	ResourceType   string `json:"resource_type"`
}
