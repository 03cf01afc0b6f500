package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// The idempotency guard and feedback runner both probe by
// (recipient, event_id, kind, status); webhook resolution already has the
// unique index on provider_message_id from the model definition.
func addDeliveryRecordLookupIndexes() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_add_delivery_record_indexes",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(
				`CREATE INDEX IF NOT EXISTS idx_delivery_records_confirmation_lookup
				 ON delivery_records (recipient, event_id, kind, status)`,
			).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP INDEX IF EXISTS idx_delivery_records_confirmation_lookup`).Error
		},
	}
}
