package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/venuegate/courier/internal/repository"
	"gorm.io/gorm"
)

func createDeliveryRecordsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_delivery_records",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.DeliveryRecordModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DeliveryRecordModel{})
		},
	}
}
