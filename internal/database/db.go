package database

import (
	"fmt"

	"opticinvoicer/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM and migrates
// the schema.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&model.Organization{},
		&model.Subscription{},
		&model.NumberSequence{},
		&model.User{},
		&model.Staff{},
		&model.RefreshToken{},
		&model.Customer{},
		&model.Prescription{},
		&model.InventoryItem{},
		&model.Invoice{},
		&model.InvoiceItem{},
		&model.InvoicePayment{},
		&model.WholesaleClient{},
		&model.WholesaleItem{},
		&model.WholesaleOrder{},
		&model.WholesaleOrderItem{},
		&model.AuditLog{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return db, nil
}
