package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryStatus enum constants. The status mirrors the quantity: an item
// is OutOfStock exactly when Qty is zero; the stock ledger maintains this,
// it is never set independently.
const (
	InventoryInStock    = "InStock"
	InventoryOutOfStock = "OutOfStock"
	InventoryOther      = "Other"
)

// InventoryItemType enum constants
const (
	ItemTypeFrames      = "Frames"
	ItemTypeLens        = "Lens"
	ItemTypeSunglasses  = "Sunglasses"
	ItemTypeAccessories = "Accessories"
	ItemTypeOther       = "Other"
)

// InventoryItem is a stock-keeping unit owned by one organization.
// Qty is mutated only through the stock ledger's reserve/restore
// operations, each under a row lock.
type InventoryItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganizationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"organization_id"`
	SKU            string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	StoreSKU       string          `gorm:"type:varchar(100)" json:"store_sku"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	Description    string          `gorm:"type:text" json:"description"`
	ItemType       string          `gorm:"type:varchar(20);default:'Other'" json:"item_type"`
	Qty            int             `gorm:"not null;default:0;check:qty >= 0" json:"qty"`
	SaleValue      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"sale_value"`
	CostValue      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"cost_value"`
	Brand          string          `gorm:"type:varchar(255)" json:"brand"`
	Status         string          `gorm:"type:varchar(15);not null;default:'InStock';index" json:"status"`
	IsActive       bool            `gorm:"default:true" json:"is_active"`
	CreatedByID    *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	UpdatedByID    *uuid.UUID      `gorm:"type:uuid" json:"updated_by"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
