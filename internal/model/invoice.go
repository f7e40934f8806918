package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus enum constants. Paid and Scrapped reject new payments;
// Delivered and Scrapped additionally reject payment voids and item edits.
const (
	InvoiceCreated   = "Created"
	InvoiceAdvanced  = "Advanced"
	InvoicePaid      = "Paid"
	InvoiceDelivered = "Delivered"
	InvoiceScrapped  = "Scrapped"
)

// PaymentType enum constants. Exactly one active Advance payment may exist
// per invoice; it is created from the invoice's advance field at checkout.
const (
	PaymentTypeAdvance = "Advance"
	PaymentTypeGeneral = "General"
	PaymentTypeReturn  = "Return"
	PaymentTypeOther   = "Other"
)

// PaymentMode enum constants
const (
	PaymentModeCash   = "Cash"
	PaymentModeCard   = "Card"
	PaymentModeOnline = "Online"
	PaymentModeOther  = "Other"
)

// Invoice is the central ledger document: customer, optional prescription,
// line-item snapshots, computed totals and a payment-driven status.
// Total and Balance are only ever written by the invoice/payment services
// inside their transactions.
type Invoice struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganizationID uuid.UUID     `gorm:"type:uuid;not null;index" json:"organization_id"`
	InvoiceNumber  string        `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_number"`
	Date           time.Time     `gorm:"type:date" json:"date"`
	DeliveryDate   *time.Time    `gorm:"type:date" json:"delivery_date"`
	CustomerID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer       *Customer     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	PrescriptionID *uuid.UUID    `gorm:"type:uuid;index" json:"prescription_id"`
	Prescription   *Prescription `gorm:"foreignKey:PrescriptionID" json:"prescription,omitempty"`

	Remarks            string          `gorm:"type:text" json:"remarks"`
	Discount           decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"discount"`
	Advance            decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"advance"`
	AdvancePaymentMode string          `gorm:"type:varchar(10);default:'Cash'" json:"advance_payment_mode"`
	TaxPercentage      decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_percentage"`
	IsTaxable          bool            `gorm:"default:true" json:"is_taxable"`
	Total              decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	Balance            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"balance"`
	Status             string          `gorm:"type:varchar(10);not null;default:'Created';index" json:"status"`
	IsActive           bool            `gorm:"default:true" json:"is_active"`

	Items    []InvoiceItem    `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
	Payments []InvoicePayment `gorm:"foreignKey:InvoiceID" json:"payments,omitempty"`

	CreatedByID *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	UpdatedByID *uuid.UUID `gorm:"type:uuid" json:"updated_by"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// InvoiceItem pins one inventory item at a quantity and the sale/cost
// prices captured when the snapshot was taken. Later price changes on the
// inventory item never propagate here. On invoice updates the whole item
// set is replaced, never diffed.
type InvoiceItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	InventoryItemID uuid.UUID       `gorm:"type:uuid;not null;index" json:"inventory_item_id"`
	InventoryItem   *InventoryItem  `gorm:"foreignKey:InventoryItemID" json:"inventory_item,omitempty"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	SaleValue       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"sale_value"`
	CostValue       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"cost_value"`
	CreatedAt       time.Time       `json:"created_at"`
}

// InvoicePayment is an entry in the append-mostly payment ledger. The only
// permitted write to an existing active record is flipping IsActive to
// false (void); the advance amount correction on invoice update is the one
// exception.
type InvoicePayment struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganizationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"organization_id"`
	InvoiceID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	InvoiceNumber  string          `gorm:"type:varchar(30)" json:"invoice_number"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	PaymentType    string          `gorm:"type:varchar(10);not null;default:'General'" json:"payment_type"`
	PaymentMode    string          `gorm:"type:varchar(10);not null;default:'Cash'" json:"payment_mode"`
	Remarks        string          `gorm:"type:text" json:"remarks"`
	IsActive       bool            `gorm:"default:true" json:"is_active"`
	CreatedByID    *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	UpdatedByID    *uuid.UUID      `gorm:"type:uuid" json:"updated_by"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
