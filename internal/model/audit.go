package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateInvoice        = "CREATE_INVOICE"
	ActionUpdateInvoice        = "UPDATE_INVOICE"
	ActionDeleteInvoice        = "DELETE_INVOICE"
	ActionInvoiceStatusChange  = "INVOICE_STATUS_CHANGE"
	ActionAddPayment           = "ADD_PAYMENT"
	ActionVoidPayment          = "VOID_PAYMENT"
	ActionCreateInventoryItem  = "CREATE_INVENTORY_ITEM"
	ActionUpdateInventoryItem  = "UPDATE_INVENTORY_ITEM"
	ActionDeleteInventoryItem  = "DELETE_INVENTORY_ITEM"
	ActionImportInventoryCSV   = "IMPORT_INVENTORY_CSV"
	ActionCreateWholesaleOrder = "CREATE_WHOLESALE_ORDER"
	ActionCreateCustomer       = "CREATE_CUSTOMER"
	ActionCreateStaff          = "CREATE_STAFF"
)

// AuditLog tracks Who, What, and When for critical ledger changes
type AuditLog struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"organization_id"`
	UserID         *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable for system-initiated writes
	User           *User      `gorm:"foreignKey:UserID" json:"user"`
	Action         string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID       string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName     string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details        string     `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
}
