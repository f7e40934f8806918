package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wholesale order payment status enum constants
const (
	WholesalePaymentPending  = "Pending"
	WholesalePaymentPartial  = "Partial"
	WholesalePaymentComplete = "Complete"
)

// Wholesale order status enum constants
const (
	WholesaleOrderOpen      = "Open"
	WholesaleOrderShipped   = "Shipped"
	WholesaleOrderDelivered = "Delivered"
	WholesaleOrderCancelled = "Cancelled"
)

// WholesaleClient is the buyer side of the wholesale sub-ledger. The
// denormalized totals (orders/credit/payment) are maintained by the
// reporting side, not by order creation.
type WholesaleClient struct {
	ID                 uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganizationID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"organization_id"`
	IDNo               string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"id_no"`
	Name               string          `gorm:"type:varchar(100);not null" json:"name"`
	Address            string          `gorm:"type:text" json:"address"`
	Country            string          `gorm:"type:varchar(100)" json:"country"`
	TaxNumber          string          `gorm:"type:varchar(100)" json:"tax_number"`
	TaxPercentage      decimal.Decimal `gorm:"type:decimal(5,2);not null;default:5.00" json:"tax_percentage"`
	Phone              string          `gorm:"type:varchar(100)" json:"phone"`
	Email              string          `gorm:"type:varchar(255)" json:"email"`
	ContactPerson      string          `gorm:"type:varchar(100)" json:"contact_person"`
	ContactPersonPhone string          `gorm:"type:varchar(100)" json:"contact_person_phone"`
	TotalOrders        int             `gorm:"default:0" json:"total_orders"`
	TotalCredit        decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total_credit"`
	TotalPayment       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total_payment"`
	LastPaymentDate    *time.Time      `gorm:"type:date" json:"last_payment_date"`
	LastOrderDate      *time.Time      `gorm:"type:date" json:"last_order_date"`
	IsActive           bool            `gorm:"default:true" json:"is_active"`
	CreatedByID        *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	UpdatedByID        *uuid.UUID      `gorm:"type:uuid" json:"updated_by"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// WholesaleItem is a wholesale catalog entry with tiered pricing,
// a discount ceiling and a reorder quantity cap.
type WholesaleItem struct {
	ID                    uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganizationID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"organization_id"`
	ItemCode              string          `gorm:"type:varchar(100);not null;index" json:"item_code"`
	ItemType              string          `gorm:"type:varchar(100)" json:"item_type"`
	Group                 string          `gorm:"type:varchar(100)" json:"group"`
	Category              string          `gorm:"type:varchar(100)" json:"category"`
	ItemName              string          `gorm:"type:varchar(100);not null" json:"item_name"`
	Description           string          `gorm:"type:text" json:"description"`
	Brand                 string          `gorm:"type:varchar(100)" json:"brand"`
	Origin                string          `gorm:"type:varchar(100)" json:"origin"`
	PartModelNo           string          `gorm:"type:varchar(100)" json:"part_model_no"`
	Size                  string          `gorm:"type:varchar(100)" json:"size"`
	Color                 string          `gorm:"type:varchar(100)" json:"color"`
	BasicUnit             string          `gorm:"type:varchar(100)" json:"basic_unit_of_measure"`
	StdCost               decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"std_cost"`
	SellingPrice1         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"selling_price_1"`
	SellingPrice2         decimal.Decimal `gorm:"type:decimal(10,2)" json:"selling_price_2"`
	SellingPrice3         decimal.Decimal `gorm:"type:decimal(10,2)" json:"selling_price_3"`
	ReorderQty            int             `gorm:"not null;default:0" json:"re_order_qty"`
	MinPrice              decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"min_price"`
	MaxDiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"max_discount_percentage"`
	CreatedByID           *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	UpdatedByID           *uuid.UUID      `gorm:"type:uuid" json:"updated_by"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// WholesaleOrder is the wholesale analog of the retail invoice: same
// numbering scheme with a WSO tag, per-line discount/tax computation,
// no payment sub-ledger.
type WholesaleOrder struct {
	ID             uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganizationID uuid.UUID            `gorm:"type:uuid;not null;index" json:"organization_id"`
	OrderNo        string               `gorm:"type:varchar(30);uniqueIndex;not null" json:"order_no"`
	OrderDate      time.Time            `gorm:"type:date;not null" json:"order_date"`
	IsTaxable      bool                 `gorm:"default:true" json:"is_taxable"`
	ClientID       uuid.UUID            `gorm:"type:uuid;not null;index" json:"client_id"`
	Client         *WholesaleClient     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	TotalAmount    decimal.Decimal      `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	TotalDiscount  decimal.Decimal      `gorm:"type:decimal(10,2);not null" json:"total_discount"`
	TotalTax       decimal.Decimal      `gorm:"type:decimal(10,2);not null" json:"total_tax"`
	TotalPayment   decimal.Decimal      `gorm:"type:decimal(10,2);not null" json:"total_payment"`
	PaymentDueDate *time.Time           `gorm:"type:date" json:"payment_due_date"`
	PaymentStatus  string               `gorm:"type:varchar(15);not null;default:'Pending'" json:"payment_status"`
	OrderStatus    string               `gorm:"type:varchar(15);not null;default:'Open'" json:"order_status"`
	Remarks        string               `gorm:"type:text" json:"remarks"`
	Items          []WholesaleOrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedByID    *uuid.UUID           `gorm:"type:uuid" json:"created_by"`
	UpdatedByID    *uuid.UUID           `gorm:"type:uuid" json:"updated_by"`
	CreatedAt      time.Time            `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// WholesaleOrderItem is one order line with the operator-selected selling
// price and discount percentage (validated against the item's ceiling).
type WholesaleOrderItem struct {
	ID                   uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID              uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	WholesaleItemID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"wholesale_item_id"`
	WholesaleItem        *WholesaleItem  `gorm:"foreignKey:WholesaleItemID" json:"wholesale_item,omitempty"`
	Quantity             int             `gorm:"not null" json:"quantity"`
	SelectedSellingPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"selected_selling_price"`
	DiscountPercentage   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percentage"`
	CreatedAt            time.Time       `json:"created_at"`
}
