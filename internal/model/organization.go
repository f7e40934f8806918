package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionType enum constants
const (
	SubscriptionTrial   = "Trial"
	SubscriptionDemo    = "Demo"
	SubscriptionWeekly  = "Weekly"
	SubscriptionMonthly = "Monthly"
	SubscriptionYearly  = "Yearly"
)

// SubscriptionStatus enum constants
const (
	SubscriptionStatusTrial   = "Trial"
	SubscriptionStatusPaid    = "Paid"
	SubscriptionStatusPending = "Pending"
	SubscriptionStatusExpired = "Expired"
	SubscriptionStatusError   = "Error"
	SubscriptionStatusStopped = "Stopped"
)

// Organization is the tenant root. Every core entity belongs to exactly one.
// The total_* counters and *_statistics blobs are denormalized report data,
// recomputed on demand — they carry no freshness guarantee.
type Organization struct {
	ID                  uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name                string    `gorm:"type:varchar(255);not null" json:"name"`
	AddressFirstLine    string    `gorm:"type:varchar(255)" json:"address_first_line"`
	Email               string    `gorm:"type:varchar(255);not null" json:"email"`
	SecondaryEmail      string    `gorm:"type:varchar(255)" json:"secondary_email"`
	PrimaryPhoneMobile  string    `gorm:"type:varchar(20)" json:"primary_phone_mobile"`
	OtherContactNumbers string    `gorm:"type:text" json:"other_contact_numbers"`
	PhoneLandline       string    `gorm:"type:varchar(20)" json:"phone_landline"`
	Country             string    `gorm:"type:varchar(100)" json:"country"`
	City                string    `gorm:"type:varchar(100)" json:"city"`
	PostBoxNumber       string    `gorm:"type:varchar(50)" json:"post_box_number"`
	Services            string    `gorm:"type:text" json:"services"`
	TranslationRequired bool      `gorm:"default:false" json:"translation_required"`
	IsActive            bool      `gorm:"default:true" json:"is_active"`
	IsRetail            bool      `gorm:"default:true" json:"is_retail"`
	IsWholesale         bool      `gorm:"default:false" json:"is_wholesale"`

	TotalCustomers         int    `gorm:"default:0" json:"total_customers"`
	TotalPrescriptions     int    `gorm:"default:0" json:"total_prescriptions"`
	TotalInventory         int    `gorm:"default:0" json:"total_inventory"`
	TotalInvoices          int    `gorm:"default:0" json:"total_invoices"`
	CustomerStatistics     string `gorm:"type:jsonb;default:'[]'" json:"customer_statistics"`
	PrescriptionStatistics string `gorm:"type:jsonb;default:'[]'" json:"prescription_statistics"`
	InventoryStatistics    string `gorm:"type:jsonb;default:'[]'" json:"inventory_statistics"`
	InvoiceStatistics      string `gorm:"type:jsonb;default:'[]'" json:"invoice_statistics"`

	CreatedByID *uuid.UUID     `gorm:"type:uuid" json:"created_by"`
	UpdatedByID *uuid.UUID     `gorm:"type:uuid" json:"updated_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Prefix returns the four-character uppercase marker used in generated
// invoice numbers, order numbers and SKUs.
func (o *Organization) Prefix() string {
	name := []rune(o.Name)
	if len(name) > 4 {
		name = name[:4]
	}
	prefix := make([]rune, 0, 4)
	for _, r := range name {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		prefix = append(prefix, r)
	}
	for len(prefix) < 4 {
		prefix = append(prefix, 'X')
	}
	return string(prefix)
}

// Subscription gates invoice creation. At most one subscription per
// organization is active at a time.
type Subscription struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganizationID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"organization_id"`
	SubscriptionType string     `gorm:"type:varchar(10);not null;default:'Trial'" json:"subscription_type"`
	Status           string     `gorm:"type:varchar(10);not null;default:'Trial'" json:"status"`
	TrialStartDate   *time.Time `json:"trial_start_date"`
	TrialEndDate     *time.Time `json:"trial_end_date"`
	ExpiryDate       *time.Time `json:"expiry_date"`
	IsActive         bool       `gorm:"default:true" json:"is_active"`
	CreatedByID      *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	UpdatedByID      *uuid.UUID `gorm:"type:uuid" json:"updated_by"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NumberSequence scopes for generated document numbers
const (
	SequenceScopeInvoice        = "invoice"
	SequenceScopeWholesaleOrder = "wholesale_order"
	SequenceScopeSKU            = "sku"
)

// NumberSequence backs the per-tenant document numbering. One row per
// (organization, scope, year); Value is incremented atomically with an
// upsert so concurrent creates can never observe the same number.
// SKU sequences are not year-bound and use Year 0.
type NumberSequence struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_seq_org_scope_year" json:"organization_id"`
	Scope          string    `gorm:"type:varchar(30);not null;uniqueIndex:idx_seq_org_scope_year" json:"scope"`
	Year           int       `gorm:"not null;uniqueIndex:idx_seq_org_scope_year" json:"year"`
	Value          int64     `gorm:"not null;default:0" json:"value"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
