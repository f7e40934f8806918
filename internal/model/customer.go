package model

import (
	"time"

	"github.com/google/uuid"
)

// Gender enum constants
const (
	GenderMale         = "M"
	GenderFemale       = "F"
	GenderOther        = "O"
	GenderNotDisclosed = "N"
)

// Customer is a tenant-scoped contact record. Phone and email are unique
// per organization among active rows — soft-deleting a customer releases
// the slot.
type Customer struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	Phone          string         `gorm:"type:varchar(20);not null;index" json:"phone"`
	Email          string         `gorm:"type:varchar(255);index" json:"email"`
	FirstName      string         `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName       string         `gorm:"type:varchar(100)" json:"last_name"`
	Gender         string         `gorm:"type:varchar(1);default:'N'" json:"gender"`
	IsActive       bool           `gorm:"default:true" json:"is_active"`
	Prescriptions  []Prescription `gorm:"foreignKey:CustomerID" json:"prescriptions,omitempty"`
	CreatedByID    *uuid.UUID     `gorm:"type:uuid" json:"created_by"`
	UpdatedByID    *uuid.UUID     `gorm:"type:uuid" json:"updated_by"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Prescription holds per-eye optical measurements. Every graded value is
// constrained to a discrete grid (see service.ValidatePrescriptionGrid);
// values off the grid are rejected before persistence.
type Prescription struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`
	CustomerID     uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`

	LeftSphere        *float64 `gorm:"type:decimal(6,2)" json:"left_sphere"`
	RightSphere       *float64 `gorm:"type:decimal(6,2)" json:"right_sphere"`
	LeftCylinder      *float64 `gorm:"type:decimal(6,2)" json:"left_cylinder"`
	RightCylinder     *float64 `gorm:"type:decimal(6,2)" json:"right_cylinder"`
	LeftAxis          *int     `json:"left_axis"`
	RightAxis         *int     `json:"right_axis"`
	LeftPrism         *float64 `gorm:"type:decimal(6,2)" json:"left_prism"`
	RightPrism        *float64 `gorm:"type:decimal(6,2)" json:"right_prism"`
	LeftAdd           *float64 `gorm:"type:decimal(6,2)" json:"left_add"`
	RightAdd          *float64 `gorm:"type:decimal(6,2)" json:"right_add"`
	LeftIPD           *float64 `gorm:"type:decimal(6,2)" json:"left_ipd"`
	RightIPD          *float64 `gorm:"type:decimal(6,2)" json:"right_ipd"`
	PupillaryDistance *float64 `gorm:"type:decimal(6,2)" json:"pupillary_distance"`

	AdditionalNotes string     `gorm:"type:text" json:"additional_notes"`
	IsActive        bool       `gorm:"default:true" json:"is_active"`
	CreatedByID     *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	UpdatedByID     *uuid.UUID `gorm:"type:uuid" json:"updated_by"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
