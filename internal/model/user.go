package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole enum constants. The role is resolved once at login and carried
// in the token claims — it is never re-derived from related profiles.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// User represents an authenticated account (admin or staff member)
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username  string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"type:varchar(255);not null" json:"-"` // Omit password hash from JSON
	Role      string         `gorm:"type:varchar(50);not null;default:'staff'" json:"role"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Staff links a user account to the organization it works for
type Staff struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User           User       `gorm:"foreignKey:UserID" json:"user"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"organization_id"`
	FirstName      string     `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName       string     `gorm:"type:varchar(100)" json:"last_name"`
	Designation    string     `gorm:"type:varchar(100)" json:"designation"`
	Phone          string     `gorm:"type:varchar(20)" json:"phone"`
	Email          string     `gorm:"type:varchar(255)" json:"email"`
	IsSuperStaff   bool       `gorm:"default:false" json:"staff_superuser"`
	IsActive       bool       `gorm:"default:true" json:"is_active"`
	CreatedByID    *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	UpdatedByID    *uuid.UUID `gorm:"type:uuid" json:"updated_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
