package repository

import (
	"context"

	"opticinvoicer/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrganizationRepository interface {
	Create(ctx context.Context, org *model.Organization) error
	Update(ctx context.Context, org *model.Organization) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Organization, error)
	CreateSubscription(ctx context.Context, sub *model.Subscription) error
	UpdateSubscription(ctx context.Context, sub *model.Subscription) error
	FindActiveSubscription(ctx context.Context, orgID uuid.UUID) (*model.Subscription, error)
}

type organizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(ctx context.Context, org *model.Organization) error {
	return GetDB(ctx, r.db).Create(org).Error
}

func (r *organizationRepository) Update(ctx context.Context, org *model.Organization) error {
	return GetDB(ctx, r.db).Save(org).Error
}

func (r *organizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	var org model.Organization
	if err := GetDB(ctx, r.db).First(&org, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	return GetDB(ctx, r.db).Create(sub).Error
}

func (r *organizationRepository) UpdateSubscription(ctx context.Context, sub *model.Subscription) error {
	return GetDB(ctx, r.db).Save(sub).Error
}

// FindActiveSubscription returns the newest active subscription row for the
// organization, or gorm.ErrRecordNotFound when none exists.
func (r *organizationRepository) FindActiveSubscription(ctx context.Context, orgID uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription
	if err := GetDB(ctx, r.db).
		Where("organization_id = ? AND is_active = ?", orgID, true).
		Order("created_at desc").
		First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}
