package repository

import (
	"context"

	"opticinvoicer/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	Update(ctx context.Context, customer *model.Customer) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Customer, error)
	FindActiveByPhone(ctx context.Context, orgID uuid.UUID, phone string) (*model.Customer, error)
	FindActiveByEmail(ctx context.Context, orgID uuid.UUID, email string) (*model.Customer, error)
	List(ctx context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.Customer, int64, error)

	CreatePrescription(ctx context.Context, p *model.Prescription) error
	UpdatePrescription(ctx context.Context, p *model.Prescription) error
	FindPrescriptionByID(ctx context.Context, orgID, id uuid.UUID) (*model.Prescription, error)
	ListPrescriptions(ctx context.Context, orgID, customerID uuid.UUID) ([]model.Prescription, error)
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Create(customer).Error
}

func (r *customerRepository) Update(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Save(customer).Error
}

func (r *customerRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).
		Where("organization_id = ?", orgID).
		First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindActiveByPhone only matches active rows; soft-deleted customers do not
// hold their phone number.
func (r *customerRepository) FindActiveByPhone(ctx context.Context, orgID uuid.UUID, phone string) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).
		Where("organization_id = ? AND phone = ? AND is_active = ?", orgID, phone, true).
		First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) FindActiveByEmail(ctx context.Context, orgID uuid.UUID, email string) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).
		Where("organization_id = ? AND email = ? AND is_active = ?", orgID, email, true).
		First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) List(ctx context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.Customer, int64, error) {
	var customers []model.Customer
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Customer{}).
		Where("organization_id = ? AND is_active = ?", orgID, true)
	if search != "" {
		like := "%" + search + "%"
		db = db.Where("first_name ILIKE ? OR last_name ILIKE ? OR phone ILIKE ? OR email ILIKE ?", like, like, like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&customers).Error; err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}

func (r *customerRepository) CreatePrescription(ctx context.Context, p *model.Prescription) error {
	return GetDB(ctx, r.db).Create(p).Error
}

func (r *customerRepository) UpdatePrescription(ctx context.Context, p *model.Prescription) error {
	return GetDB(ctx, r.db).Save(p).Error
}

func (r *customerRepository) FindPrescriptionByID(ctx context.Context, orgID, id uuid.UUID) (*model.Prescription, error) {
	var p model.Prescription
	if err := GetDB(ctx, r.db).
		Where("organization_id = ?", orgID).
		First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *customerRepository) ListPrescriptions(ctx context.Context, orgID, customerID uuid.UUID) ([]model.Prescription, error) {
	var prescriptions []model.Prescription
	if err := GetDB(ctx, r.db).
		Where("organization_id = ? AND customer_id = ? AND is_active = ?", orgID, customerID, true).
		Order("created_at desc").
		Find(&prescriptions).Error; err != nil {
		return nil, err
	}
	return prescriptions, nil
}
