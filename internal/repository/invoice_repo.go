package repository

import (
	"context"
	"time"

	"opticinvoicer/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	Update(ctx context.Context, invoice *model.Invoice) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error)
	FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error)
	FindByIDWithDetails(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, orgID uuid.UUID, page, limit int, status, search string, from, to *time.Time) ([]model.Invoice, int64, error)
	ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []model.InvoiceItem) error

	CreatePayment(ctx context.Context, payment *model.InvoicePayment) error
	UpdatePayment(ctx context.Context, payment *model.InvoicePayment) error
	FindPaymentByID(ctx context.Context, orgID, id uuid.UUID) (*model.InvoicePayment, error)
	ListPayments(ctx context.Context, orgID, invoiceID uuid.UUID) ([]model.InvoicePayment, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *model.Invoice) error {
	// Omit associations so item and payment rows are only written through
	// their dedicated methods.
	return GetDB(ctx, r.db).Omit("Items", "Payments", "Customer", "Prescription").Save(invoice).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).
		Where("organization_id = ?", orgID).
		First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByIDWithDetails(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).
		Preload("Customer").
		Preload("Prescription").
		Preload("Items.InventoryItem").
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("invoice_payments.created_at asc")
		}).
		Where("organization_id = ?", orgID).
		First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, orgID uuid.UUID, page, limit int, status, search string, from, to *time.Time) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Where("organization_id = ? AND is_active = ?", orgID, true)
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if search != "" {
		db = db.Where("invoice_number ILIKE ?", "%"+search+"%")
	}
	if from != nil {
		db = db.Where("date >= ?", *from)
	}
	if to != nil {
		db = db.Where("date <= ?", *to)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Customer").Order("created_at desc").Offset(offset).Limit(limit).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

// ReplaceItems deletes the invoice's current item rows and inserts the new
// set. Updates never diff line items against the stored ones.
func (r *invoiceRepository) ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []model.InvoiceItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("invoice_id = ?", invoiceID).Delete(&model.InvoiceItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.Create(&items).Error
}

func (r *invoiceRepository) CreatePayment(ctx context.Context, payment *model.InvoicePayment) error {
	return GetDB(ctx, r.db).Create(payment).Error
}

func (r *invoiceRepository) UpdatePayment(ctx context.Context, payment *model.InvoicePayment) error {
	return GetDB(ctx, r.db).Save(payment).Error
}

func (r *invoiceRepository) FindPaymentByID(ctx context.Context, orgID, id uuid.UUID) (*model.InvoicePayment, error) {
	var payment model.InvoicePayment
	if err := GetDB(ctx, r.db).
		Where("organization_id = ?", orgID).
		First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *invoiceRepository) ListPayments(ctx context.Context, orgID, invoiceID uuid.UUID) ([]model.InvoicePayment, error) {
	var payments []model.InvoicePayment
	if err := GetDB(ctx, r.db).
		Where("organization_id = ? AND invoice_id = ?", orgID, invoiceID).
		Order("created_at asc").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
