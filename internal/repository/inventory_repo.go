package repository

import (
	"context"

	"opticinvoicer/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepository interface {
	Create(ctx context.Context, item *model.InventoryItem) error
	CreateBatch(ctx context.Context, items []model.InventoryItem) error
	Update(ctx context.Context, item *model.InventoryItem) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.InventoryItem, error)
	FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*model.InventoryItem, error)
	FindBySKU(ctx context.Context, orgID uuid.UUID, sku string) (*model.InventoryItem, error)
	List(ctx context.Context, orgID uuid.UUID, page, limit int, search, itemType, status string) ([]model.InventoryItem, int64, error)
	UpdateStock(ctx context.Context, id uuid.UUID, qty int, status string) error
}

type inventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) Create(ctx context.Context, item *model.InventoryItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *inventoryRepository) CreateBatch(ctx context.Context, items []model.InventoryItem) error {
	return GetDB(ctx, r.db).Create(&items).Error
}

func (r *inventoryRepository) Update(ctx context.Context, item *model.InventoryItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *inventoryRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := GetDB(ctx, r.db).
		Where("organization_id = ?", orgID).
		First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByIDForUpdate takes a row lock so stock mutations under the same
// transaction serialize against concurrent reservations.
func (r *inventoryRepository) FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepository) FindBySKU(ctx context.Context, orgID uuid.UUID, sku string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := GetDB(ctx, r.db).
		Where("organization_id = ? AND sku = ?", orgID, sku).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepository) List(ctx context.Context, orgID uuid.UUID, page, limit int, search, itemType, status string) ([]model.InventoryItem, int64, error) {
	var items []model.InventoryItem
	var total int64

	db := GetDB(ctx, r.db).Model(&model.InventoryItem{}).
		Where("organization_id = ? AND is_active = ?", orgID, true)
	if search != "" {
		like := "%" + search + "%"
		db = db.Where("name ILIKE ? OR sku ILIKE ? OR brand ILIKE ?", like, like, like)
	}
	if itemType != "" {
		db = db.Where("item_type = ?", itemType)
	}
	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *inventoryRepository) UpdateStock(ctx context.Context, id uuid.UUID, qty int, status string) error {
	return GetDB(ctx, r.db).Model(&model.InventoryItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"qty": qty, "status": status}).Error
}
