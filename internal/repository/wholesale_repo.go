package repository

import (
	"context"

	"opticinvoicer/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WholesaleRepository interface {
	CreateClient(ctx context.Context, client *model.WholesaleClient) error
	UpdateClient(ctx context.Context, client *model.WholesaleClient) error
	FindClientByID(ctx context.Context, orgID, id uuid.UUID) (*model.WholesaleClient, error)
	FindClientByIDNo(ctx context.Context, orgID uuid.UUID, idNo string) (*model.WholesaleClient, error)
	ListClients(ctx context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.WholesaleClient, int64, error)

	CreateItem(ctx context.Context, item *model.WholesaleItem) error
	UpdateItem(ctx context.Context, item *model.WholesaleItem) error
	FindItemByID(ctx context.Context, orgID, id uuid.UUID) (*model.WholesaleItem, error)
	ListItems(ctx context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.WholesaleItem, int64, error)

	CreateOrder(ctx context.Context, order *model.WholesaleOrder) error
	FindOrderByID(ctx context.Context, orgID, id uuid.UUID) (*model.WholesaleOrder, error)
	ListOrders(ctx context.Context, orgID uuid.UUID, page, limit int, orderStatus string) ([]model.WholesaleOrder, int64, error)
}

type wholesaleRepository struct {
	db *gorm.DB
}

func NewWholesaleRepository(db *gorm.DB) WholesaleRepository {
	return &wholesaleRepository{db: db}
}

func (r *wholesaleRepository) CreateClient(ctx context.Context, client *model.WholesaleClient) error {
	return GetDB(ctx, r.db).Create(client).Error
}

func (r *wholesaleRepository) UpdateClient(ctx context.Context, client *model.WholesaleClient) error {
	return GetDB(ctx, r.db).Save(client).Error
}

func (r *wholesaleRepository) FindClientByID(ctx context.Context, orgID, id uuid.UUID) (*model.WholesaleClient, error) {
	var client model.WholesaleClient
	if err := GetDB(ctx, r.db).
		Where("organization_id = ?", orgID).
		First(&client, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *wholesaleRepository) FindClientByIDNo(ctx context.Context, orgID uuid.UUID, idNo string) (*model.WholesaleClient, error) {
	var client model.WholesaleClient
	if err := GetDB(ctx, r.db).
		Where("organization_id = ? AND id_no = ?", orgID, idNo).
		First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *wholesaleRepository) ListClients(ctx context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.WholesaleClient, int64, error) {
	var clients []model.WholesaleClient
	var total int64

	db := GetDB(ctx, r.db).Model(&model.WholesaleClient{}).
		Where("organization_id = ? AND is_active = ?", orgID, true)
	if search != "" {
		like := "%" + search + "%"
		db = db.Where("name ILIKE ? OR id_no ILIKE ?", like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&clients).Error; err != nil {
		return nil, 0, err
	}

	return clients, total, nil
}

func (r *wholesaleRepository) CreateItem(ctx context.Context, item *model.WholesaleItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *wholesaleRepository) UpdateItem(ctx context.Context, item *model.WholesaleItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *wholesaleRepository) FindItemByID(ctx context.Context, orgID, id uuid.UUID) (*model.WholesaleItem, error) {
	var item model.WholesaleItem
	if err := GetDB(ctx, r.db).
		Where("organization_id = ?", orgID).
		First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *wholesaleRepository) ListItems(ctx context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.WholesaleItem, int64, error) {
	var items []model.WholesaleItem
	var total int64

	db := GetDB(ctx, r.db).Model(&model.WholesaleItem{}).
		Where("organization_id = ?", orgID)
	if search != "" {
		like := "%" + search + "%"
		db = db.Where("item_name ILIKE ? OR item_code ILIKE ? OR brand ILIKE ?", like, like, like)
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

func (r *wholesaleRepository) CreateOrder(ctx context.Context, order *model.WholesaleOrder) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *wholesaleRepository) FindOrderByID(ctx context.Context, orgID, id uuid.UUID) (*model.WholesaleOrder, error) {
	var order model.WholesaleOrder
	if err := GetDB(ctx, r.db).
		Preload("Client").
		Preload("Items.WholesaleItem").
		Where("organization_id = ?", orgID).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *wholesaleRepository) ListOrders(ctx context.Context, orgID uuid.UUID, page, limit int, orderStatus string) ([]model.WholesaleOrder, int64, error) {
	var orders []model.WholesaleOrder
	var total int64

	db := GetDB(ctx, r.db).Model(&model.WholesaleOrder{}).
		Where("organization_id = ?", orgID)
	if orderStatus != "" {
		db = db.Where("order_status = ?", orderStatus)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Client").Order("created_at desc").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}
