package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"opticinvoicer/internal/model"
	"opticinvoicer/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type InventoryItemRequest struct {
	StoreSKU    string `json:"store_sku"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ItemType    string `json:"item_type" binding:"omitempty,oneof=Frames Lens Sunglasses Accessories Other"`
	Qty         int    `json:"qty" binding:"min=0"`
	SaleValue   string `json:"sale_value" binding:"required"`
	CostValue   string `json:"cost_value" binding:"required"`
	Brand       string `json:"brand"`
}

type InventoryFilter struct {
	Search   string
	ItemType string
	Status   string
	Page     int
	Limit    int
}

// CSVImportResult reports the outcome of a bulk upload row by row.
type CSVImportResult struct {
	Created int              `json:"created"`
	Errors  []CSVImportError `json:"errors"`
}

type CSVImportError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// --- Interface ---

type InventoryService interface {
	CreateItem(ctx context.Context, orgID, actorID uuid.UUID, req InventoryItemRequest) (*model.InventoryItem, error)
	UpdateItem(ctx context.Context, orgID, actorID, id uuid.UUID, req InventoryItemRequest) (*model.InventoryItem, error)
	DeleteItem(ctx context.Context, orgID, actorID, id uuid.UUID) error
	GetItem(ctx context.Context, orgID, id uuid.UUID) (*model.InventoryItem, error)
	ListItems(ctx context.Context, orgID uuid.UUID, filter InventoryFilter) ([]model.InventoryItem, int64, error)
	ImportCSV(ctx context.Context, orgID, actorID uuid.UUID, r io.Reader) (*CSVImportResult, error)

	// Reserve and Restore mutate stock under a row lock and must run inside
	// a transaction context supplied by the caller.
	Reserve(txCtx context.Context, orgID uuid.UUID, itemID uuid.UUID, qty int) (*model.InventoryItem, error)
	Restore(txCtx context.Context, orgID uuid.UUID, itemID uuid.UUID, qty int) (*model.InventoryItem, error)

	// NotifyStockOut publishes depletion events for items a committed
	// transaction drained to zero. Callers invoke it only after commit so a
	// rolled-back reservation never announces stock it gave back.
	NotifyStockOut(items []model.InventoryItem)
}

type inventoryService struct {
	inventoryRepo repository.InventoryRepository
	orgRepo       repository.OrganizationRepository
	sequenceRepo  repository.SequenceRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
	notifier      Notifier
}

func NewInventoryService(
	inventoryRepo repository.InventoryRepository,
	orgRepo repository.OrganizationRepository,
	sequenceRepo repository.SequenceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
) InventoryService {
	return &inventoryService{
		inventoryRepo: inventoryRepo,
		orgRepo:       orgRepo,
		sequenceRepo:  sequenceRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		notifier:      notifier,
	}
}

// --- Implementation ---

// generateSKU builds `{ORG4}{seq:05}`. SKU sequences are not year-bound.
func (s *inventoryService) generateSKU(ctx context.Context, org *model.Organization) (string, error) {
	seq, err := s.sequenceRepo.NextValue(ctx, org.ID, model.SequenceScopeSKU, 0)
	if err != nil {
		return "", fmt.Errorf("failed to advance sku sequence: %w", err)
	}
	return fmt.Sprintf("%s%05d", org.Prefix(), seq), nil
}

func buildItem(orgID, actorID uuid.UUID, req InventoryItemRequest) (*model.InventoryItem, error) {
	saleValue, err := decimal.NewFromString(req.SaleValue)
	if err != nil {
		return nil, fmt.Errorf("invalid sale_value: %w", err)
	}
	costValue, err := decimal.NewFromString(req.CostValue)
	if err != nil {
		return nil, fmt.Errorf("invalid cost_value: %w", err)
	}

	itemType := req.ItemType
	if itemType == "" {
		itemType = model.ItemTypeOther
	}
	status := model.InventoryInStock
	if req.Qty == 0 {
		status = model.InventoryOutOfStock
	}

	return &model.InventoryItem{
		OrganizationID: orgID,
		StoreSKU:       req.StoreSKU,
		Name:           req.Name,
		Description:    req.Description,
		ItemType:       itemType,
		Qty:            req.Qty,
		SaleValue:      saleValue,
		CostValue:      costValue,
		Brand:          req.Brand,
		Status:         status,
		IsActive:       true,
		CreatedByID:    &actorID,
	}, nil
}

func (s *inventoryService) CreateItem(ctx context.Context, orgID, actorID uuid.UUID, req InventoryItemRequest) (*model.InventoryItem, error) {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}

	item, err := buildItem(orgID, actorID, req)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sku, err := s.generateSKU(txCtx, org)
		if err != nil {
			return err
		}
		item.SKU = sku

		if err := s.inventoryRepo.Create(txCtx, item); err != nil {
			return fmt.Errorf("failed to create inventory item: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			OrganizationID: orgID,
			UserID:         &actorID,
			Action:         model.ActionCreateInventoryItem,
			EntityID:       item.ID.String(),
			EntityName:     item.Name,
			Details:        string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *inventoryService) UpdateItem(ctx context.Context, orgID, actorID, id uuid.UUID, req InventoryItemRequest) (*model.InventoryItem, error) {
	item, err := s.inventoryRepo.FindByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load inventory item: %w", err)
	}

	saleValue, err := decimal.NewFromString(req.SaleValue)
	if err != nil {
		return nil, fmt.Errorf("invalid sale_value: %w", err)
	}
	costValue, err := decimal.NewFromString(req.CostValue)
	if err != nil {
		return nil, fmt.Errorf("invalid cost_value: %w", err)
	}

	item.StoreSKU = req.StoreSKU
	item.Name = req.Name
	item.Description = req.Description
	if req.ItemType != "" {
		item.ItemType = req.ItemType
	}
	item.Qty = req.Qty
	if item.Qty == 0 {
		item.Status = model.InventoryOutOfStock
	} else {
		item.Status = model.InventoryInStock
	}
	item.SaleValue = saleValue
	item.CostValue = costValue
	item.Brand = req.Brand
	item.UpdatedByID = &actorID

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.inventoryRepo.Update(txCtx, item); err != nil {
			return fmt.Errorf("failed to update inventory item: %w", err)
		}
		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			OrganizationID: orgID,
			UserID:         &actorID,
			Action:         model.ActionUpdateInventoryItem,
			EntityID:       item.ID.String(),
			EntityName:     item.Name,
			Details:        string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *inventoryService) DeleteItem(ctx context.Context, orgID, actorID, id uuid.UUID) error {
	item, err := s.inventoryRepo.FindByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load inventory item: %w", err)
	}

	item.IsActive = false
	item.UpdatedByID = &actorID

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.inventoryRepo.Update(txCtx, item); err != nil {
			return fmt.Errorf("failed to delete inventory item: %w", err)
		}
		audit := &model.AuditLog{
			OrganizationID: orgID,
			UserID:         &actorID,
			Action:         model.ActionDeleteInventoryItem,
			EntityID:       item.ID.String(),
			EntityName:     item.Name,
			Details:        `{"deleted": true}`,
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
}

func (s *inventoryService) GetItem(ctx context.Context, orgID, id uuid.UUID) (*model.InventoryItem, error) {
	item, err := s.inventoryRepo.FindByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load inventory item: %w", err)
	}
	return item, nil
}

func (s *inventoryService) ListItems(ctx context.Context, orgID uuid.UUID, filter InventoryFilter) ([]model.InventoryItem, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	return s.inventoryRepo.List(ctx, orgID, filter.Page, filter.Limit, filter.Search, filter.ItemType, filter.Status)
}

// csvColumns is the expected header of a bulk upload file.
var csvColumns = []string{"name", "description", "item_type", "qty", "sale_value", "cost_value", "brand", "store_sku"}

// ImportCSV creates one inventory item per valid row. Invalid rows are
// collected into the result instead of failing the whole file; created rows
// commit in a single transaction.
func (s *inventoryService) ImportCSV(ctx context.Context, orgID, actorID uuid.UUID, r io.Reader) (*CSVImportResult, error) {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"name", "qty", "sale_value", "cost_value"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("csv header missing required column %q", required)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	result := &CSVImportResult{}
	var requests []InventoryItemRequest
	var rowNumbers []int

	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, CSVImportError{Row: row, Message: err.Error()})
			continue
		}

		qty, err := strconv.Atoi(field(record, "qty"))
		if err != nil || qty < 0 {
			result.Errors = append(result.Errors, CSVImportError{Row: row, Message: "qty must be a non-negative integer"})
			continue
		}

		req := InventoryItemRequest{
			StoreSKU:    field(record, "store_sku"),
			Name:        field(record, "name"),
			Description: field(record, "description"),
			ItemType:    field(record, "item_type"),
			Qty:         qty,
			SaleValue:   field(record, "sale_value"),
			CostValue:   field(record, "cost_value"),
			Brand:       field(record, "brand"),
		}
		if req.Name == "" {
			result.Errors = append(result.Errors, CSVImportError{Row: row, Message: "name is required"})
			continue
		}
		if _, err := buildItem(orgID, actorID, req); err != nil {
			result.Errors = append(result.Errors, CSVImportError{Row: row, Message: err.Error()})
			continue
		}
		requests = append(requests, req)
		rowNumbers = append(rowNumbers, row)
	}

	if len(requests) == 0 {
		return result, nil
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		items := make([]model.InventoryItem, 0, len(requests))
		for i, req := range requests {
			item, err := buildItem(orgID, actorID, req)
			if err != nil {
				result.Errors = append(result.Errors, CSVImportError{Row: rowNumbers[i], Message: err.Error()})
				continue
			}
			sku, err := s.generateSKU(txCtx, org)
			if err != nil {
				return err
			}
			item.SKU = sku
			items = append(items, *item)
		}
		if len(items) == 0 {
			return nil
		}
		if err := s.inventoryRepo.CreateBatch(txCtx, items); err != nil {
			return fmt.Errorf("failed to import inventory items: %w", err)
		}
		result.Created = len(items)

		audit := &model.AuditLog{
			OrganizationID: orgID,
			UserID:         &actorID,
			Action:         model.ActionImportInventoryCSV,
			EntityName:     "inventory csv import",
			Details:        fmt.Sprintf(`{"created":%d,"rejected":%d}`, len(items), len(result.Errors)),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *inventoryService) Reserve(txCtx context.Context, orgID uuid.UUID, itemID uuid.UUID, qty int) (*model.InventoryItem, error) {
	item, err := s.inventoryRepo.FindByIDForUpdate(txCtx, orgID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock inventory item: %w", err)
	}

	if item.Qty < qty {
		return nil, &InsufficientStockError{
			SKU:       item.SKU,
			ItemName:  item.Name,
			Requested: qty,
			Available: item.Qty,
		}
	}

	item.Qty -= qty
	status := item.Status
	if item.Qty == 0 {
		status = model.InventoryOutOfStock
	}
	if err := s.inventoryRepo.UpdateStock(txCtx, item.ID, item.Qty, status); err != nil {
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}
	item.Status = status
	return item, nil
}

func (s *inventoryService) NotifyStockOut(items []model.InventoryItem) {
	if s.notifier == nil {
		return
	}
	for _, item := range items {
		s.notifier.Notify(EventStockOut, map[string]interface{}{
			"item_id": item.ID.String(),
			"sku":     item.SKU,
			"name":    item.Name,
		})
	}
}

func (s *inventoryService) Restore(txCtx context.Context, orgID uuid.UUID, itemID uuid.UUID, qty int) (*model.InventoryItem, error) {
	item, err := s.inventoryRepo.FindByIDForUpdate(txCtx, orgID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock inventory item: %w", err)
	}

	item.Qty += qty
	status := item.Status
	if status == model.InventoryOutOfStock && item.Qty > 0 {
		status = model.InventoryInStock
	}
	if err := s.inventoryRepo.UpdateStock(txCtx, item.ID, item.Qty, status); err != nil {
		return nil, fmt.Errorf("failed to restore stock: %w", err)
	}
	item.Status = status
	return item, nil
}
