package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"opticinvoicer/internal/model"
	"opticinvoicer/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type WholesaleClientRequest struct {
	IDNo               string `json:"id_no" binding:"required"`
	Name               string `json:"name" binding:"required"`
	Address            string `json:"address"`
	Country            string `json:"country"`
	TaxNumber          string `json:"tax_number"`
	TaxPercentage      string `json:"tax_percentage"`
	Phone              string `json:"phone"`
	Email              string `json:"email" binding:"omitempty,email"`
	ContactPerson      string `json:"contact_person"`
	ContactPersonPhone string `json:"contact_person_phone"`
}

type WholesaleItemRequest struct {
	ItemCode              string `json:"item_code" binding:"required"`
	ItemType              string `json:"item_type"`
	Group                 string `json:"group"`
	Category              string `json:"category"`
	ItemName              string `json:"item_name" binding:"required"`
	Description           string `json:"description"`
	Brand                 string `json:"brand"`
	Origin                string `json:"origin"`
	PartModelNo           string `json:"part_model_no"`
	Size                  string `json:"size"`
	Color                 string `json:"color"`
	BasicUnit             string `json:"basic_unit_of_measure"`
	StdCost               string `json:"std_cost" binding:"required"`
	SellingPrice1         string `json:"selling_price_1" binding:"required"`
	SellingPrice2         string `json:"selling_price_2"`
	SellingPrice3         string `json:"selling_price_3"`
	ReorderQty            int    `json:"re_order_qty" binding:"min=0"`
	MinPrice              string `json:"min_price"`
	MaxDiscountPercentage string `json:"max_discount_percentage"`
}

type WholesaleOrderItemRequest struct {
	WholesaleItemID      string `json:"wholesale_item_id" binding:"required"`
	Quantity             int    `json:"quantity" binding:"required,gt=0"`
	SelectedSellingPrice string `json:"selected_selling_price" binding:"required"`
	DiscountPercentage   string `json:"discount_percentage"`
}

type CreateWholesaleOrderRequest struct {
	ClientID       string                      `json:"client_id" binding:"required"`
	OrderDate      string                      `json:"order_date"` // YYYY-MM-DD, defaults to today
	IsTaxable      *bool                       `json:"is_taxable"`
	PaymentDueDate string                      `json:"payment_due_date"`
	Remarks        string                      `json:"remarks"`
	Items          []WholesaleOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// --- Interface ---

type WholesaleService interface {
	CreateClient(ctx context.Context, orgID, actorID uuid.UUID, req WholesaleClientRequest) (*model.WholesaleClient, error)
	UpdateClient(ctx context.Context, orgID, actorID, id uuid.UUID, req WholesaleClientRequest) (*model.WholesaleClient, error)
	ListClients(ctx context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.WholesaleClient, int64, error)

	CreateItem(ctx context.Context, orgID, actorID uuid.UUID, req WholesaleItemRequest) (*model.WholesaleItem, error)
	UpdateItem(ctx context.Context, orgID, actorID, id uuid.UUID, req WholesaleItemRequest) (*model.WholesaleItem, error)
	ListItems(ctx context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.WholesaleItem, int64, error)

	CreateOrder(ctx context.Context, orgID, actorID uuid.UUID, req CreateWholesaleOrderRequest) (*model.WholesaleOrder, error)
	GetOrder(ctx context.Context, orgID, id uuid.UUID) (*model.WholesaleOrder, error)
	ListOrders(ctx context.Context, orgID uuid.UUID, page, limit int, orderStatus string) ([]model.WholesaleOrder, int64, error)
}

type wholesaleService struct {
	wholesaleRepo repository.WholesaleRepository
	orgRepo       repository.OrganizationRepository
	sequenceRepo  repository.SequenceRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
}

func NewWholesaleService(
	wholesaleRepo repository.WholesaleRepository,
	orgRepo repository.OrganizationRepository,
	sequenceRepo repository.SequenceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) WholesaleService {
	return &wholesaleService{
		wholesaleRepo: wholesaleRepo,
		orgRepo:       orgRepo,
		sequenceRepo:  sequenceRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
	}
}

// --- Clients ---

func applyClientRequest(client *model.WholesaleClient, req WholesaleClientRequest) error {
	if req.TaxPercentage != "" {
		taxPercentage, err := decimal.NewFromString(req.TaxPercentage)
		if err != nil {
			return fmt.Errorf("invalid tax_percentage: %w", err)
		}
		client.TaxPercentage = taxPercentage
	}
	client.IDNo = req.IDNo
	client.Name = req.Name
	client.Address = req.Address
	client.Country = req.Country
	client.TaxNumber = req.TaxNumber
	client.Phone = req.Phone
	client.Email = req.Email
	client.ContactPerson = req.ContactPerson
	client.ContactPersonPhone = req.ContactPersonPhone
	return nil
}

func (s *wholesaleService) CreateClient(ctx context.Context, orgID, actorID uuid.UUID, req WholesaleClientRequest) (*model.WholesaleClient, error) {
	if existing, err := s.wholesaleRepo.FindClientByIDNo(ctx, orgID, req.IDNo); err == nil && existing != nil {
		return nil, fmt.Errorf("wholesale client with id_no %q already exists", req.IDNo)
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check client id_no: %w", err)
	}

	client := &model.WholesaleClient{
		OrganizationID: orgID,
		TaxPercentage:  decimal.NewFromFloat(5.00),
		IsActive:       true,
		CreatedByID:    &actorID,
	}
	if err := applyClientRequest(client, req); err != nil {
		return nil, err
	}
	if err := s.wholesaleRepo.CreateClient(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create wholesale client: %w", err)
	}
	return client, nil
}

func (s *wholesaleService) UpdateClient(ctx context.Context, orgID, actorID, id uuid.UUID, req WholesaleClientRequest) (*model.WholesaleClient, error) {
	client, err := s.wholesaleRepo.FindClientByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load wholesale client: %w", err)
	}
	if err := applyClientRequest(client, req); err != nil {
		return nil, err
	}
	client.UpdatedByID = &actorID
	if err := s.wholesaleRepo.UpdateClient(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to update wholesale client: %w", err)
	}
	return client, nil
}

func (s *wholesaleService) ListClients(ctx context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.WholesaleClient, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.wholesaleRepo.ListClients(ctx, orgID, page, limit, search)
}

// --- Items ---

func applyItemRequest(item *model.WholesaleItem, req WholesaleItemRequest) error {
	money := func(name, value string, dst *decimal.Decimal) error {
		if value == "" {
			return nil
		}
		d, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = d
		return nil
	}
	if err := money("std_cost", req.StdCost, &item.StdCost); err != nil {
		return err
	}
	if err := money("selling_price_1", req.SellingPrice1, &item.SellingPrice1); err != nil {
		return err
	}
	if err := money("selling_price_2", req.SellingPrice2, &item.SellingPrice2); err != nil {
		return err
	}
	if err := money("selling_price_3", req.SellingPrice3, &item.SellingPrice3); err != nil {
		return err
	}
	if err := money("min_price", req.MinPrice, &item.MinPrice); err != nil {
		return err
	}
	if err := money("max_discount_percentage", req.MaxDiscountPercentage, &item.MaxDiscountPercentage); err != nil {
		return err
	}

	item.ItemCode = req.ItemCode
	item.ItemType = req.ItemType
	item.Group = req.Group
	item.Category = req.Category
	item.ItemName = req.ItemName
	item.Description = req.Description
	item.Brand = req.Brand
	item.Origin = req.Origin
	item.PartModelNo = req.PartModelNo
	item.Size = req.Size
	item.Color = req.Color
	item.BasicUnit = req.BasicUnit
	item.ReorderQty = req.ReorderQty
	return nil
}

func (s *wholesaleService) CreateItem(ctx context.Context, orgID, actorID uuid.UUID, req WholesaleItemRequest) (*model.WholesaleItem, error) {
	item := &model.WholesaleItem{
		OrganizationID: orgID,
		CreatedByID:    &actorID,
	}
	if err := applyItemRequest(item, req); err != nil {
		return nil, err
	}
	if err := s.wholesaleRepo.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create wholesale item: %w", err)
	}
	return item, nil
}

func (s *wholesaleService) UpdateItem(ctx context.Context, orgID, actorID, id uuid.UUID, req WholesaleItemRequest) (*model.WholesaleItem, error) {
	item, err := s.wholesaleRepo.FindItemByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load wholesale item: %w", err)
	}
	if err := applyItemRequest(item, req); err != nil {
		return nil, err
	}
	item.UpdatedByID = &actorID
	if err := s.wholesaleRepo.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update wholesale item: %w", err)
	}
	return item, nil
}

func (s *wholesaleService) ListItems(ctx context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.WholesaleItem, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.wholesaleRepo.ListItems(ctx, orgID, page, limit, search)
}

// --- Orders ---

// generateOrderNumber builds `WSO{ORG4}{year}{seq:05}`, with an NT marker
// for non-taxable orders.
func (s *wholesaleService) generateOrderNumber(ctx context.Context, org *model.Organization, year int, taxable bool) (string, error) {
	seq, err := s.sequenceRepo.NextValue(ctx, org.ID, model.SequenceScopeWholesaleOrder, year)
	if err != nil {
		return "", fmt.Errorf("failed to advance order sequence: %w", err)
	}
	marker := ""
	if !taxable {
		marker = "NT"
	}
	return fmt.Sprintf("WSO%s%s%d%05d", org.Prefix(), marker, year, seq), nil
}

// CreateOrder validates each line against the item's discount ceiling and
// reorder cap, then computes per-line discount and tax into the order
// totals. The client's denormalized totals are left to the reporting side.
func (s *wholesaleService) CreateOrder(ctx context.Context, orgID, actorID uuid.UUID, req CreateWholesaleOrderRequest) (*model.WholesaleOrder, error) {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("invalid client_id: %w", err)
	}

	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}

	orderDate := time.Now()
	if req.OrderDate != "" {
		orderDate, err = time.Parse("2006-01-02", req.OrderDate)
		if err != nil {
			return nil, fmt.Errorf("invalid order_date: %w", err)
		}
	}
	var dueDate *time.Time
	if req.PaymentDueDate != "" {
		d, err := time.Parse("2006-01-02", req.PaymentDueDate)
		if err != nil {
			return nil, fmt.Errorf("invalid payment_due_date: %w", err)
		}
		dueDate = &d
	}
	taxable := true
	if req.IsTaxable != nil {
		taxable = *req.IsTaxable
	}

	var order *model.WholesaleOrder
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		client, err := s.wholesaleRepo.FindClientByID(txCtx, orgID, clientID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load wholesale client: %w", err)
		}

		totalAmount := decimal.Zero
		totalDiscount := decimal.Zero
		totalTax := decimal.Zero
		hundred := decimal.NewFromInt(100)

		lines := make([]model.WholesaleOrderItem, 0, len(req.Items))
		for _, lineReq := range req.Items {
			itemID, err := uuid.Parse(lineReq.WholesaleItemID)
			if err != nil {
				return fmt.Errorf("invalid wholesale_item_id: %w", err)
			}
			item, err := s.wholesaleRepo.FindItemByID(txCtx, orgID, itemID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return fmt.Errorf("failed to load wholesale item: %w", err)
			}

			price, err := decimal.NewFromString(lineReq.SelectedSellingPrice)
			if err != nil {
				return fmt.Errorf("invalid selected_selling_price: %w", err)
			}
			discountPct := decimal.Zero
			if lineReq.DiscountPercentage != "" {
				discountPct, err = decimal.NewFromString(lineReq.DiscountPercentage)
				if err != nil {
					return fmt.Errorf("invalid discount_percentage: %w", err)
				}
			}

			if discountPct.GreaterThan(item.MaxDiscountPercentage) {
				return &DiscountExceededError{
					ItemCode: item.ItemCode,
					Given:    discountPct,
					Max:      item.MaxDiscountPercentage,
				}
			}
			if item.ReorderQty > 0 && lineReq.Quantity > item.ReorderQty {
				return &QuantityExceededError{
					ItemCode: item.ItemCode,
					Given:    lineReq.Quantity,
					Max:      item.ReorderQty,
				}
			}

			lineTotal := price.Mul(decimal.NewFromInt(int64(lineReq.Quantity)))
			lineDiscount := lineTotal.Mul(discountPct).Div(hundred)
			lineTax := decimal.Zero
			if taxable {
				lineTax = lineTotal.Sub(lineDiscount).Mul(client.TaxPercentage).Div(hundred)
			}

			totalAmount = totalAmount.Add(lineTotal)
			totalDiscount = totalDiscount.Add(lineDiscount)
			totalTax = totalTax.Add(lineTax)

			lines = append(lines, model.WholesaleOrderItem{
				WholesaleItemID:      item.ID,
				Quantity:             lineReq.Quantity,
				SelectedSellingPrice: price,
				DiscountPercentage:   discountPct,
			})
		}

		orderNo, err := s.generateOrderNumber(txCtx, org, orderDate.Year(), taxable)
		if err != nil {
			return err
		}

		order = &model.WholesaleOrder{
			OrganizationID: orgID,
			OrderNo:        orderNo,
			OrderDate:      orderDate,
			IsTaxable:      taxable,
			ClientID:       client.ID,
			TotalAmount:    totalAmount,
			TotalDiscount:  totalDiscount,
			TotalTax:       totalTax,
			TotalPayment:   totalAmount.Sub(totalDiscount).Add(totalTax),
			PaymentDueDate: dueDate,
			PaymentStatus:  model.WholesalePaymentPending,
			OrderStatus:    model.WholesaleOrderOpen,
			Remarks:        req.Remarks,
			Items:          lines,
			CreatedByID:    &actorID,
		}
		if err := s.wholesaleRepo.CreateOrder(txCtx, order); err != nil {
			return fmt.Errorf("failed to create wholesale order: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"order_no":      order.OrderNo,
			"client_id_no":  client.IDNo,
			"total_payment": order.TotalPayment.StringFixed(2),
			"items":         len(lines),
		})
		audit := &model.AuditLog{
			OrganizationID: orgID,
			UserID:         &actorID,
			Action:         model.ActionCreateWholesaleOrder,
			EntityID:       order.ID.String(),
			EntityName:     order.OrderNo,
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
	return order, nil
}

func (s *wholesaleService) GetOrder(ctx context.Context, orgID, id uuid.UUID) (*model.WholesaleOrder, error) {
	order, err := s.wholesaleRepo.FindOrderByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load wholesale order: %w", err)
	}
	return order, nil
}

func (s *wholesaleService) ListOrders(ctx context.Context, orgID uuid.UUID, page, limit int, orderStatus string) ([]model.WholesaleOrder, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.wholesaleRepo.ListOrders(ctx, orgID, page, limit, orderStatus)
}
