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

type InvoiceItemRequest struct {
	InventoryItemID string `json:"inventory_item_id" binding:"required"`
	Quantity        int    `json:"quantity" binding:"required,gt=0"`
}

type CreateInvoiceRequest struct {
	CustomerID   string               `json:"customer_id"` // Optional: existing customer takes precedence
	Customer     *CustomerRequest     `json:"customer"`
	Prescription *PrescriptionRequest `json:"prescription"`
	Items        []InvoiceItemRequest `json:"items" binding:"required,min=1,dive"`

	Date               string `json:"date"`          // YYYY-MM-DD, defaults to today
	DeliveryDate       string `json:"delivery_date"` // YYYY-MM-DD
	Remarks            string `json:"remarks"`
	Discount           string `json:"discount"`
	Advance            string `json:"advance"`
	AdvancePaymentMode string `json:"advance_payment_mode" binding:"omitempty,oneof=Cash Card Online Other"`
	TaxPercentage      string `json:"tax_percentage"`
	IsTaxable          *bool  `json:"is_taxable"`
}

type UpdateInvoiceRequest struct {
	Items         []InvoiceItemRequest `json:"items"` // nil leaves the item set untouched
	DeliveryDate  *string              `json:"delivery_date"`
	Remarks       *string              `json:"remarks"`
	Discount      *string              `json:"discount"`
	Advance       *string              `json:"advance"`
	TaxPercentage *string              `json:"tax_percentage"`
	IsTaxable     *bool                `json:"is_taxable"`
}

type InvoiceFilter struct {
	Status string
	Search string
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}

// --- Interface ---

type InvoiceService interface {
	Create(ctx context.Context, orgID, actorID uuid.UUID, req CreateInvoiceRequest) (*model.Invoice, error)
	Update(ctx context.Context, orgID, actorID, id uuid.UUID, req UpdateInvoiceRequest) (*model.Invoice, error)
	UpdateStatus(ctx context.Context, orgID, actorID, id uuid.UUID, status string) (*model.Invoice, error)
	Delete(ctx context.Context, orgID, actorID, id uuid.UUID) error
	Get(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, orgID uuid.UUID, filter InvoiceFilter) ([]model.Invoice, int64, error)
}

type invoiceService struct {
	invoiceRepo  repository.InvoiceRepository
	orgRepo      repository.OrganizationRepository
	sequenceRepo repository.SequenceRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	inventory    InventoryService
	customers    CustomerService
	orgService   OrganizationService
	notifier     Notifier
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	orgRepo repository.OrganizationRepository,
	sequenceRepo repository.SequenceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	inventory InventoryService,
	customers CustomerService,
	orgService OrganizationService,
	notifier Notifier,
) InvoiceService {
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		orgRepo:      orgRepo,
		sequenceRepo: sequenceRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		inventory:    inventory,
		customers:    customers,
		orgService:   orgService,
		notifier:     notifier,
	}
}

// --- Ledger arithmetic ---

// computeInvoiceTotal applies discount and, when taxable, tax on the
// discounted amount.
func computeInvoiceTotal(items []model.InvoiceItem, discount, taxPercentage decimal.Decimal, taxable bool) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.SaleValue.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	total := subtotal.Sub(discount)
	if taxable {
		total = total.Add(total.Mul(taxPercentage).Div(decimal.NewFromInt(100)))
	}
	return total
}

// paymentContribution is how much a ledger entry reduces the balance.
// Returns count against the customer, so they add to what is owed.
func paymentContribution(p model.InvoicePayment) decimal.Decimal {
	if p.PaymentType == model.PaymentTypeReturn {
		return p.Amount.Neg()
	}
	return p.Amount
}

// recomputeBalance derives the balance from the active payment set. The
// stored balance is never incremented in place.
func recomputeBalance(total decimal.Decimal, payments []model.InvoicePayment) decimal.Decimal {
	balance := total
	for _, p := range payments {
		if !p.IsActive {
			continue
		}
		balance = balance.Sub(paymentContribution(p))
	}
	return balance
}

// deriveStatus maps the ledger state onto the pre-delivery statuses.
// Delivered and Scrapped are staff-driven and never derived.
func deriveStatus(balance decimal.Decimal, payments []model.InvoicePayment) string {
	if balance.IsZero() {
		return model.InvoicePaid
	}
	for _, p := range payments {
		if p.IsActive {
			return model.InvoiceAdvanced
		}
	}
	return model.InvoiceCreated
}

func isTerminalStatus(status string) bool {
	return status == model.InvoiceDelivered || status == model.InvoiceScrapped
}

// generateInvoiceNumber builds `{ORG4}{year}{seq:05}`, with an NT marker
// after the prefix for non-taxable documents.
func (s *invoiceService) generateInvoiceNumber(ctx context.Context, org *model.Organization, year int, taxable bool) (string, error) {
	seq, err := s.sequenceRepo.NextValue(ctx, org.ID, model.SequenceScopeInvoice, year)
	if err != nil {
		return "", fmt.Errorf("failed to advance invoice sequence: %w", err)
	}
	marker := ""
	if !taxable {
		marker = "NT"
	}
	return fmt.Sprintf("%s%s%d%05d", org.Prefix(), marker, year, seq), nil
}

func parseMoney(name, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

func parseDate(name, value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return t, nil
}

// --- Implementation ---

func (s *invoiceService) Create(ctx context.Context, orgID, actorID uuid.UUID, req CreateInvoiceRequest) (*model.Invoice, error) {
	subType, ok, err := s.orgService.CanCreateInvoice(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &SubscriptionExpiredError{SubscriptionType: subType}
	}

	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}

	discount, err := parseMoney("discount", req.Discount)
	if err != nil {
		return nil, err
	}
	advance, err := parseMoney("advance", req.Advance)
	if err != nil {
		return nil, err
	}
	taxPercentage, err := parseMoney("tax_percentage", req.TaxPercentage)
	if err != nil {
		return nil, err
	}

	taxable := true
	if req.IsTaxable != nil {
		taxable = *req.IsTaxable
	}

	date := time.Now()
	if req.Date != "" {
		if date, err = parseDate("date", req.Date); err != nil {
			return nil, err
		}
	}
	var deliveryDate *time.Time
	if req.DeliveryDate != "" {
		d, err := parseDate("delivery_date", req.DeliveryDate)
		if err != nil {
			return nil, err
		}
		deliveryDate = &d
	}

	advanceMode := req.AdvancePaymentMode
	if advanceMode == "" {
		advanceMode = model.PaymentModeCash
	}

	var invoice *model.Invoice
	var depleted []model.InventoryItem
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		customer, err := s.resolveCustomer(txCtx, orgID, actorID, req)
		if err != nil {
			return err
		}

		var prescriptionID *uuid.UUID
		if req.Prescription != nil {
			p, err := s.customers.CreatePrescription(txCtx, orgID, actorID, customer.ID, *req.Prescription)
			if err != nil {
				return err
			}
			prescriptionID = &p.ID
		}

		items, drained, err := s.reserveAndSnapshot(txCtx, orgID, req.Items)
		if err != nil {
			return err
		}
		depleted = drained

		total := computeInvoiceTotal(items, discount, taxPercentage, taxable)
		balance := total.Sub(advance)
		if balance.IsNegative() {
			return ErrBalanceExceeded
		}

		number, err := s.generateInvoiceNumber(txCtx, org, date.Year(), taxable)
		if err != nil {
			return err
		}

		invoice = &model.Invoice{
			OrganizationID:     orgID,
			InvoiceNumber:      number,
			Date:               date,
			DeliveryDate:       deliveryDate,
			CustomerID:         customer.ID,
			PrescriptionID:     prescriptionID,
			Remarks:            req.Remarks,
			Discount:           discount,
			Advance:            advance,
			AdvancePaymentMode: advanceMode,
			TaxPercentage:      taxPercentage,
			IsTaxable:          taxable,
			Total:              total,
			Balance:            balance,
			IsActive:           true,
			CreatedByID:        &actorID,
		}
		if err := s.invoiceRepo.Create(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		for i := range items {
			items[i].InvoiceID = invoice.ID
		}
		if err := s.invoiceRepo.ReplaceItems(txCtx, invoice.ID, items); err != nil {
			return fmt.Errorf("failed to create invoice items: %w", err)
		}

		var payments []model.InvoicePayment
		if advance.IsPositive() {
			payment := model.InvoicePayment{
				OrganizationID: orgID,
				InvoiceID:      invoice.ID,
				InvoiceNumber:  invoice.InvoiceNumber,
				Amount:         advance,
				PaymentType:    model.PaymentTypeAdvance,
				PaymentMode:    advanceMode,
				IsActive:       true,
				CreatedByID:    &actorID,
			}
			if err := s.invoiceRepo.CreatePayment(txCtx, &payment); err != nil {
				return fmt.Errorf("failed to create advance payment: %w", err)
			}
			payments = append(payments, payment)
		}

		invoice.Status = deriveStatus(balance, payments)
		if err := s.invoiceRepo.Update(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to finalize invoice: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"invoice_number": invoice.InvoiceNumber,
			"total":          invoice.Total.StringFixed(2),
			"advance":        advance.StringFixed(2),
			"items":          len(items),
		})
		audit := &model.AuditLog{
			OrganizationID: orgID,
			UserID:         &actorID,
			Action:         model.ActionCreateInvoice,
			EntityID:       invoice.ID.String(),
			EntityName:     invoice.InvoiceNumber,
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

	if s.notifier != nil {
		s.notifier.Notify(EventInvoiceCreated, map[string]interface{}{
			"invoice_id":     invoice.ID.String(),
			"invoice_number": invoice.InvoiceNumber,
			"total":          invoice.Total.StringFixed(2),
			"status":         invoice.Status,
		})
	}
	s.inventory.NotifyStockOut(depleted)

	return s.Get(ctx, orgID, invoice.ID)
}

func (s *invoiceService) resolveCustomer(txCtx context.Context, orgID, actorID uuid.UUID, req CreateInvoiceRequest) (*model.Customer, error) {
	if req.CustomerID != "" {
		id, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("invalid customer_id: %w", err)
		}
		return s.customers.GetCustomer(txCtx, orgID, id)
	}
	if req.Customer == nil {
		return nil, errors.New("either customer_id or customer is required")
	}
	return s.customers.ResolveCustomer(txCtx, orgID, actorID, *req.Customer)
}

// reserveAndSnapshot locks and decrements stock per line and freezes the
// item's current prices into snapshots. Items drained to zero are returned
// separately; the caller announces them only after the transaction commits.
func (s *invoiceService) reserveAndSnapshot(txCtx context.Context, orgID uuid.UUID, lines []InvoiceItemRequest) ([]model.InvoiceItem, []model.InventoryItem, error) {
	items := make([]model.InvoiceItem, 0, len(lines))
	var depleted []model.InventoryItem
	for _, line := range lines {
		itemID, err := uuid.Parse(line.InventoryItemID)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid inventory_item_id: %w", err)
		}
		stock, err := s.inventory.Reserve(txCtx, orgID, itemID, line.Quantity)
		if err != nil {
			return nil, nil, err
		}
		if stock.Qty == 0 {
			depleted = append(depleted, *stock)
		}
		items = append(items, model.InvoiceItem{
			InventoryItemID: stock.ID,
			Quantity:        line.Quantity,
			SaleValue:       stock.SaleValue,
			CostValue:       stock.CostValue,
		})
	}
	return items, depleted, nil
}

func (s *invoiceService) Update(ctx context.Context, orgID, actorID, id uuid.UUID, req UpdateInvoiceRequest) (*model.Invoice, error) {
	var depleted []model.InventoryItem
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.invoiceRepo.FindByIDForUpdate(txCtx, orgID, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock invoice: %w", err)
		}
		invoice, err := s.invoiceRepo.FindByIDWithDetails(txCtx, orgID, id)
		if err != nil {
			return fmt.Errorf("failed to load invoice: %w", err)
		}
		if isTerminalStatus(invoice.Status) {
			return ErrInvoiceClosed
		}

		if req.Remarks != nil {
			invoice.Remarks = *req.Remarks
		}
		if req.DeliveryDate != nil {
			if *req.DeliveryDate == "" {
				invoice.DeliveryDate = nil
			} else {
				d, err := parseDate("delivery_date", *req.DeliveryDate)
				if err != nil {
					return err
				}
				invoice.DeliveryDate = &d
			}
		}
		if req.Discount != nil {
			discount, err := parseMoney("discount", *req.Discount)
			if err != nil {
				return err
			}
			invoice.Discount = discount
		}
		if req.TaxPercentage != nil {
			taxPercentage, err := parseMoney("tax_percentage", *req.TaxPercentage)
			if err != nil {
				return err
			}
			invoice.TaxPercentage = taxPercentage
		}
		if req.IsTaxable != nil {
			invoice.IsTaxable = *req.IsTaxable
		}

		items := invoice.Items
		if req.Items != nil {
			// Whole-set replacement: release every current reservation,
			// then reserve and snapshot the new lines.
			for _, old := range invoice.Items {
				if _, err := s.inventory.Restore(txCtx, orgID, old.InventoryItemID, old.Quantity); err != nil {
					return err
				}
			}
			var drained []model.InventoryItem
			items, drained, err = s.reserveAndSnapshot(txCtx, orgID, req.Items)
			if err != nil {
				return err
			}
			depleted = drained
			for i := range items {
				items[i].InvoiceID = invoice.ID
			}
			if err := s.invoiceRepo.ReplaceItems(txCtx, invoice.ID, items); err != nil {
				return fmt.Errorf("failed to replace invoice items: %w", err)
			}
		}

		invoice.Total = computeInvoiceTotal(items, invoice.Discount, invoice.TaxPercentage, invoice.IsTaxable)

		if req.Advance != nil {
			advance, err := parseMoney("advance", *req.Advance)
			if err != nil {
				return err
			}
			if err := s.syncAdvancePayment(txCtx, invoice, advance, actorID); err != nil {
				return err
			}
			invoice.Advance = advance
		}

		payments, err := s.invoiceRepo.ListPayments(txCtx, orgID, invoice.ID)
		if err != nil {
			return fmt.Errorf("failed to load payments: %w", err)
		}
		balance := recomputeBalance(invoice.Total, payments)
		if balance.IsNegative() {
			return ErrBalanceExceeded
		}
		invoice.Balance = balance
		invoice.Status = deriveStatus(balance, payments)
		invoice.UpdatedByID = &actorID

		if err := s.invoiceRepo.Update(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"total":   invoice.Total.StringFixed(2),
			"balance": invoice.Balance.StringFixed(2),
			"status":  invoice.Status,
		})
		audit := &model.AuditLog{
			OrganizationID: orgID,
			UserID:         &actorID,
			Action:         model.ActionUpdateInvoice,
			EntityID:       invoice.ID.String(),
			EntityName:     invoice.InvoiceNumber,
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

	invoice, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.Notify(EventInvoiceUpdated, map[string]interface{}{
			"invoice_id":     invoice.ID.String(),
			"invoice_number": invoice.InvoiceNumber,
			"status":         invoice.Status,
		})
	}
	s.inventory.NotifyStockOut(depleted)
	return invoice, nil
}

// syncAdvancePayment aligns the Advance ledger entry with a changed advance
// amount. This is the single permitted mutation of an active payment.
func (s *invoiceService) syncAdvancePayment(txCtx context.Context, invoice *model.Invoice, advance decimal.Decimal, actorID uuid.UUID) error {
	var existing *model.InvoicePayment
	payments, err := s.invoiceRepo.ListPayments(txCtx, invoice.OrganizationID, invoice.ID)
	if err != nil {
		return fmt.Errorf("failed to load payments: %w", err)
	}
	for i := range payments {
		if payments[i].PaymentType == model.PaymentTypeAdvance && payments[i].IsActive {
			existing = &payments[i]
			break
		}
	}

	switch {
	case existing == nil && advance.IsPositive():
		payment := model.InvoicePayment{
			OrganizationID: invoice.OrganizationID,
			InvoiceID:      invoice.ID,
			InvoiceNumber:  invoice.InvoiceNumber,
			Amount:         advance,
			PaymentType:    model.PaymentTypeAdvance,
			PaymentMode:    invoice.AdvancePaymentMode,
			IsActive:       true,
			CreatedByID:    &actorID,
		}
		if err := s.invoiceRepo.CreatePayment(txCtx, &payment); err != nil {
			return fmt.Errorf("failed to create advance payment: %w", err)
		}
	case existing != nil && !existing.Amount.Equal(advance):
		if advance.IsZero() {
			existing.IsActive = false
		} else {
			existing.Amount = advance
		}
		existing.UpdatedByID = &actorID
		if err := s.invoiceRepo.UpdatePayment(txCtx, existing); err != nil {
			return fmt.Errorf("failed to adjust advance payment: %w", err)
		}
	}
	return nil
}

func (s *invoiceService) UpdateStatus(ctx context.Context, orgID, actorID, id uuid.UUID, status string) (*model.Invoice, error) {
	if status != model.InvoiceDelivered && status != model.InvoiceScrapped {
		return nil, ErrInvalidStatusChange
	}

	var invoice *model.Invoice
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		invoice, err = s.invoiceRepo.FindByIDForUpdate(txCtx, orgID, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock invoice: %w", err)
		}
		if isTerminalStatus(invoice.Status) {
			return ErrInvoiceClosed
		}
		if status == model.InvoiceDelivered && invoice.Status != model.InvoicePaid {
			return ErrInvalidStatusChange
		}

		previous := invoice.Status
		invoice.Status = status
		invoice.UpdatedByID = &actorID
		if err := s.invoiceRepo.Update(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to update invoice status: %w", err)
		}

		audit := &model.AuditLog{
			OrganizationID: orgID,
			UserID:         &actorID,
			Action:         model.ActionInvoiceStatusChange,
			EntityID:       invoice.ID.String(),
			EntityName:     invoice.InvoiceNumber,
			Details:        fmt.Sprintf(`{"from":%q,"to":%q}`, previous, status),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// Delete soft-deletes the invoice header. Reserved stock is not restored.
func (s *invoiceService) Delete(ctx context.Context, orgID, actorID, id uuid.UUID) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoiceRepo.FindByIDForUpdate(txCtx, orgID, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock invoice: %w", err)
		}

		invoice.IsActive = false
		invoice.UpdatedByID = &actorID
		if err := s.invoiceRepo.Update(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}

		audit := &model.AuditLog{
			OrganizationID: orgID,
			UserID:         &actorID,
			Action:         model.ActionDeleteInvoice,
			EntityID:       invoice.ID.String(),
			EntityName:     invoice.InvoiceNumber,
			Details:        `{"deleted": true}`,
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
}

func (s *invoiceService) Get(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByIDWithDetails(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	return invoice, nil
}

func (s *invoiceService) List(ctx context.Context, orgID uuid.UUID, filter InvoiceFilter) ([]model.Invoice, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	return s.invoiceRepo.List(ctx, orgID, filter.Page, filter.Limit, filter.Status, filter.Search, filter.From, filter.To)
}
