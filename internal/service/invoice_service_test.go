package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"opticinvoicer/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	orgID   uuid.UUID
	actorID uuid.UUID

	orgRepo       *fakeOrgRepo
	customerRepo  *fakeCustomerRepo
	inventoryRepo *fakeInventoryRepo
	invoiceRepo   *fakeInvoiceRepo
	wholesaleRepo *fakeWholesaleRepo
	auditRepo     *fakeAuditRepo
	notifier      *recordingNotifier

	orgs      OrganizationService
	customers CustomerService
	inventory InventoryService
	invoices  InvoiceService
	payments  PaymentService
	wholesale WholesaleService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	env := &testEnv{
		actorID:       uuid.New(),
		orgRepo:       newFakeOrgRepo(),
		customerRepo:  newFakeCustomerRepo(),
		inventoryRepo: newFakeInventoryRepo(),
		invoiceRepo:   newFakeInvoiceRepo(),
		wholesaleRepo: newFakeWholesaleRepo(),
		auditRepo:     &fakeAuditRepo{},
		notifier:      &recordingNotifier{},
	}

	org := &model.Organization{Name: "Lens Craft Optics", Email: "ops@lenscraft.test", IsActive: true}
	require.NoError(t, env.orgRepo.Create(ctx, org))
	env.orgID = org.ID

	trialEnd := time.Now().Add(14 * 24 * time.Hour)
	require.NoError(t, env.orgRepo.CreateSubscription(ctx, &model.Subscription{
		OrganizationID:   org.ID,
		SubscriptionType: model.SubscriptionTrial,
		Status:           model.SubscriptionStatusTrial,
		TrialEndDate:     &trialEnd,
		IsActive:         true,
	}))

	sequenceRepo := newFakeSequenceRepo()
	txManager := &fakeTxManager{repos: []snapshotter{
		env.orgRepo, env.customerRepo, env.inventoryRepo, env.invoiceRepo,
		env.wholesaleRepo, env.auditRepo, sequenceRepo,
	}}
	statsRepo := &fakeStatsRepo{counts: map[string]int64{}, monthly: map[string][]model.MonthlyStat{}}

	env.orgs = NewOrganizationService(env.orgRepo, statsRepo, zap.NewNop())
	env.customers = NewCustomerService(env.customerRepo, env.auditRepo, txManager)
	env.inventory = NewInventoryService(env.inventoryRepo, env.orgRepo, sequenceRepo, env.auditRepo, txManager, env.notifier)
	env.invoices = NewInvoiceService(env.invoiceRepo, env.orgRepo, sequenceRepo, env.auditRepo, txManager,
		env.inventory, env.customers, env.orgs, env.notifier)
	env.payments = NewPaymentService(env.invoiceRepo, env.auditRepo, txManager, env.notifier)
	env.wholesale = NewWholesaleService(env.wholesaleRepo, env.orgRepo, sequenceRepo, env.auditRepo, txManager)
	return env
}

func (env *testEnv) addStock(t *testing.T, name string, qty int, saleValue, costValue string) *model.InventoryItem {
	t.Helper()
	item, err := env.inventory.CreateItem(context.Background(), env.orgID, env.actorID, InventoryItemRequest{
		Name:      name,
		ItemType:  model.ItemTypeFrames,
		Qty:       qty,
		SaleValue: saleValue,
		CostValue: costValue,
	})
	require.NoError(t, err)
	return item
}

func walkInCustomer(phone string) *CustomerRequest {
	return &CustomerRequest{Phone: phone, FirstName: "Nadia", LastName: "Rahim"}
}

func TestCreateInvoiceWithAdvance(t *testing.T) {
	env := newTestEnv(t)
	item := env.addStock(t, "Titanium Frame", 5, "90.00", "40.00")

	notTaxable := false
	invoice, err := env.invoices.Create(context.Background(), env.orgID, env.actorID, CreateInvoiceRequest{
		Customer:  walkInCustomer("0501112233"),
		Items:     []InvoiceItemRequest{{InventoryItemID: item.ID.String(), Quantity: 2}},
		Advance:   "50",
		IsTaxable: &notTaxable,
	})
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("LENSNT%d00001", time.Now().Year()), invoice.InvoiceNumber)
	assert.Equal(t, "180.00", invoice.Total.StringFixed(2))
	assert.Equal(t, "130.00", invoice.Balance.StringFixed(2))
	assert.Equal(t, model.InvoiceAdvanced, invoice.Status)

	require.Len(t, invoice.Payments, 1)
	assert.Equal(t, model.PaymentTypeAdvance, invoice.Payments[0].PaymentType)
	assert.Equal(t, "50.00", invoice.Payments[0].Amount.StringFixed(2))
	assert.True(t, invoice.Payments[0].IsActive)

	stock, err := env.inventory.GetItem(context.Background(), env.orgID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stock.Qty)
}

func TestCreateInvoiceTaxableTotals(t *testing.T) {
	env := newTestEnv(t)
	item := env.addStock(t, "Progressive Lens", 10, "100.00", "55.00")

	invoice, err := env.invoices.Create(context.Background(), env.orgID, env.actorID, CreateInvoiceRequest{
		Customer:      walkInCustomer("0502223344"),
		Items:         []InvoiceItemRequest{{InventoryItemID: item.ID.String(), Quantity: 2}},
		Discount:      "20",
		TaxPercentage: "5",
	})
	require.NoError(t, err)

	// (200 - 20) + 5% tax on the discounted amount
	assert.Equal(t, "189.00", invoice.Total.StringFixed(2))
	assert.Equal(t, "189.00", invoice.Balance.StringFixed(2))
	assert.Equal(t, model.InvoiceCreated, invoice.Status)
	assert.Equal(t, fmt.Sprintf("LENS%d00001", time.Now().Year()), invoice.InvoiceNumber)
	assert.Empty(t, invoice.Payments)
}

func TestCreateInvoiceFullAdvanceIsPaid(t *testing.T) {
	env := newTestEnv(t)
	item := env.addStock(t, "Reading Glasses", 4, "60.00", "25.00")

	notTaxable := false
	invoice, err := env.invoices.Create(context.Background(), env.orgID, env.actorID, CreateInvoiceRequest{
		Customer:  walkInCustomer("0503334455"),
		Items:     []InvoiceItemRequest{{InventoryItemID: item.ID.String(), Quantity: 1}},
		Advance:   "60",
		IsTaxable: &notTaxable,
	})
	require.NoError(t, err)

	assert.Equal(t, model.InvoicePaid, invoice.Status)
	assert.True(t, invoice.Balance.IsZero())
}

func TestCreateInvoiceAdvanceExceedsTotal(t *testing.T) {
	env := newTestEnv(t)
	item := env.addStock(t, "Case", 3, "10.00", "4.00")

	notTaxable := false
	_, err := env.invoices.Create(context.Background(), env.orgID, env.actorID, CreateInvoiceRequest{
		Customer:  walkInCustomer("0504445566"),
		Items:     []InvoiceItemRequest{{InventoryItemID: item.ID.String(), Quantity: 1}},
		Advance:   "25",
		IsTaxable: &notTaxable,
	})
	assert.ErrorIs(t, err, ErrBalanceExceeded)
}

func TestCreateInvoiceInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	item := env.addStock(t, "Aviator Frame", 2, "120.00", "70.00")

	_, err := env.invoices.Create(context.Background(), env.orgID, env.actorID, CreateInvoiceRequest{
		Customer: walkInCustomer("0505556677"),
		Items:    []InvoiceItemRequest{{InventoryItemID: item.ID.String(), Quantity: 5}},
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)
}

func TestCreateInvoicePartialStockFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	frame := env.addStock(t, "Wayfarer Frame", 5, "90.00", "40.00")
	lens := env.addStock(t, "Photochromic Lens", 1, "60.00", "25.00")

	_, err := env.invoices.Create(context.Background(), env.orgID, env.actorID, CreateInvoiceRequest{
		Customer: walkInCustomer("0508889900"),
		Items: []InvoiceItemRequest{
			{InventoryItemID: frame.ID.String(), Quantity: 2},
			{InventoryItemID: lens.ID.String(), Quantity: 3},
		},
	})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, lens.SKU, stockErr.SKU)

	// The first line's reservation is undone with the rest of the transaction.
	reloaded, err := env.inventory.GetItem(context.Background(), env.orgID, frame.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.Qty)

	invoices, total, err := env.invoices.List(context.Background(), env.orgID, InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, invoices)
	assert.Zero(t, total)

	// The walk-in customer resolved inside the transaction is gone too.
	customers, _, err := env.customers.ListCustomers(context.Background(), env.orgID, 1, 20, "")
	require.NoError(t, err)
	assert.Empty(t, customers)

	assert.NotContains(t, env.notifier.events, EventStockOut)
}

func TestCreateInvoiceDepletingStockNotifiesAfterCommit(t *testing.T) {
	env := newTestEnv(t)
	item := env.addStock(t, "Limited Frame", 2, "150.00", "80.00")

	_, err := env.invoices.Create(context.Background(), env.orgID, env.actorID, CreateInvoiceRequest{
		Customer: walkInCustomer("0509990011"),
		Items:    []InvoiceItemRequest{{InventoryItemID: item.ID.String(), Quantity: 2}},
	})
	require.NoError(t, err)

	assert.Contains(t, env.notifier.events, EventStockOut)

	reloaded, err := env.inventory.GetItem(context.Background(), env.orgID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InventoryOutOfStock, reloaded.Status)
}

func TestCreateInvoiceSubscriptionExpired(t *testing.T) {
	env := newTestEnv(t)
	item := env.addStock(t, "Frame", 5, "90.00", "40.00")

	sub, err := env.orgRepo.FindActiveSubscription(context.Background(), env.orgID)
	require.NoError(t, err)
	expired := time.Now().Add(-24 * time.Hour)
	sub.TrialEndDate = &expired
	require.NoError(t, env.orgRepo.UpdateSubscription(context.Background(), sub))

	_, err = env.invoices.Create(context.Background(), env.orgID, env.actorID, CreateInvoiceRequest{
		Customer: walkInCustomer("0506667788"),
		Items:    []InvoiceItemRequest{{InventoryItemID: item.ID.String(), Quantity: 1}},
	})

	var subErr *SubscriptionExpiredError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, model.SubscriptionTrial, subErr.SubscriptionType)
}

func TestCreateInvoiceSequencePerYear(t *testing.T) {
	env := newTestEnv(t)
	item := env.addStock(t, "Frame", 10, "50.00", "20.00")

	first, err := env.invoices.Create(context.Background(), env.orgID, env.actorID, CreateInvoiceRequest{
		Customer: walkInCustomer("0507778899"),
		Items:    []InvoiceItemRequest{{InventoryItemID: item.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)
	second, err := env.invoices.Create(context.Background(), env.orgID, env.actorID, CreateInvoiceRequest{
		CustomerID: first.CustomerID.String(),
		Items:      []InvoiceItemRequest{{InventoryItemID: item.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	year := time.Now().Year()
	assert.Equal(t, fmt.Sprintf("LENS%d00001", year), first.InvoiceNumber)
	assert.Equal(t, fmt.Sprintf("LENS%d00002", year), second.InvoiceNumber)
}

func TestInvoiceItemsSnapshotPrices(t *testing.T) {
	env := newTestEnv(t)
	item := env.addStock(t, "Frame", 5, "90.00", "40.00")

	invoice, err := env.invoices.Create(context.Background(), env.orgID, env.actorID, CreateInvoiceRequest{
		Customer: walkInCustomer("0508889900"),
		Items:    []InvoiceItemRequest{{InventoryItemID: item.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	// Reprice the item after the sale; the invoice keeps the old prices.
	_, err = env.inventory.UpdateItem(context.Background(), env.orgID, env.actorID, item.ID, InventoryItemRequest{
		Name:      item.Name,
		Qty:       4,
		SaleValue: "150.00",
		CostValue: "80.00",
	})
	require.NoError(t, err)

	reloaded, err := env.invoices.Get(context.Background(), env.orgID, invoice.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, "90.00", reloaded.Items[0].SaleValue.StringFixed(2))
	assert.Equal(t, "40.00", reloaded.Items[0].CostValue.StringFixed(2))
}

func TestUpdateInvoiceReplacesItemSet(t *testing.T) {
	env := newTestEnv(t)
	frame := env.addStock(t, "Frame", 5, "90.00", "40.00")
	lens := env.addStock(t, "Lens", 8, "70.00", "30.00")

	notTaxable := false
	invoice, err := env.invoices.Create(context.Background(), env.orgID, env.actorID, CreateInvoiceRequest{
		Customer:  walkInCustomer("0509990011"),
		Items:     []InvoiceItemRequest{{InventoryItemID: frame.ID.String(), Quantity: 2}},
		IsTaxable: &notTaxable,
	})
	require.NoError(t, err)

	updated, err := env.invoices.Update(context.Background(), env.orgID, env.actorID, invoice.ID, UpdateInvoiceRequest{
		Items: []InvoiceItemRequest{{InventoryItemID: lens.ID.String(), Quantity: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, "210.00", updated.Total.StringFixed(2))
	require.Len(t, updated.Items, 1)
	assert.Equal(t, lens.ID, updated.Items[0].InventoryItemID)

	frameStock, err := env.inventory.GetItem(context.Background(), env.orgID, frame.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, frameStock.Qty, "released reservation returns to stock")
	lensStock, err := env.inventory.GetItem(context.Background(), env.orgID, lens.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, lensStock.Qty)
}

func TestUpdateInvoiceAdvanceSync(t *testing.T) {
	env := newTestEnv(t)
	item := env.addStock(t, "Frame", 5, "90.00", "40.00")

	notTaxable := false
	invoice, err := env.invoices.Create(context.Background(), env.orgID, env.actorID, CreateInvoiceRequest{
		Customer:  walkInCustomer("0501010101"),
		Items:     []InvoiceItemRequest{{InventoryItemID: item.ID.String(), Quantity: 2}},
		Advance:   "50",
		IsTaxable: &notTaxable,
	})
	require.NoError(t, err)

	raised := "80"
	updated, err := env.invoices.Update(context.Background(), env.orgID, env.actorID, invoice.ID, UpdateInvoiceRequest{
		Advance: &raised,
	})
	require.NoError(t, err)
	assert.Equal(t, "100.00", updated.Balance.StringFixed(2))
	require.Len(t, updated.Payments, 1)
	assert.Equal(t, "80.00", updated.Payments[0].Amount.StringFixed(2))
	assert.True(t, updated.Payments[0].IsActive)

	cleared := "0"
	updated, err = env.invoices.Update(context.Background(), env.orgID, env.actorID, invoice.ID, UpdateInvoiceRequest{
		Advance: &cleared,
	})
	require.NoError(t, err)
	assert.Equal(t, "180.00", updated.Balance.StringFixed(2))
	assert.Equal(t, model.InvoiceCreated, updated.Status)
	require.Len(t, updated.Payments, 1)
	assert.False(t, updated.Payments[0].IsActive, "zeroed advance voids its ledger entry")
}

func TestUpdateInvoiceClosedRejected(t *testing.T) {
	env := newTestEnv(t)
	item := env.addStock(t, "Frame", 5, "60.00", "25.00")

	notTaxable := false
	invoice, err := env.invoices.Create(context.Background(), env.orgID, env.actorID, CreateInvoiceRequest{
		Customer:  walkInCustomer("0502020202"),
		Items:     []InvoiceItemRequest{{InventoryItemID: item.ID.String(), Quantity: 1}},
		Advance:   "60",
		IsTaxable: &notTaxable,
	})
	require.NoError(t, err)

	_, err = env.invoices.UpdateStatus(context.Background(), env.orgID, env.actorID, invoice.ID, model.InvoiceDelivered)
	require.NoError(t, err)

	remarks := "late edit"
	_, err = env.invoices.Update(context.Background(), env.orgID, env.actorID, invoice.ID, UpdateInvoiceRequest{
		Remarks: &remarks,
	})
	assert.ErrorIs(t, err, ErrInvoiceClosed)
}

func TestUpdateStatusDeliveredRequiresPaid(t *testing.T) {
	env := newTestEnv(t)
	item := env.addStock(t, "Frame", 5, "90.00", "40.00")

	invoice, err := env.invoices.Create(context.Background(), env.orgID, env.actorID, CreateInvoiceRequest{
		Customer: walkInCustomer("0503030303"),
		Items:    []InvoiceItemRequest{{InventoryItemID: item.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = env.invoices.UpdateStatus(context.Background(), env.orgID, env.actorID, invoice.ID, model.InvoiceDelivered)
	assert.ErrorIs(t, err, ErrInvalidStatusChange)

	// Scrapping an unpaid invoice is allowed.
	scrapped, err := env.invoices.UpdateStatus(context.Background(), env.orgID, env.actorID, invoice.ID, model.InvoiceScrapped)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceScrapped, scrapped.Status)

	// Terminal statuses never transition again.
	_, err = env.invoices.UpdateStatus(context.Background(), env.orgID, env.actorID, invoice.ID, model.InvoiceDelivered)
	assert.ErrorIs(t, err, ErrInvoiceClosed)
}

func TestUpdateStatusRejectsDerivedStatuses(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.invoices.UpdateStatus(context.Background(), env.orgID, env.actorID, uuid.New(), model.InvoicePaid)
	assert.ErrorIs(t, err, ErrInvalidStatusChange)
}

func TestDeleteInvoiceHidesFromList(t *testing.T) {
	env := newTestEnv(t)
	item := env.addStock(t, "Frame", 5, "90.00", "40.00")

	invoice, err := env.invoices.Create(context.Background(), env.orgID, env.actorID, CreateInvoiceRequest{
		Customer: walkInCustomer("0504040404"),
		Items:    []InvoiceItemRequest{{InventoryItemID: item.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, env.invoices.Delete(context.Background(), env.orgID, env.actorID, invoice.ID))

	listed, total, err := env.invoices.List(context.Background(), env.orgID, InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, listed)
	assert.Zero(t, total)
}

func TestCreateInvoiceRequiresCustomer(t *testing.T) {
	env := newTestEnv(t)
	item := env.addStock(t, "Frame", 5, "90.00", "40.00")

	_, err := env.invoices.Create(context.Background(), env.orgID, env.actorID, CreateInvoiceRequest{
		Items: []InvoiceItemRequest{{InventoryItemID: item.ID.String(), Quantity: 1}},
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestCreateInvoiceOtherTenantStockRejected(t *testing.T) {
	env := newTestEnv(t)
	other := newTestEnv(t)
	foreign := other.addStock(t, "Foreign Frame", 5, "90.00", "40.00")

	_, err := env.invoices.Create(context.Background(), env.orgID, env.actorID, CreateInvoiceRequest{
		Customer: walkInCustomer("0505050505"),
		Items:    []InvoiceItemRequest{{InventoryItemID: foreign.ID.String(), Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}
