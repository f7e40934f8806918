package service

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"opticinvoicer/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory repository implementations backing the service tests. They
// mimic the persistence contracts closely enough that the services cannot
// tell them apart from the gorm-backed ones: missing rows surface as
// gorm.ErrRecordNotFound, creates assign IDs, reads return copies so a
// caller mutation is only visible after an explicit update, and a failed
// transaction rolls every enlisted repository back to its pre-transaction
// state.

// snapshotter captures a repository's full state and hands back the
// function that restores it.
type snapshotter interface {
	snapshot() (restore func())
}

type fakeTxManager struct {
	repos []snapshotter
}

func (f *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	restores := make([]func(), 0, len(f.repos))
	for _, r := range f.repos {
		restores = append(restores, r.snapshot())
	}
	if err := fn(ctx); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

type fakeSequenceRepo struct {
	mu     sync.Mutex
	values map[string]int64
}

func newFakeSequenceRepo() *fakeSequenceRepo {
	return &fakeSequenceRepo{values: map[string]int64{}}
}

func (f *fakeSequenceRepo) NextValue(_ context.Context, orgID uuid.UUID, scope string, year int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s/%s/%d", orgID, scope, year)
	f.values[key]++
	return f.values[key], nil
}

func (f *fakeSequenceRepo) snapshot() func() {
	f.mu.Lock()
	values := maps.Clone(f.values)
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.values = values
		f.mu.Unlock()
	}
}

type fakeOrgRepo struct {
	orgs map[uuid.UUID]model.Organization
	subs []model.Subscription
}

func newFakeOrgRepo() *fakeOrgRepo {
	return &fakeOrgRepo{orgs: map[uuid.UUID]model.Organization{}}
}

func (f *fakeOrgRepo) snapshot() func() {
	orgs, subs := maps.Clone(f.orgs), slices.Clone(f.subs)
	return func() { f.orgs, f.subs = orgs, subs }
}

func (f *fakeOrgRepo) Create(_ context.Context, org *model.Organization) error {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	f.orgs[org.ID] = *org
	return nil
}

func (f *fakeOrgRepo) Update(_ context.Context, org *model.Organization) error {
	f.orgs[org.ID] = *org
	return nil
}

func (f *fakeOrgRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Organization, error) {
	org, ok := f.orgs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &org, nil
}

func (f *fakeOrgRepo) CreateSubscription(_ context.Context, sub *model.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	f.subs = append(f.subs, *sub)
	return nil
}

func (f *fakeOrgRepo) UpdateSubscription(_ context.Context, sub *model.Subscription) error {
	for i := range f.subs {
		if f.subs[i].ID == sub.ID {
			f.subs[i] = *sub
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeOrgRepo) FindActiveSubscription(_ context.Context, orgID uuid.UUID) (*model.Subscription, error) {
	for i := len(f.subs) - 1; i >= 0; i-- {
		if f.subs[i].OrganizationID == orgID && f.subs[i].IsActive {
			sub := f.subs[i]
			return &sub, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeCustomerRepo struct {
	customers     map[uuid.UUID]model.Customer
	prescriptions []model.Prescription
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: map[uuid.UUID]model.Customer{}}
}

func (f *fakeCustomerRepo) snapshot() func() {
	customers, prescriptions := maps.Clone(f.customers), slices.Clone(f.prescriptions)
	return func() { f.customers, f.prescriptions = customers, prescriptions }
}

func (f *fakeCustomerRepo) Create(_ context.Context, customer *model.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	f.customers[customer.ID] = *customer
	return nil
}

func (f *fakeCustomerRepo) Update(_ context.Context, customer *model.Customer) error {
	f.customers[customer.ID] = *customer
	return nil
}

func (f *fakeCustomerRepo) FindByID(_ context.Context, orgID, id uuid.UUID) (*model.Customer, error) {
	c, ok := f.customers[id]
	if !ok || c.OrganizationID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (f *fakeCustomerRepo) FindActiveByPhone(_ context.Context, orgID uuid.UUID, phone string) (*model.Customer, error) {
	for _, c := range f.customers {
		if c.OrganizationID == orgID && c.IsActive && c.Phone == phone {
			match := c
			return &match, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCustomerRepo) FindActiveByEmail(_ context.Context, orgID uuid.UUID, email string) (*model.Customer, error) {
	for _, c := range f.customers {
		if c.OrganizationID == orgID && c.IsActive && c.Email == email {
			match := c
			return &match, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCustomerRepo) List(_ context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.Customer, int64, error) {
	var out []model.Customer
	for _, c := range f.customers {
		if c.OrganizationID != orgID || !c.IsActive {
			continue
		}
		if search != "" && !strings.Contains(c.FirstName, search) && !strings.Contains(c.Phone, search) {
			continue
		}
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (f *fakeCustomerRepo) CreatePrescription(_ context.Context, p *model.Prescription) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.prescriptions = append(f.prescriptions, *p)
	return nil
}

func (f *fakeCustomerRepo) UpdatePrescription(_ context.Context, p *model.Prescription) error {
	for i := range f.prescriptions {
		if f.prescriptions[i].ID == p.ID {
			f.prescriptions[i] = *p
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeCustomerRepo) FindPrescriptionByID(_ context.Context, orgID, id uuid.UUID) (*model.Prescription, error) {
	for _, p := range f.prescriptions {
		if p.ID == id && p.OrganizationID == orgID {
			match := p
			return &match, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCustomerRepo) ListPrescriptions(_ context.Context, orgID, customerID uuid.UUID) ([]model.Prescription, error) {
	var out []model.Prescription
	for _, p := range f.prescriptions {
		if p.OrganizationID == orgID && p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeInventoryRepo struct {
	items map[uuid.UUID]model.InventoryItem
}

func newFakeInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{items: map[uuid.UUID]model.InventoryItem{}}
}

func (f *fakeInventoryRepo) snapshot() func() {
	items := maps.Clone(f.items)
	return func() { f.items = items }
}

func (f *fakeInventoryRepo) Create(_ context.Context, item *model.InventoryItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	f.items[item.ID] = *item
	return nil
}

func (f *fakeInventoryRepo) CreateBatch(_ context.Context, items []model.InventoryItem) error {
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		f.items[items[i].ID] = items[i]
	}
	return nil
}

func (f *fakeInventoryRepo) Update(_ context.Context, item *model.InventoryItem) error {
	f.items[item.ID] = *item
	return nil
}

func (f *fakeInventoryRepo) FindByID(_ context.Context, orgID, id uuid.UUID) (*model.InventoryItem, error) {
	item, ok := f.items[id]
	if !ok || item.OrganizationID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	return &item, nil
}

func (f *fakeInventoryRepo) FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*model.InventoryItem, error) {
	return f.FindByID(ctx, orgID, id)
}

func (f *fakeInventoryRepo) FindBySKU(_ context.Context, orgID uuid.UUID, sku string) (*model.InventoryItem, error) {
	for _, item := range f.items {
		if item.OrganizationID == orgID && item.SKU == sku {
			match := item
			return &match, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeInventoryRepo) List(_ context.Context, orgID uuid.UUID, page, limit int, search, itemType, status string) ([]model.InventoryItem, int64, error) {
	var out []model.InventoryItem
	for _, item := range f.items {
		if item.OrganizationID != orgID || !item.IsActive {
			continue
		}
		if itemType != "" && item.ItemType != itemType {
			continue
		}
		if status != "" && item.Status != status {
			continue
		}
		if search != "" && !strings.Contains(item.Name, search) && !strings.Contains(item.SKU, search) {
			continue
		}
		out = append(out, item)
	}
	return out, int64(len(out)), nil
}

func (f *fakeInventoryRepo) UpdateStock(_ context.Context, id uuid.UUID, qty int, status string) error {
	item, ok := f.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.Qty = qty
	item.Status = status
	f.items[id] = item
	return nil
}

type fakeInvoiceRepo struct {
	invoices map[uuid.UUID]model.Invoice
	items    map[uuid.UUID][]model.InvoiceItem
	payments []model.InvoicePayment
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices: map[uuid.UUID]model.Invoice{},
		items:    map[uuid.UUID][]model.InvoiceItem{},
	}
}

func (f *fakeInvoiceRepo) snapshot() func() {
	invoices, items, payments := maps.Clone(f.invoices), maps.Clone(f.items), slices.Clone(f.payments)
	return func() { f.invoices, f.items, f.payments = invoices, items, payments }
}

func (f *fakeInvoiceRepo) Create(_ context.Context, invoice *model.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	stored := *invoice
	stored.Items = nil
	stored.Payments = nil
	f.invoices[invoice.ID] = stored
	return nil
}

func (f *fakeInvoiceRepo) Update(_ context.Context, invoice *model.Invoice) error {
	stored := *invoice
	stored.Items = nil
	stored.Payments = nil
	f.invoices[invoice.ID] = stored
	return nil
}

func (f *fakeInvoiceRepo) FindByID(_ context.Context, orgID, id uuid.UUID) (*model.Invoice, error) {
	invoice, ok := f.invoices[id]
	if !ok || invoice.OrganizationID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	return &invoice, nil
}

func (f *fakeInvoiceRepo) FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error) {
	return f.FindByID(ctx, orgID, id)
}

func (f *fakeInvoiceRepo) FindByIDWithDetails(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error) {
	invoice, err := f.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	invoice.Items = append([]model.InvoiceItem(nil), f.items[id]...)
	invoice.Payments, _ = f.ListPayments(ctx, orgID, id)
	return invoice, nil
}

func (f *fakeInvoiceRepo) List(_ context.Context, orgID uuid.UUID, page, limit int, status, search string, from, to *time.Time) ([]model.Invoice, int64, error) {
	var out []model.Invoice
	for _, invoice := range f.invoices {
		if invoice.OrganizationID != orgID || !invoice.IsActive {
			continue
		}
		if status != "" && invoice.Status != status {
			continue
		}
		if search != "" && !strings.Contains(invoice.InvoiceNumber, search) {
			continue
		}
		out = append(out, invoice)
	}
	return out, int64(len(out)), nil
}

func (f *fakeInvoiceRepo) ReplaceItems(_ context.Context, invoiceID uuid.UUID, items []model.InvoiceItem) error {
	stored := make([]model.InvoiceItem, len(items))
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		stored[i] = items[i]
	}
	f.items[invoiceID] = stored
	return nil
}

func (f *fakeInvoiceRepo) CreatePayment(_ context.Context, payment *model.InvoicePayment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	f.payments = append(f.payments, *payment)
	return nil
}

func (f *fakeInvoiceRepo) UpdatePayment(_ context.Context, payment *model.InvoicePayment) error {
	for i := range f.payments {
		if f.payments[i].ID == payment.ID {
			f.payments[i] = *payment
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeInvoiceRepo) FindPaymentByID(_ context.Context, orgID, id uuid.UUID) (*model.InvoicePayment, error) {
	for _, p := range f.payments {
		if p.ID == id && p.OrganizationID == orgID {
			match := p
			return &match, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeInvoiceRepo) ListPayments(_ context.Context, orgID, invoiceID uuid.UUID) ([]model.InvoicePayment, error) {
	var out []model.InvoicePayment
	for _, p := range f.payments {
		if p.OrganizationID == orgID && p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeWholesaleRepo struct {
	clients map[uuid.UUID]model.WholesaleClient
	items   map[uuid.UUID]model.WholesaleItem
	orders  map[uuid.UUID]model.WholesaleOrder
}

func newFakeWholesaleRepo() *fakeWholesaleRepo {
	return &fakeWholesaleRepo{
		clients: map[uuid.UUID]model.WholesaleClient{},
		items:   map[uuid.UUID]model.WholesaleItem{},
		orders:  map[uuid.UUID]model.WholesaleOrder{},
	}
}

func (f *fakeWholesaleRepo) snapshot() func() {
	clients, items, orders := maps.Clone(f.clients), maps.Clone(f.items), maps.Clone(f.orders)
	return func() { f.clients, f.items, f.orders = clients, items, orders }
}

func (f *fakeWholesaleRepo) CreateClient(_ context.Context, client *model.WholesaleClient) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	f.clients[client.ID] = *client
	return nil
}

func (f *fakeWholesaleRepo) UpdateClient(_ context.Context, client *model.WholesaleClient) error {
	f.clients[client.ID] = *client
	return nil
}

func (f *fakeWholesaleRepo) FindClientByID(_ context.Context, orgID, id uuid.UUID) (*model.WholesaleClient, error) {
	client, ok := f.clients[id]
	if !ok || client.OrganizationID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	return &client, nil
}

func (f *fakeWholesaleRepo) FindClientByIDNo(_ context.Context, orgID uuid.UUID, idNo string) (*model.WholesaleClient, error) {
	for _, client := range f.clients {
		if client.OrganizationID == orgID && client.IDNo == idNo {
			match := client
			return &match, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeWholesaleRepo) ListClients(_ context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.WholesaleClient, int64, error) {
	var out []model.WholesaleClient
	for _, client := range f.clients {
		if client.OrganizationID == orgID {
			out = append(out, client)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeWholesaleRepo) CreateItem(_ context.Context, item *model.WholesaleItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	f.items[item.ID] = *item
	return nil
}

func (f *fakeWholesaleRepo) UpdateItem(_ context.Context, item *model.WholesaleItem) error {
	f.items[item.ID] = *item
	return nil
}

func (f *fakeWholesaleRepo) FindItemByID(_ context.Context, orgID, id uuid.UUID) (*model.WholesaleItem, error) {
	item, ok := f.items[id]
	if !ok || item.OrganizationID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	return &item, nil
}

func (f *fakeWholesaleRepo) ListItems(_ context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.WholesaleItem, int64, error) {
	var out []model.WholesaleItem
	for _, item := range f.items {
		if item.OrganizationID == orgID {
			out = append(out, item)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeWholesaleRepo) CreateOrder(_ context.Context, order *model.WholesaleOrder) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	f.orders[order.ID] = *order
	return nil
}

func (f *fakeWholesaleRepo) FindOrderByID(_ context.Context, orgID, id uuid.UUID) (*model.WholesaleOrder, error) {
	order, ok := f.orders[id]
	if !ok || order.OrganizationID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	return &order, nil
}

func (f *fakeWholesaleRepo) ListOrders(_ context.Context, orgID uuid.UUID, page, limit int, orderStatus string) ([]model.WholesaleOrder, int64, error) {
	var out []model.WholesaleOrder
	for _, order := range f.orders {
		if order.OrganizationID != orgID {
			continue
		}
		if orderStatus != "" && order.OrderStatus != orderStatus {
			continue
		}
		out = append(out, order)
	}
	return out, int64(len(out)), nil
}

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (f *fakeAuditRepo) snapshot() func() {
	entries := slices.Clone(f.entries)
	return func() { f.entries = entries }
}

func (f *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, orgID uuid.UUID, page, limit int, action string) ([]model.AuditLog, int64, error) {
	var out []model.AuditLog
	for _, e := range f.entries {
		if e.OrganizationID != orgID {
			continue
		}
		if action != "" && e.Action != action {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

type fakeStatsRepo struct {
	counts  map[string]int64
	monthly map[string][]model.MonthlyStat
	values  []model.MonthlyStat
}

func (f *fakeStatsRepo) CountActive(_ context.Context, _ uuid.UUID, entity string) (int64, error) {
	return f.counts[entity], nil
}

func (f *fakeStatsRepo) MonthlyCounts(_ context.Context, _ uuid.UUID, entity string, _ int) ([]model.MonthlyStat, error) {
	return f.monthly[entity], nil
}

func (f *fakeStatsRepo) MonthlyInvoiceValues(_ context.Context, _ uuid.UUID, _ int) ([]model.MonthlyStat, error) {
	return f.values, nil
}

type fakeUserRepo struct {
	users         map[uuid.UUID]model.User
	staff         map[uuid.UUID]model.Staff
	refreshTokens map[string]model.RefreshToken
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:         map[uuid.UUID]model.User{},
		staff:         map[uuid.UUID]model.Staff{},
		refreshTokens: map[string]model.RefreshToken{},
	}
}

func (f *fakeUserRepo) snapshot() func() {
	users, staff, tokens := maps.Clone(f.users), maps.Clone(f.staff), maps.Clone(f.refreshTokens)
	return func() { f.users, f.staff, f.refreshTokens = users, staff, tokens }
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			match := user
			return &match, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			match := user
			return &match, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) CreateStaff(_ context.Context, staff *model.Staff) error {
	if staff.ID == uuid.Nil {
		staff.ID = uuid.New()
	}
	f.staff[staff.ID] = *staff
	return nil
}

func (f *fakeUserRepo) UpdateStaff(_ context.Context, staff *model.Staff) error {
	f.staff[staff.ID] = *staff
	return nil
}

func (f *fakeUserRepo) GetStaffByUserID(_ context.Context, userID uuid.UUID) (*model.Staff, error) {
	for _, staff := range f.staff {
		if staff.UserID == userID {
			match := staff
			return &match, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) ListStaff(_ context.Context, orgID uuid.UUID, page, limit int) ([]model.Staff, int64, error) {
	var out []model.Staff
	for _, staff := range f.staff {
		if staff.OrganizationID == orgID {
			out = append(out, staff)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) SaveRefreshToken(_ context.Context, token *model.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	f.refreshTokens[token.Token] = *token
	return nil
}

func (f *fakeUserRepo) GetRefreshToken(_ context.Context, token string) (*model.RefreshToken, error) {
	rt, ok := f.refreshTokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &rt, nil
}

func (f *fakeUserRepo) RevokeRefreshToken(_ context.Context, token string) error {
	delete(f.refreshTokens, token)
	return nil
}

// recordingNotifier captures published events for assertion.
type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Notify(event string, _ map[string]interface{}) {
	n.events = append(n.events, event)
}

// recordingMailer captures outgoing mail for assertion.
type recordingMailer struct {
	sent []string
}

func (m *recordingMailer) Send(to, _, _ string) error {
	m.sent = append(m.sent, to)
	return nil
}
