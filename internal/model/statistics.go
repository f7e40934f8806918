package model

import "github.com/shopspring/decimal"

// MonthlyStat is one bucket of the per-entity monthly report series stored
// on the organization as a jsonb blob. Value is zero for count-only series.
type MonthlyStat struct {
	Year  int             `json:"year"`
	Month int             `json:"month"`
	Count int64           `json:"count"`
	Value decimal.Decimal `json:"value"`
}

// OrganizationReport is the recomputed snapshot returned alongside the
// denormalized counters on the organization row.
type OrganizationReport struct {
	TotalCustomers      int64         `json:"total_customers"`
	TotalPrescriptions  int64         `json:"total_prescriptions"`
	TotalInventory      int64         `json:"total_inventory"`
	TotalInvoices       int64         `json:"total_invoices"`
	CustomerMonthly     []MonthlyStat `json:"customer_monthly"`
	PrescriptionMonthly []MonthlyStat `json:"prescription_monthly"`
	InventoryMonthly    []MonthlyStat `json:"inventory_monthly"`
	InvoiceMonthly      []MonthlyStat `json:"invoice_monthly"`
}
