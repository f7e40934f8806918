package repository

import (
	"context"
	"fmt"

	"opticinvoicer/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatisticsRepository aggregates per-entity counts and monthly series used
// by the organization report recompute.
type StatisticsRepository interface {
	CountActive(ctx context.Context, orgID uuid.UUID, entity string) (int64, error)
	MonthlyCounts(ctx context.Context, orgID uuid.UUID, entity string, months int) ([]model.MonthlyStat, error)
	MonthlyInvoiceValues(ctx context.Context, orgID uuid.UUID, months int) ([]model.MonthlyStat, error)
}

// Entities the recompute aggregates over. Each maps to a table with an
// organization_id and an is_active column.
const (
	StatEntityCustomers     = "customers"
	StatEntityPrescriptions = "prescriptions"
	StatEntityInventory     = "inventory_items"
	StatEntityInvoices      = "invoices"
)

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func validStatEntity(entity string) bool {
	switch entity {
	case StatEntityCustomers, StatEntityPrescriptions, StatEntityInventory, StatEntityInvoices:
		return true
	}
	return false
}

func (r *statisticsRepository) CountActive(ctx context.Context, orgID uuid.UUID, entity string) (int64, error) {
	if !validStatEntity(entity) {
		return 0, fmt.Errorf("unknown statistics entity %q", entity)
	}
	var count int64
	if err := GetDB(ctx, r.db).Table(entity).
		Where("organization_id = ? AND is_active = ?", orgID, true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *statisticsRepository) MonthlyCounts(ctx context.Context, orgID uuid.UUID, entity string, months int) ([]model.MonthlyStat, error) {
	if !validStatEntity(entity) {
		return nil, fmt.Errorf("unknown statistics entity %q", entity)
	}
	var stats []model.MonthlyStat
	err := GetDB(ctx, r.db).Table(entity).
		Select("EXTRACT(YEAR FROM created_at)::int as year, EXTRACT(MONTH FROM created_at)::int as month, COUNT(*) as count").
		Where("organization_id = ? AND created_at >= NOW() - (? * INTERVAL '1 month')", orgID, months).
		Group("year, month").
		Order("year, month").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly counts for %s: %w", entity, err)
	}
	return stats, nil
}

func (r *statisticsRepository) MonthlyInvoiceValues(ctx context.Context, orgID uuid.UUID, months int) ([]model.MonthlyStat, error) {
	var stats []model.MonthlyStat
	err := GetDB(ctx, r.db).Table("invoices").
		Select("EXTRACT(YEAR FROM created_at)::int as year, EXTRACT(MONTH FROM created_at)::int as month, COUNT(*) as count, COALESCE(SUM(total), 0) as value").
		Where("organization_id = ? AND is_active = ? AND created_at >= NOW() - (? * INTERVAL '1 month')", orgID, true, months).
		Group("year, month").
		Order("year, month").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly invoice values: %w", err)
	}
	return stats, nil
}
