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
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type UpdateOrganizationRequest struct {
	Name                *string `json:"name"`
	AddressFirstLine    *string `json:"address_first_line"`
	Email               *string `json:"email" binding:"omitempty,email"`
	SecondaryEmail      *string `json:"secondary_email" binding:"omitempty,email"`
	PrimaryPhoneMobile  *string `json:"primary_phone_mobile"`
	OtherContactNumbers *string `json:"other_contact_numbers"`
	PhoneLandline       *string `json:"phone_landline"`
	Country             *string `json:"country"`
	City                *string `json:"city"`
	PostBoxNumber       *string `json:"post_box_number"`
	Services            *string `json:"services"`
	TranslationRequired *bool   `json:"translation_required"`
}

// --- Interface ---

type OrganizationService interface {
	Get(ctx context.Context, orgID uuid.UUID) (*model.Organization, error)
	Update(ctx context.Context, orgID, actorID uuid.UUID, req UpdateOrganizationRequest) (*model.Organization, error)

	// CanCreateInvoice reports whether the newest active subscription still
	// permits issuing invoices; the type is returned for error context.
	CanCreateInvoice(ctx context.Context, orgID uuid.UUID) (string, bool, error)

	// RecomputeReports rebuilds the denormalized counters and monthly
	// statistics blobs on the organization. The data carries no freshness
	// guarantee and is not recomputed transactionally with the ledgers.
	RecomputeReports(ctx context.Context, orgID uuid.UUID, months int) (*model.OrganizationReport, error)
}

type organizationService struct {
	orgRepo   repository.OrganizationRepository
	statsRepo repository.StatisticsRepository
	log       *zap.Logger
}

func NewOrganizationService(
	orgRepo repository.OrganizationRepository,
	statsRepo repository.StatisticsRepository,
	log *zap.Logger,
) OrganizationService {
	return &organizationService{
		orgRepo:   orgRepo,
		statsRepo: statsRepo,
		log:       log,
	}
}

// --- Implementation ---

func (s *organizationService) Get(ctx context.Context, orgID uuid.UUID) (*model.Organization, error) {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	return org, nil
}

func (s *organizationService) Update(ctx context.Context, orgID, actorID uuid.UUID, req UpdateOrganizationRequest) (*model.Organization, error) {
	org, err := s.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&org.Name, req.Name)
	apply(&org.AddressFirstLine, req.AddressFirstLine)
	apply(&org.Email, req.Email)
	apply(&org.SecondaryEmail, req.SecondaryEmail)
	apply(&org.PrimaryPhoneMobile, req.PrimaryPhoneMobile)
	apply(&org.OtherContactNumbers, req.OtherContactNumbers)
	apply(&org.PhoneLandline, req.PhoneLandline)
	apply(&org.Country, req.Country)
	apply(&org.City, req.City)
	apply(&org.PostBoxNumber, req.PostBoxNumber)
	apply(&org.Services, req.Services)
	if req.TranslationRequired != nil {
		org.TranslationRequired = *req.TranslationRequired
	}
	org.UpdatedByID = &actorID

	if err := s.orgRepo.Update(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	return org, nil
}

func (s *organizationService) CanCreateInvoice(ctx context.Context, orgID uuid.UUID) (string, bool, error) {
	sub, err := s.orgRepo.FindActiveSubscription(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to load subscription: %w", err)
	}

	now := time.Now()
	switch sub.Status {
	case model.SubscriptionStatusTrial:
		if sub.TrialEndDate != nil && now.After(*sub.TrialEndDate) {
			return sub.SubscriptionType, false, nil
		}
		return sub.SubscriptionType, true, nil
	case model.SubscriptionStatusPaid:
		if sub.ExpiryDate != nil && now.After(*sub.ExpiryDate) {
			return sub.SubscriptionType, false, nil
		}
		return sub.SubscriptionType, true, nil
	default:
		return sub.SubscriptionType, false, nil
	}
}

func (s *organizationService) RecomputeReports(ctx context.Context, orgID uuid.UUID, months int) (*model.OrganizationReport, error) {
	if months <= 0 {
		months = 12
	}

	org, err := s.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}

	report := &model.OrganizationReport{}

	counts := []struct {
		entity string
		dst    *int64
	}{
		{repository.StatEntityCustomers, &report.TotalCustomers},
		{repository.StatEntityPrescriptions, &report.TotalPrescriptions},
		{repository.StatEntityInventory, &report.TotalInventory},
		{repository.StatEntityInvoices, &report.TotalInvoices},
	}
	for _, c := range counts {
		n, err := s.statsRepo.CountActive(ctx, orgID, c.entity)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.entity, err)
		}
		*c.dst = n
	}

	if report.CustomerMonthly, err = s.statsRepo.MonthlyCounts(ctx, orgID, repository.StatEntityCustomers, months); err != nil {
		return nil, err
	}
	if report.PrescriptionMonthly, err = s.statsRepo.MonthlyCounts(ctx, orgID, repository.StatEntityPrescriptions, months); err != nil {
		return nil, err
	}
	if report.InventoryMonthly, err = s.statsRepo.MonthlyCounts(ctx, orgID, repository.StatEntityInventory, months); err != nil {
		return nil, err
	}
	if report.InvoiceMonthly, err = s.statsRepo.MonthlyInvoiceValues(ctx, orgID, months); err != nil {
		return nil, err
	}

	org.TotalCustomers = int(report.TotalCustomers)
	org.TotalPrescriptions = int(report.TotalPrescriptions)
	org.TotalInventory = int(report.TotalInventory)
	org.TotalInvoices = int(report.TotalInvoices)
	org.CustomerStatistics = marshalStats(report.CustomerMonthly)
	org.PrescriptionStatistics = marshalStats(report.PrescriptionMonthly)
	org.InventoryStatistics = marshalStats(report.InventoryMonthly)
	org.InvoiceStatistics = marshalStats(report.InvoiceMonthly)

	if err := s.orgRepo.Update(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to store recomputed report: %w", err)
	}

	s.log.Info("organization report recomputed",
		zap.String("organization_id", orgID.String()),
		zap.Int64("invoices", report.TotalInvoices),
		zap.Int("months", months))

	return report, nil
}

func marshalStats(stats []model.MonthlyStat) string {
	if len(stats) == 0 {
		return "[]"
	}
	b, err := json.Marshal(stats)
	if err != nil {
		return "[]"
	}
	return string(b)
}
