package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"opticinvoicer/internal/model"
	"opticinvoicer/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CustomerRequest struct {
	Phone     string `json:"phone" binding:"required"`
	Email     string `json:"email" binding:"omitempty,email"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
	Gender    string `json:"gender" binding:"omitempty,oneof=M F O N"`
}

type PrescriptionRequest struct {
	LeftSphere        *float64 `json:"left_sphere"`
	RightSphere       *float64 `json:"right_sphere"`
	LeftCylinder      *float64 `json:"left_cylinder"`
	RightCylinder     *float64 `json:"right_cylinder"`
	LeftAxis          *int     `json:"left_axis"`
	RightAxis         *int     `json:"right_axis"`
	LeftPrism         *float64 `json:"left_prism"`
	RightPrism        *float64 `json:"right_prism"`
	LeftAdd           *float64 `json:"left_add"`
	RightAdd          *float64 `json:"right_add"`
	LeftIPD           *float64 `json:"left_ipd"`
	RightIPD          *float64 `json:"right_ipd"`
	PupillaryDistance *float64 `json:"pupillary_distance"`
	AdditionalNotes   string   `json:"additional_notes"`
}

// --- Interface ---

type CustomerService interface {
	CreateCustomer(ctx context.Context, orgID, actorID uuid.UUID, req CustomerRequest) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, orgID, actorID, id uuid.UUID, req CustomerRequest) (*model.Customer, error)
	DeleteCustomer(ctx context.Context, orgID, actorID, id uuid.UUID) error
	GetCustomer(ctx context.Context, orgID, id uuid.UUID) (*model.Customer, error)
	ListCustomers(ctx context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.Customer, int64, error)

	// ResolveCustomer finds the active customer holding the phone number or
	// creates one. Safe to call inside another service's transaction context.
	ResolveCustomer(ctx context.Context, orgID, actorID uuid.UUID, req CustomerRequest) (*model.Customer, error)

	CreatePrescription(ctx context.Context, orgID, actorID, customerID uuid.UUID, req PrescriptionRequest) (*model.Prescription, error)
	ListPrescriptions(ctx context.Context, orgID, customerID uuid.UUID) ([]model.Prescription, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewCustomerService(
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) CustomerService {
	return &customerService{
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

// --- Prescription grid validation ---

// gridStep verifies the value lies in [min, max] on a grid of the given
// increment.
func gridStep(field string, value, min, max, step float64) error {
	if value < min || value > max {
		return &GridError{Field: field, Value: value, Reason: fmt.Sprintf("must be between %g and %g", min, max)}
	}
	steps := value / step
	if math.Abs(steps-math.Round(steps)) > 1e-9 {
		return &GridError{Field: field, Value: value, Reason: fmt.Sprintf("must be a multiple of %g", step)}
	}
	return nil
}

// ValidatePrescriptionGrid checks every graded measurement against its
// permitted range and increment. Axis values are whole degrees from 1 to 180.
func ValidatePrescriptionGrid(req PrescriptionRequest) error {
	type graded struct {
		field string
		value *float64
		min   float64
		max   float64
	}
	checks := []graded{
		{"left_sphere", req.LeftSphere, -20, 20},
		{"right_sphere", req.RightSphere, -20, 20},
		{"left_cylinder", req.LeftCylinder, -10, 10},
		{"right_cylinder", req.RightCylinder, -10, 10},
		{"left_prism", req.LeftPrism, 0, 10},
		{"right_prism", req.RightPrism, 0, 10},
		{"left_add", req.LeftAdd, 0, 4},
		{"right_add", req.RightAdd, 0, 4},
	}
	for _, c := range checks {
		if c.value == nil {
			continue
		}
		if err := gridStep(c.field, *c.value, c.min, c.max, 0.25); err != nil {
			return err
		}
	}

	axes := map[string]*int{"left_axis": req.LeftAxis, "right_axis": req.RightAxis}
	for field, v := range axes {
		if v == nil {
			continue
		}
		if *v < 1 || *v > 180 {
			return &GridError{Field: field, Value: float64(*v), Reason: "must be between 1 and 180"}
		}
	}
	return nil
}

// --- Implementation ---

func (s *customerService) checkDuplicate(ctx context.Context, orgID uuid.UUID, phone, email string, excludeID *uuid.UUID) error {
	if existing, err := s.customerRepo.FindActiveByPhone(ctx, orgID, phone); err == nil {
		if excludeID == nil || existing.ID != *excludeID {
			return &DuplicateCustomerError{Field: "phone", Value: phone}
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check phone uniqueness: %w", err)
	}

	if email != "" {
		if existing, err := s.customerRepo.FindActiveByEmail(ctx, orgID, email); err == nil {
			if excludeID == nil || existing.ID != *excludeID {
				return &DuplicateCustomerError{Field: "email", Value: email}
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check email uniqueness: %w", err)
		}
	}
	return nil
}

func (s *customerService) CreateCustomer(ctx context.Context, orgID, actorID uuid.UUID, req CustomerRequest) (*model.Customer, error) {
	if err := s.checkDuplicate(ctx, orgID, req.Phone, req.Email, nil); err != nil {
		return nil, err
	}

	gender := req.Gender
	if gender == "" {
		gender = model.GenderNotDisclosed
	}

	customer := &model.Customer{
		OrganizationID: orgID,
		Phone:          req.Phone,
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Gender:         gender,
		IsActive:       true,
		CreatedByID:    &actorID,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customerRepo.Create(txCtx, customer); err != nil {
			return fmt.Errorf("failed to create customer: %w", err)
		}
		audit := &model.AuditLog{
			OrganizationID: orgID,
			UserID:         &actorID,
			Action:         model.ActionCreateCustomer,
			EntityID:       customer.ID.String(),
			EntityName:     customer.FirstName + " " + customer.LastName,
			Details:        fmt.Sprintf(`{"phone":%q}`, customer.Phone),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, orgID, actorID, id uuid.UUID, req CustomerRequest) (*model.Customer, error) {
	customer, err := s.customerRepo.FindByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	if err := s.checkDuplicate(ctx, orgID, req.Phone, req.Email, &customer.ID); err != nil {
		return nil, err
	}

	customer.Phone = req.Phone
	customer.Email = req.Email
	customer.FirstName = req.FirstName
	customer.LastName = req.LastName
	if req.Gender != "" {
		customer.Gender = req.Gender
	}
	customer.UpdatedByID = &actorID

	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	return customer, nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, orgID, actorID, id uuid.UUID) error {
	customer, err := s.customerRepo.FindByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load customer: %w", err)
	}
	customer.IsActive = false
	customer.UpdatedByID = &actorID
	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	return nil
}

func (s *customerService) GetCustomer(ctx context.Context, orgID, id uuid.UUID) (*model.Customer, error) {
	customer, err := s.customerRepo.FindByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	return customer, nil
}

func (s *customerService) ListCustomers(ctx context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.Customer, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.customerRepo.List(ctx, orgID, page, limit, search)
}

func (s *customerService) ResolveCustomer(ctx context.Context, orgID, actorID uuid.UUID, req CustomerRequest) (*model.Customer, error) {
	existing, err := s.customerRepo.FindActiveByPhone(ctx, orgID, req.Phone)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}

	gender := req.Gender
	if gender == "" {
		gender = model.GenderNotDisclosed
	}
	customer := &model.Customer{
		OrganizationID: orgID,
		Phone:          req.Phone,
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Gender:         gender,
		IsActive:       true,
		CreatedByID:    &actorID,
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return customer, nil
}

func (s *customerService) CreatePrescription(ctx context.Context, orgID, actorID, customerID uuid.UUID, req PrescriptionRequest) (*model.Prescription, error) {
	if err := ValidatePrescriptionGrid(req); err != nil {
		return nil, err
	}

	if _, err := s.customerRepo.FindByID(ctx, orgID, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	p := &model.Prescription{
		OrganizationID:    orgID,
		CustomerID:        customerID,
		LeftSphere:        req.LeftSphere,
		RightSphere:       req.RightSphere,
		LeftCylinder:      req.LeftCylinder,
		RightCylinder:     req.RightCylinder,
		LeftAxis:          req.LeftAxis,
		RightAxis:         req.RightAxis,
		LeftPrism:         req.LeftPrism,
		RightPrism:        req.RightPrism,
		LeftAdd:           req.LeftAdd,
		RightAdd:          req.RightAdd,
		LeftIPD:           req.LeftIPD,
		RightIPD:          req.RightIPD,
		PupillaryDistance: req.PupillaryDistance,
		AdditionalNotes:   req.AdditionalNotes,
		IsActive:          true,
		CreatedByID:       &actorID,
	}
	if err := s.customerRepo.CreatePrescription(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create prescription: %w", err)
	}
	return p, nil
}

func (s *customerService) ListPrescriptions(ctx context.Context, orgID, customerID uuid.UUID) ([]model.Prescription, error) {
	return s.customerRepo.ListPrescriptions(ctx, orgID, customerID)
}
