package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"opticinvoicer/internal/model"
	"opticinvoicer/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type AddPaymentRequest struct {
	Amount      string `json:"amount" binding:"required"`
	PaymentType string `json:"payment_type" binding:"omitempty,oneof=General Return Other"`
	PaymentMode string `json:"payment_mode" binding:"omitempty,oneof=Cash Card Online Other"`
	Remarks     string `json:"remarks"`
}

// --- Interface ---

type PaymentService interface {
	Add(ctx context.Context, orgID, actorID, invoiceID uuid.UUID, req AddPaymentRequest) (*model.InvoicePayment, error)
	Void(ctx context.Context, orgID, actorID, paymentID uuid.UUID) (*model.InvoicePayment, error)
	List(ctx context.Context, orgID, invoiceID uuid.UUID) ([]model.InvoicePayment, error)
}

type paymentService struct {
	invoiceRepo repository.InvoiceRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	notifier    Notifier
}

func NewPaymentService(
	invoiceRepo repository.InvoiceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
) PaymentService {
	return &paymentService{
		invoiceRepo: invoiceRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		notifier:    notifier,
	}
}

// --- Implementation ---

// Add appends a ledger entry and settles the invoice when the balance
// reaches zero. An entry pushing the balance negative aborts the whole
// transaction.
func (s *paymentService) Add(ctx context.Context, orgID, actorID, invoiceID uuid.UUID, req AddPaymentRequest) (*model.InvoicePayment, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}

	paymentType := req.PaymentType
	if paymentType == "" {
		paymentType = model.PaymentTypeGeneral
	}
	if paymentType == model.PaymentTypeAdvance {
		// The advance entry is system-managed at invoice creation.
		return nil, ErrImmutablePayment
	}
	paymentMode := req.PaymentMode
	if paymentMode == "" {
		paymentMode = model.PaymentModeCash
	}

	var payment *model.InvoicePayment
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoiceRepo.FindByIDForUpdate(txCtx, orgID, invoiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock invoice: %w", err)
		}
		if invoice.Status == model.InvoicePaid || invoice.Status == model.InvoiceScrapped {
			return ErrInvoiceClosed
		}

		payment = &model.InvoicePayment{
			OrganizationID: orgID,
			InvoiceID:      invoice.ID,
			InvoiceNumber:  invoice.InvoiceNumber,
			Amount:         amount,
			PaymentType:    paymentType,
			PaymentMode:    paymentMode,
			Remarks:        req.Remarks,
			IsActive:       true,
			CreatedByID:    &actorID,
		}
		if err := s.invoiceRepo.CreatePayment(txCtx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		payments, err := s.invoiceRepo.ListPayments(txCtx, orgID, invoice.ID)
		if err != nil {
			return fmt.Errorf("failed to load payments: %w", err)
		}
		balance := recomputeBalance(invoice.Total, payments)
		if balance.IsNegative() {
			return &OverPaymentError{
				InvoiceNumber: invoice.InvoiceNumber,
				Amount:        amount,
				Balance:       invoice.Balance,
			}
		}

		invoice.Balance = balance
		invoice.Status = deriveStatus(balance, payments)
		invoice.UpdatedByID = &actorID
		if err := s.invoiceRepo.Update(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to update invoice balance: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"amount":       amount.StringFixed(2),
			"payment_type": paymentType,
			"payment_mode": paymentMode,
			"balance":      balance.StringFixed(2),
		})
		audit := &model.AuditLog{
			OrganizationID: orgID,
			UserID:         &actorID,
			Action:         model.ActionAddPayment,
			EntityID:       payment.ID.String(),
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
		s.notifier.Notify(EventPaymentReceived, map[string]interface{}{
			"payment_id":     payment.ID.String(),
			"invoice_number": payment.InvoiceNumber,
			"amount":         payment.Amount.StringFixed(2),
		})
	}
	return payment, nil
}

// Void flips a ledger entry inactive and re-derives the invoice balance and
// status from the remaining active set.
func (s *paymentService) Void(ctx context.Context, orgID, actorID, paymentID uuid.UUID) (*model.InvoicePayment, error) {
	var payment *model.InvoicePayment
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		payment, err = s.invoiceRepo.FindPaymentByID(txCtx, orgID, paymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load payment: %w", err)
		}
		if !payment.IsActive {
			return ErrPaymentAlreadyVoided
		}

		invoice, err := s.invoiceRepo.FindByIDForUpdate(txCtx, orgID, payment.InvoiceID)
		if err != nil {
			return fmt.Errorf("failed to lock invoice: %w", err)
		}
		if invoice.Status == model.InvoiceDelivered || invoice.Status == model.InvoiceScrapped {
			return ErrInvoiceClosed
		}

		payment.IsActive = false
		payment.UpdatedByID = &actorID
		if err := s.invoiceRepo.UpdatePayment(txCtx, payment); err != nil {
			return fmt.Errorf("failed to void payment: %w", err)
		}

		payments, err := s.invoiceRepo.ListPayments(txCtx, orgID, invoice.ID)
		if err != nil {
			return fmt.Errorf("failed to load payments: %w", err)
		}
		invoice.Balance = recomputeBalance(invoice.Total, payments)
		invoice.Status = deriveStatus(invoice.Balance, payments)
		invoice.UpdatedByID = &actorID
		if err := s.invoiceRepo.Update(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to update invoice balance: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"amount":  payment.Amount.StringFixed(2),
			"balance": invoice.Balance.StringFixed(2),
			"status":  invoice.Status,
		})
		audit := &model.AuditLog{
			OrganizationID: orgID,
			UserID:         &actorID,
			Action:         model.ActionVoidPayment,
			EntityID:       payment.ID.String(),
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
		s.notifier.Notify(EventPaymentVoided, map[string]interface{}{
			"payment_id":     payment.ID.String(),
			"invoice_number": payment.InvoiceNumber,
			"amount":         payment.Amount.StringFixed(2),
		})
	}
	return payment, nil
}

func (s *paymentService) List(ctx context.Context, orgID, invoiceID uuid.UUID) ([]model.InvoicePayment, error) {
	return s.invoiceRepo.ListPayments(ctx, orgID, invoiceID)
}
