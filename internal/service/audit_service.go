package service

import (
	"context"

	"opticinvoicer/internal/model"
	"opticinvoicer/internal/repository"

	"github.com/google/uuid"
)

// AuditService exposes the tenant's audit trail for review.
type AuditService interface {
	List(ctx context.Context, orgID uuid.UUID, page, limit int, action string) ([]model.AuditLog, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) List(ctx context.Context, orgID uuid.UUID, page, limit int, action string) ([]model.AuditLog, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.auditRepo.List(ctx, orgID, page, limit, action)
}
