package service

import (
	"context"
	"fmt"

	"secbank-cbs/internal/model"
	"secbank-cbs/internal/repository"
)

// AuditService is the read side of the audit trail. Writes go through audit.Emitter.
type AuditService interface {
	Search(ctx context.Context, filter repository.AuditFilter, page, limit int) ([]model.AuditLog, int64, error)
	ForEntity(ctx context.Context, entityType string, entityID uint) ([]model.AuditLog, error)
	DistinctActions(ctx context.Context) ([]string, error)
	DistinctModules(ctx context.Context) ([]string, error)
}

type auditService struct {
	logs repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(logs repository.AuditRepository) AuditService {
	return &auditService{logs: logs}
}

func (s *auditService) Search(ctx context.Context, filter repository.AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	page, limit = normalizePage(page, limit)
	logs, total, err := s.logs.Search(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search audit logs: %w", err)
	}
	return logs, total, nil
}

func (s *auditService) ForEntity(ctx context.Context, entityType string, entityID uint) ([]model.AuditLog, error) {
	logs, err := s.logs.ListForEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity history: %w", err)
	}
	return logs, nil
}

func (s *auditService) DistinctActions(ctx context.Context) ([]string, error) {
	return s.logs.DistinctActions(ctx)
}

func (s *auditService) DistinctModules(ctx context.Context) ([]string, error) {
	return s.logs.DistinctModules(ctx)
}
