package repository

import (
	"context"
	"time"

	"secbank-cbs/internal/model"

	"gorm.io/gorm"
)

type AuditFilter struct {
	UserID     *uint
	Action     string
	Module     string
	EntityType string
	EntityID   *uint
	From       *time.Time
	To         *time.Time
}

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	Search(ctx context.Context, filter AuditFilter, page, limit int) ([]model.AuditLog, int64, error)
	ListForEntity(ctx context.Context, entityType string, entityID uint) ([]model.AuditLog, error)
	DistinctActions(ctx context.Context) ([]string, error)
	DistinctModules(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) Search(ctx context.Context, filter AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	db := GetDB(ctx, r.db).Model(&model.AuditLog{})
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.Action != "" {
		db = db.Where("action = ?", filter.Action)
	}
	if filter.Module != "" {
		db = db.Where("module = ?", filter.Module)
	}
	if filter.EntityType != "" {
		db = db.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != nil {
		db = db.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.From != nil {
		db = db.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("created_at < ?", *filter.To)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at desc, id desc").Offset(offset(page, limit)).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// ListForEntity returns the full history of one entity, newest first.
func (r *auditRepository) ListForEntity(ctx context.Context, entityType string, entityID uint) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	err := GetDB(ctx, r.db).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at desc, id desc").Find(&logs).Error
	return logs, err
}

func (r *auditRepository) DistinctActions(ctx context.Context) ([]string, error) {
	var out []string
	err := GetDB(ctx, r.db).Model(&model.AuditLog{}).Distinct().Order("action").Pluck("action", &out).Error
	return out, err
}

func (r *auditRepository) DistinctModules(ctx context.Context) ([]string, error) {
	var out []string
	err := GetDB(ctx, r.db).Model(&model.AuditLog{}).Distinct().Order("module").Pluck("module", &out).Error
	return out, err
}

func (r *auditRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.AuditLog{}).Count(&n).Error
	return n, err
}

func (r *auditRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.AuditLog{}).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}
