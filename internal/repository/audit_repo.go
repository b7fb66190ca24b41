package repository

import (
	"context"

	"rapidroad/internal/model"

	"gorm.io/gorm"
)

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, action string, limit, offset int) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Log joins the caller's transaction when one is in ctx.
func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, action string, limit, offset int) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	byAction := func(db *gorm.DB) *gorm.DB {
		if action != "" {
			return db.Where("action = ?", action)
		}
		return db
	}

	if err := GetDB(ctx, r.db).Model(&model.AuditLog{}).Scopes(byAction).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := GetDB(ctx, r.db).Scopes(byAction).Preload("User").
		Order("created_at desc").Offset(offset).Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
