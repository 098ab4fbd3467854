package repository

import (
	"context"
	"log"

	"github.com/bitfantasy/garo/internal/ims/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLogRepository 审计日志仓库
type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Create 写入审计日志
func (r *AuditLogRepository) Create(ctx context.Context, entry *entity.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByEntity 查询某实体的审计日志
func (r *AuditLogRepository) FindByEntity(ctx context.Context, entityType, entityID string, page, pageSize int) ([]entity.AuditLog, int64, error) {
	var items []entity.AuditLog
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.AuditLog{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// Record 便捷记录审计日志。审计是诊断信息不是业务状态，
// 写入失败只打日志，绝不让它中断正在记录的业务操作。
func (r *AuditLogRepository) Record(ctx context.Context, userID, entityType, entityID, action string, before, after entity.JSONB, source string) {
	entry := &entity.AuditLog{
		ID:         uuid.New().String()[:32],
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Before:     before,
		After:      after,
		UserID:     userID,
		Source:     source,
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		log.Printf("[IMS] 审计日志写入失败 entity=%s/%s action=%s: %v", entityType, entityID, action, err)
	}
}
