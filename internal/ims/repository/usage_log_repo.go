package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/garo/internal/ims/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UsageLogQuery 领用记录查询条件
type UsageLogQuery struct {
	PartID   string
	UsedBy   string
	JobID    string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// UsageLogRepository 零件领用记录仓库
type UsageLogRepository struct {
	db *gorm.DB
}

func NewUsageLogRepository(db *gorm.DB) *UsageLogRepository {
	return &UsageLogRepository{db: db}
}

// Create 写入领用记录
func (r *UsageLogRepository) Create(ctx context.Context, entry *entity.PartUsageLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindAll 按零件/领用人/日期范围查询领用记录
func (r *UsageLogRepository) FindAll(ctx context.Context, q UsageLogQuery) ([]entity.PartUsageLog, int64, error) {
	var items []entity.PartUsageLog
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PartUsageLog{})
	if q.PartID != "" {
		query = query.Where("part_id = ?", q.PartID)
	}
	if q.UsedBy != "" {
		query = query.Where("used_by = ?", q.UsedBy)
	}
	if q.JobID != "" {
		query = query.Where("job_id = ?", q.JobID)
	}
	if q.From != nil {
		query = query.Where("used_at >= ?", q.From)
	}
	if q.To != nil {
		query = query.Where("used_at <= ?", q.To)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := q.Page
	if page <= 0 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	err := query.
		Order("used_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}
