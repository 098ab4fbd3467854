package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/garo/internal/ims/entity"
	"gorm.io/gorm"
)

// PartRepository 零件仓库
type PartRepository struct {
	db *gorm.DB
}

func NewPartRepository(db *gorm.DB) *PartRepository {
	return &PartRepository{db: db}
}

// FindAll 查询零件列表
func (r *PartRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Part, int64, error) {
	var items []entity.Part
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Part{})

	if filters["include_inactive"] != "true" {
		query = query.Where("is_active = true")
	}
	if category := filters["category"]; category != "" {
		query = query.Where("category = ?", category)
	}
	if supplierID := filters["supplier_id"]; supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("part_code ILIKE ? OR name ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if filters["low_stock"] == "true" {
		query = query.Where("stock_on_hand - stock_reserved <= stock_reorder_level")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Supplier").
		Order("part_code ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找零件
func (r *PartRepository) FindByID(ctx context.Context, id string) (*entity.Part, error) {
	var part entity.Part
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Where("id = ?", id).
		First(&part).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &part, nil
}

// FindByCode 根据编码查找零件（编码已规范化）
func (r *PartRepository) FindByCode(ctx context.Context, code string) (*entity.Part, error) {
	var part entity.Part
	err := r.db.WithContext(ctx).
		Where("part_code = ?", entity.NormalizePartCode(code)).
		First(&part).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &part, nil
}

// FindActiveIDs 所有启用零件的ID，供低库存巡检使用
func (r *PartRepository) FindActiveIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&entity.Part{}).
		Where("is_active = true").
		Order("part_code ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// Create 创建零件
func (r *PartRepository) Create(ctx context.Context, part *entity.Part) error {
	return r.db.WithContext(ctx).Create(part).Error
}

// Update 更新零件
func (r *PartRepository) Update(ctx context.Context, part *entity.Part) error {
	return r.db.WithContext(ctx).Save(part).Error
}

// SetActive 软删除/恢复
func (r *PartRepository) SetActive(ctx context.Context, id string, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&entity.Part{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HardDelete 物理删除，仅限运维显式操作
func (r *PartRepository) HardDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Part{}).Error
}

// === 库存原子操作 ===
// 数量变更一律走条件UPDATE并检查影响行数，避免读-改-写竞态：
// 并发的两个reserve只会有一个在可用量不足时成功。

// ReserveStock 预留库存，可用量不足时返回false
func (r *PartRepository) ReserveStock(ctx context.Context, id string, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Part{}).
		Where("id = ? AND is_active = true AND stock_on_hand - stock_reserved >= ?", id, qty).
		Update("stock_reserved", gorm.Expr("stock_reserved + ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ConsumeStock 消耗库存：on_hand -= qty，预留随消耗释放 reserved -= min(reserved, qty)
func (r *PartRepository) ConsumeStock(ctx context.Context, id string, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Part{}).
		Where("id = ? AND is_active = true AND stock_on_hand >= ?", id, qty).
		Updates(map[string]interface{}{
			"stock_on_hand":  gorm.Expr("stock_on_hand - ?", qty),
			"stock_reserved": gorm.Expr("GREATEST(stock_reserved - ?, 0)", qty),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReplenishStock 入库补货，零件存在即成功
func (r *PartRepository) ReplenishStock(ctx context.Context, id string, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Part{}).
		Where("id = ?", id).
		Update("stock_on_hand", gorm.Expr("stock_on_hand + ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetLastAlertedAt 更新告警冷却标记
func (r *PartRepository) SetLastAlertedAt(ctx context.Context, id string, at *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.Part{}).
		Where("id = ?", id).
		Update("last_alerted_at", at).Error
}
