package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/garo/internal/ims/entity"
	"gorm.io/gorm"
)

// PORepository 采购订单仓库
type PORepository struct {
	db *gorm.DB
}

func NewPORepository(db *gorm.DB) *PORepository {
	return &PORepository{db: db}
}

// FindAll 查询采购订单列表
func (r *PORepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	var items []entity.PurchaseOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{})

	if supplierID := filters["supplier_id"]; supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if createdBy := filters["created_by"]; createdBy != "" {
		query = query.Where("created_by = ?", createdBy)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("po_number ILIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Supplier").
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找采购订单（含行项）
func (r *PORepository) FindByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &po, nil
}

// Create 创建采购订单
func (r *PORepository) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(po).Error
}

// ReplaceItems 草稿编辑：在事务中更新订单头并整体替换行项。
// 订单头带status=draft前置条件，并发迁移抢先时整个编辑落空，
// 返回false，绝不把已提交的订单改回草稿。只写编辑涉及的列。
func (r *PORepository) ReplaceItems(ctx context.Context, po *entity.PurchaseOrder) (bool, error) {
	updated := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.PurchaseOrder{}).
			Where("id = ? AND status = ?", po.ID, entity.POStatusDraft).
			Updates(map[string]interface{}{
				"tax":              po.Tax,
				"shipping":         po.Shipping,
				"expected_date":    po.ExpectedDate,
				"notes":            po.Notes,
				"subtotal":         po.Subtotal,
				"total_amount":     po.TotalAmount,
				"last_modified_by": po.LastModifiedBy,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		updated = true
		if err := tx.Where("po_id = ?", po.ID).Delete(&entity.POItem{}).Error; err != nil {
			return err
		}
		if len(po.Items) == 0 {
			return nil
		}
		return tx.Create(&po.Items).Error
	})
	return updated, err
}

// UpdateStatusIf 状态迁移的乐观前置条件：status仍为fromStatus时才写入。
// 返回false表示被并发迁移抢先，调用方按非法迁移处理。
func (r *PORepository) UpdateStatusIf(ctx context.Context, id, fromStatus string, fields map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrder{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteIfDraft 硬删除订单及行项，仅草稿可删
func (r *PORepository) DeleteIfDraft(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND status = ?", id, entity.POStatusDraft).Delete(&entity.PurchaseOrder{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return tx.Where("po_id = ?", id).Delete(&entity.POItem{}).Error
	})
	return deleted, err
}
