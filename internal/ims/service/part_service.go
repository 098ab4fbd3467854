package service

import (
	"context"
	"log"
	"time"

	"github.com/bitfantasy/garo/internal/ims/entity"
	"github.com/bitfantasy/garo/internal/ims/repository"
	"github.com/google/uuid"
)

// PartService 零件档案维护。数量字段只有创建时可直接设定，
// 之后一律通过库存台账操作变更。
type PartService struct {
	partRepo  *repository.PartRepository
	usageRepo *repository.UsageLogRepository
	auditRepo *repository.AuditLogRepository
	checker   LowStockChecker
}

func NewPartService(partRepo *repository.PartRepository, usageRepo *repository.UsageLogRepository, auditRepo *repository.AuditLogRepository) *PartService {
	return &PartService{
		partRepo:  partRepo,
		usageRepo: usageRepo,
		auditRepo: auditRepo,
	}
}

// SetLowStockChecker 注入告警引擎
func (s *PartService) SetLowStockChecker(c LowStockChecker) {
	s.checker = c
}

// CreatePartRequest 创建零件请求
type CreatePartRequest struct {
	PartCode      string  `json:"part_code" binding:"required"`
	Name          string  `json:"name" binding:"required"`
	Category      string  `json:"category"`
	Specification string  `json:"specification"`
	Unit          string  `json:"unit"`
	UnitPrice     float64 `json:"unit_price" binding:"gte=0"`
	Location      string  `json:"location"`
	SupplierID    *string `json:"supplier_id"`
	OnHand        int     `json:"on_hand" binding:"gte=0"`
	MinLevel      int     `json:"min_level" binding:"gte=0"`
	MaxLevel      int     `json:"max_level" binding:"gte=0"`
	ReorderLevel  int     `json:"reorder_level" binding:"gte=0"`
	Notes         string  `json:"notes"`
}

// UpdatePartRequest 更新零件请求。on_hand/reserved不在此处：走库存台账。
type UpdatePartRequest struct {
	Name          *string  `json:"name"`
	Category      *string  `json:"category"`
	Specification *string  `json:"specification"`
	Unit          *string  `json:"unit"`
	UnitPrice     *float64 `json:"unit_price" binding:"omitempty,gte=0"`
	Location      *string  `json:"location"`
	SupplierID    *string  `json:"supplier_id"`
	MinLevel      *int     `json:"min_level" binding:"omitempty,gte=0"`
	MaxLevel      *int     `json:"max_level" binding:"omitempty,gte=0"`
	ReorderLevel  *int     `json:"reorder_level" binding:"omitempty,gte=0"`
	Notes         *string  `json:"notes"`
}

// ListParts 零件列表
func (s *PartService) ListParts(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Part, int64, error) {
	return s.partRepo.FindAll(ctx, page, pageSize, filters)
}

// GetPart 零件详情
func (s *PartService) GetPart(ctx context.Context, id string) (*entity.Part, error) {
	part, err := s.partRepo.FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, NotFoundErr("零件不存在")
		}
		return nil, err
	}
	return part, nil
}

// CreatePart 创建零件，编码规范化后查重
func (s *PartService) CreatePart(ctx context.Context, actor Actor, req *CreatePartRequest) (*entity.Part, error) {
	code := entity.NormalizePartCode(req.PartCode)
	if code == "" {
		return nil, ValidationErr("零件编码不能为空")
	}
	if existing, err := s.partRepo.FindByCode(ctx, code); err == nil && existing != nil {
		return nil, ValidationErr("零件编码已存在：%s", code)
	} else if err != nil && err != repository.ErrNotFound {
		return nil, err
	}

	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}

	part := &entity.Part{
		ID:            uuid.New().String()[:32],
		PartCode:      code,
		Name:          req.Name,
		Category:      req.Category,
		Specification: req.Specification,
		Unit:          unit,
		UnitPrice:     req.UnitPrice,
		Location:      req.Location,
		SupplierID:    req.SupplierID,
		Stock: entity.StockLevel{
			OnHand:       req.OnHand,
			MinLevel:     req.MinLevel,
			MaxLevel:     req.MaxLevel,
			ReorderLevel: req.ReorderLevel,
		},
		IsActive:  true,
		CreatedBy: actor.UserID,
		Notes:     req.Notes,
	}

	if err := s.partRepo.Create(ctx, part); err != nil {
		return nil, err
	}

	s.auditRepo.Record(ctx, actor.UserID, entity.EntityTypePart, part.ID, entity.ActionCreate,
		nil, toJSONB(part), "api")
	s.triggerCheck(ctx, part.ID)
	return part, nil
}

// UpdatePart 更新零件档案与阈值
func (s *PartService) UpdatePart(ctx context.Context, actor Actor, id string, req *UpdatePartRequest) (*entity.Part, error) {
	part, err := s.GetPart(ctx, id)
	if err != nil {
		return nil, err
	}

	before := toJSONB(part)

	if req.Name != nil {
		part.Name = *req.Name
	}
	if req.Category != nil {
		part.Category = *req.Category
	}
	if req.Specification != nil {
		part.Specification = *req.Specification
	}
	if req.Unit != nil {
		part.Unit = *req.Unit
	}
	if req.UnitPrice != nil {
		part.UnitPrice = *req.UnitPrice
	}
	if req.Location != nil {
		part.Location = *req.Location
	}
	if req.SupplierID != nil {
		part.SupplierID = req.SupplierID
	}
	if req.MinLevel != nil {
		part.Stock.MinLevel = *req.MinLevel
	}
	if req.MaxLevel != nil {
		part.Stock.MaxLevel = *req.MaxLevel
	}
	if req.ReorderLevel != nil {
		part.Stock.ReorderLevel = *req.ReorderLevel
	}
	if req.Notes != nil {
		part.Notes = *req.Notes
	}

	if err := s.partRepo.Update(ctx, part); err != nil {
		return nil, err
	}

	s.auditRepo.Record(ctx, actor.UserID, entity.EntityTypePart, part.ID, entity.ActionUpdate,
		before, toJSONB(part), "api")
	// 阈值调整可能让零件立即落入低库存
	s.triggerCheck(ctx, part.ID)
	return part, nil
}

// DeactivatePart 软删除
func (s *PartService) DeactivatePart(ctx context.Context, actor Actor, id string) error {
	part, err := s.GetPart(ctx, id)
	if err != nil {
		return err
	}
	if err := s.partRepo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.auditRepo.Record(ctx, actor.UserID, entity.EntityTypePart, id, entity.ActionDelete,
		toJSONB(part), nil, "api")
	return nil
}

// RestorePart 恢复软删除的零件
func (s *PartService) RestorePart(ctx context.Context, actor Actor, id string) error {
	if err := s.partRepo.SetActive(ctx, id, true); err != nil {
		if err == repository.ErrNotFound {
			return NotFoundErr("零件不存在")
		}
		return err
	}
	s.auditRepo.Record(ctx, actor.UserID, entity.EntityTypePart, id, entity.ActionRestore,
		nil, nil, "api")
	return nil
}

// HardDeletePart 物理删除，不可恢复，仅限运维显式操作
func (s *PartService) HardDeletePart(ctx context.Context, actor Actor, id string) error {
	part, err := s.GetPart(ctx, id)
	if err != nil {
		return err
	}
	if err := s.partRepo.HardDelete(ctx, id); err != nil {
		return err
	}
	s.auditRepo.Record(ctx, actor.UserID, entity.EntityTypePart, id, entity.ActionHardDelete,
		toJSONB(part), nil, "api")
	return nil
}

// ListUsage 零件领用历史
func (s *PartService) ListUsage(ctx context.Context, partID, usedBy, jobID string, from, to *time.Time, page, pageSize int) ([]entity.PartUsageLog, int64, error) {
	return s.usageRepo.FindAll(ctx, repository.UsageLogQuery{
		PartID:   partID,
		UsedBy:   usedBy,
		JobID:    jobID,
		From:     from,
		To:       to,
		Page:     page,
		PageSize: pageSize,
	})
}

func (s *PartService) triggerCheck(ctx context.Context, partID string) {
	if s.checker == nil {
		return
	}
	if _, err := s.checker.CheckPartForLowStock(ctx, partID); err != nil {
		log.Printf("[IMS] 低库存检查失败 part=%s: %v", partID, err)
	}
}
