package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bitfantasy/garo/internal/ims/entity"
	"github.com/bitfantasy/garo/internal/ims/repository"
	"github.com/google/uuid"
)

// LowStockResult 低库存判定结果
type LowStockResult struct {
	IsLow  bool   `json:"is_low"`
	Reason string `json:"reason"`
}

// EvaluateLowStock 低库存判定，全系统唯一的判定逻辑：
// available <= reorder_level 即为低库存。
// reorder_level为0时仅在可用量为0才触发；max_level为0表示不设上限，
// 这两处语义沿用门户既有行为，不做重新解释。
func EvaluateLowStock(p *entity.Part) LowStockResult {
	available := p.Available()
	if available <= p.Stock.ReorderLevel {
		return LowStockResult{
			IsLow:  true,
			Reason: fmt.Sprintf("可用库存%d已低于再订货点%d", available, p.Stock.ReorderLevel),
		}
	}
	return LowStockResult{IsLow: false}
}

// LowStockChecker 库存下降后触发的低库存检查（告警引擎实现）
type LowStockChecker interface {
	CheckPartForLowStock(ctx context.Context, partID string) (CheckResult, error)
}

// StockService 库存台账，零件数量字段的唯一修改入口。
// 保证 reserved <= on_hand 与各数量字段非负。
type StockService struct {
	partRepo  *repository.PartRepository
	usageRepo *repository.UsageLogRepository
	auditRepo *repository.AuditLogRepository
	checker   LowStockChecker
}

func NewStockService(partRepo *repository.PartRepository, usageRepo *repository.UsageLogRepository, auditRepo *repository.AuditLogRepository) *StockService {
	return &StockService{
		partRepo:  partRepo,
		usageRepo: usageRepo,
		auditRepo: auditRepo,
	}
}

// SetLowStockChecker 注入告警引擎（构造后注入，避免互相依赖）
func (s *StockService) SetLowStockChecker(c LowStockChecker) {
	s.checker = c
}

// Reserve 预留库存。可用量不足时失败且状态不变。
func (s *StockService) Reserve(ctx context.Context, userID, partID string, qty int) (*entity.Part, error) {
	if qty <= 0 {
		return nil, ValidationErr("预留数量必须大于0")
	}

	before, err := s.findPart(ctx, partID)
	if err != nil {
		return nil, err
	}

	ok, err := s.partRepo.ReserveStock(ctx, partID, qty)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 条件更新未命中：拿最新数量给出可用vs需求
		cur, ferr := s.findPart(ctx, partID)
		if ferr != nil {
			return nil, ferr
		}
		return nil, InsufficientStockErr("库存不足：需要%d，可用%d", qty, cur.Available())
	}

	after, err := s.findPart(ctx, partID)
	if err != nil {
		return nil, err
	}

	s.auditRepo.Record(ctx, userID, entity.EntityTypePart, partID, entity.ActionUpdate,
		entity.JSONB{"reserved": before.Stock.Reserved},
		entity.JSONB{"reserved": after.Stock.Reserved, "op": "reserve", "qty": qty},
		"api")

	s.triggerLowStockCheck(ctx, partID)
	return after, nil
}

// Consume 消耗库存：on_hand减少，预留随消耗释放。
// 同时写入领用记录（与审计日志分开）。
func (s *StockService) Consume(ctx context.Context, userID, partID string, qty int, jobID *string, note string) (*entity.Part, error) {
	if qty <= 0 {
		return nil, ValidationErr("领用数量必须大于0")
	}

	before, err := s.findPart(ctx, partID)
	if err != nil {
		return nil, err
	}

	ok, err := s.partRepo.ConsumeStock(ctx, partID, qty)
	if err != nil {
		return nil, err
	}
	if !ok {
		cur, ferr := s.findPart(ctx, partID)
		if ferr != nil {
			return nil, ferr
		}
		return nil, InsufficientStockErr("库存不足：需要%d，现有%d", qty, cur.Stock.OnHand)
	}

	after, err := s.findPart(ctx, partID)
	if err != nil {
		return nil, err
	}

	usage := &entity.PartUsageLog{
		ID:           uuid.New().String()[:32],
		PartID:       partID,
		PartCode:     after.PartCode,
		QuantityUsed: qty,
		UsedBy:       userID,
		JobID:        jobID,
		Note:         note,
		UsedAt:       time.Now(),
	}
	if err := s.usageRepo.Create(ctx, usage); err != nil {
		log.Printf("[IMS] 领用记录写入失败 part=%s qty=%d: %v", partID, qty, err)
	}

	s.auditRepo.Record(ctx, userID, entity.EntityTypePart, partID, entity.ActionUpdate,
		entity.JSONB{"on_hand": before.Stock.OnHand, "reserved": before.Stock.Reserved},
		entity.JSONB{"on_hand": after.Stock.OnHand, "reserved": after.Stock.Reserved, "op": "consume", "qty": qty},
		"api")

	s.triggerLowStockCheck(ctx, partID)
	return after, nil
}

// Replenish 入库补货，仅PO收货路径调用。零件存在即成功。
func (s *StockService) Replenish(ctx context.Context, userID, partID string, qty int, source string) (*entity.Part, error) {
	if qty <= 0 {
		return nil, ValidationErr("入库数量必须大于0")
	}

	before, err := s.findPart(ctx, partID)
	if err != nil {
		return nil, err
	}

	ok, err := s.partRepo.ReplenishStock(ctx, partID, qty)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NotFoundErr("零件不存在")
	}

	after, err := s.findPart(ctx, partID)
	if err != nil {
		return nil, err
	}

	s.auditRepo.Record(ctx, userID, entity.EntityTypePart, partID, entity.ActionUpdate,
		entity.JSONB{"on_hand": before.Stock.OnHand},
		entity.JSONB{"on_hand": after.Stock.OnHand, "op": "replenish", "qty": qty},
		source)

	// 补货抬高库存，自然不会触发低库存告警
	return after, nil
}

func (s *StockService) findPart(ctx context.Context, partID string) (*entity.Part, error) {
	part, err := s.partRepo.FindByID(ctx, partID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, NotFoundErr("零件不存在")
		}
		return nil, err
	}
	return part, nil
}

// triggerLowStockCheck 库存下降后的同步低库存检查，失败不影响主操作
func (s *StockService) triggerLowStockCheck(ctx context.Context, partID string) {
	if s.checker == nil {
		return
	}
	if _, err := s.checker.CheckPartForLowStock(ctx, partID); err != nil {
		log.Printf("[IMS] 低库存检查失败 part=%s: %v", partID, err)
	}
}
