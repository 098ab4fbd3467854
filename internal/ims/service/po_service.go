package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bitfantasy/garo/internal/ims/entity"
	"github.com/bitfantasy/garo/internal/ims/repository"
	"github.com/google/uuid"
)

// POService 采购订单状态机：draft → submitted → approved → delivered，
// submitted可被驳回退回draft，其余迁移一律非法。
// 校验顺序固定：订单存在 → 角色 → 状态 → 写入。
type POService struct {
	poRepo    *repository.PORepository
	partRepo  *repository.PartRepository
	auditRepo *repository.AuditLogRepository
	stock     *StockService
	capital   CapitalLedger
	events    EventPublisher
}

func NewPOService(poRepo *repository.PORepository, partRepo *repository.PartRepository, auditRepo *repository.AuditLogRepository, stock *StockService) *POService {
	return &POService{
		poRepo:    poRepo,
		partRepo:  partRepo,
		auditRepo: auditRepo,
		stock:     stock,
	}
}

// SetCapitalLedger 注入财务资本账（外部协作方）
func (s *POService) SetCapitalLedger(c CapitalLedger) {
	s.capital = c
}

// SetEventPublisher 注入前端推送通道
func (s *POService) SetEventPublisher(e EventPublisher) {
	s.events = e
}

// GeneratePONumber 生成可读订单号：PO-日期-随机后缀
func GeneratePONumber() string {
	suffix := strings.ToUpper(uuid.New().String()[:4])
	return fmt.Sprintf("PO-%s-%s", time.Now().Format("20060102"), suffix)
}

// === DTO ===

// CreatePOItemRequest 创建PO行项
type CreatePOItemRequest struct {
	PartID    string  `json:"part_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" binding:"gte=0"`
}

// CreatePORequest 创建采购订单请求
type CreatePORequest struct {
	SupplierID   string                `json:"supplier_id" binding:"required"`
	Tax          float64               `json:"tax" binding:"gte=0"`
	Shipping     float64               `json:"shipping" binding:"gte=0"`
	ExpectedDate *time.Time            `json:"expected_date"`
	Notes        string                `json:"notes"`
	Items        []CreatePOItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdatePORequest 草稿编辑请求。客户端传来的合计一律忽略，服务端重算。
type UpdatePORequest struct {
	Tax          *float64               `json:"tax" binding:"omitempty,gte=0"`
	Shipping     *float64               `json:"shipping" binding:"omitempty,gte=0"`
	ExpectedDate *time.Time             `json:"expected_date"`
	Notes        *string                `json:"notes"`
	Items        *[]CreatePOItemRequest `json:"items" binding:"omitempty,min=1,dive"`
}

// === 查询 ===

// ListPOs 采购订单列表
func (s *POService) ListPOs(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	return s.poRepo.FindAll(ctx, page, pageSize, filters)
}

// GetPO 采购订单详情
func (s *POService) GetPO(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return s.findPO(ctx, id)
}

// === 迁移操作 ===

// CreatePO 创建草稿订单，任何已认证用户可创建
func (s *POService) CreatePO(ctx context.Context, actor Actor, req *CreatePORequest) (*entity.PurchaseOrder, error) {
	if len(req.Items) == 0 {
		return nil, ValidationErr("订单至少需要一个行项")
	}

	po := &entity.PurchaseOrder{
		ID:             uuid.New().String()[:32],
		PONumber:       GeneratePONumber(),
		SupplierID:     req.SupplierID,
		Status:         entity.POStatusDraft,
		Tax:            req.Tax,
		Shipping:       req.Shipping,
		ExpectedDate:   req.ExpectedDate,
		CreatedBy:      actor.UserID,
		LastModifiedBy: actor.UserID,
		Notes:          req.Notes,
	}

	items, err := s.buildItems(ctx, po.ID, req.Items)
	if err != nil {
		return nil, err
	}
	po.Items = items
	recomputeTotals(po)

	if err := s.poRepo.Create(ctx, po); err != nil {
		return nil, err
	}

	s.auditRepo.Record(ctx, actor.UserID, entity.EntityTypePurchaseOrder, po.ID, entity.ActionCreate,
		nil, toJSONB(po), "api")
	s.publishPOUpdate(po.ID, "create")
	return po, nil
}

// UpdatePO 草稿编辑：行项/日期/备注。仅创建人或运营角色可改，仅草稿可改。
func (s *POService) UpdatePO(ctx context.Context, actor Actor, id string, req *UpdatePORequest) (*entity.PurchaseOrder, error) {
	po, err := s.findPO(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.UserID != po.CreatedBy && !IsOperator(actor.Role) {
		return nil, ForbiddenErr("仅创建人或运营角色可编辑订单")
	}
	if po.Status != entity.POStatusDraft {
		return nil, InvalidTransitionErr("仅草稿状态可编辑，当前状态：%s", po.Status)
	}

	before := toJSONB(po)

	if req.Tax != nil {
		po.Tax = *req.Tax
	}
	if req.Shipping != nil {
		po.Shipping = *req.Shipping
	}
	if req.ExpectedDate != nil {
		po.ExpectedDate = req.ExpectedDate
	}
	if req.Notes != nil {
		po.Notes = *req.Notes
	}
	if req.Items != nil {
		items, err := s.buildItems(ctx, po.ID, *req.Items)
		if err != nil {
			return nil, err
		}
		po.Items = items
	}
	recomputeTotals(po)
	po.LastModifiedBy = actor.UserID

	// 写入时再带一次draft前置条件，读检查和写之间被并发提交抢先则编辑落空
	ok, err := s.poRepo.ReplaceItems(ctx, po)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, InvalidTransitionErr("订单状态已被其他操作变更")
	}

	s.auditRepo.Record(ctx, actor.UserID, entity.EntityTypePurchaseOrder, po.ID, entity.ActionUpdate,
		before, toJSONB(po), "api")
	s.publishPOUpdate(po.ID, "update")
	return s.findPO(ctx, po.ID)
}

// SubmitPO 提交审批：draft → submitted，记录提交人与来源信息
func (s *POService) SubmitPO(ctx context.Context, actor Actor, id string) (*entity.PurchaseOrder, error) {
	po, err := s.findPO(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanSubmitPO(actor.Role) {
		return nil, ForbiddenErr("当前角色无权提交采购订单")
	}
	if po.Status != entity.POStatusDraft {
		return nil, InvalidTransitionErr("仅草稿可提交，当前状态：%s", po.Status)
	}
	if len(po.Items) == 0 {
		return nil, ValidationErr("不能提交没有行项的订单")
	}

	now := time.Now()
	ok, err := s.poRepo.UpdateStatusIf(ctx, id, entity.POStatusDraft, map[string]interface{}{
		"status":           entity.POStatusSubmitted,
		"submitted_at":     now,
		"submitted_by":     actor.UserID,
		"ip_address":       actor.IPAddress,
		"user_agent":       actor.UserAgent,
		"last_modified_by": actor.UserID,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, InvalidTransitionErr("订单状态已被其他操作变更")
	}

	s.auditRepo.Record(ctx, actor.UserID, entity.EntityTypePurchaseOrder, id, entity.ActionUpdate,
		entity.JSONB{"status": entity.POStatusDraft},
		entity.JSONB{"status": entity.POStatusSubmitted, "ip": actor.IPAddress},
		"api")
	s.publishPOUpdate(id, "submit")
	return s.findPO(ctx, id)
}

// ApprovePO 审批通过:submitted → approved，并尽力扣减资本账。
// 扣减失败只记日志，审批照常生效（既有财务对账流程兜底）。
func (s *POService) ApprovePO(ctx context.Context, actor Actor, id string) (*entity.PurchaseOrder, error) {
	po, err := s.findPO(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanApprovePO(actor.Role) {
		return nil, ForbiddenErr("当前角色无权审批采购订单")
	}
	if po.Status != entity.POStatusSubmitted {
		return nil, InvalidTransitionErr("仅已提交订单可审批，当前状态：%s", po.Status)
	}

	now := time.Now()
	ok, err := s.poRepo.UpdateStatusIf(ctx, id, entity.POStatusSubmitted, map[string]interface{}{
		"status":           entity.POStatusApproved,
		"approved_at":      now,
		"approved_by":      actor.UserID,
		"ip_address":       actor.IPAddress,
		"user_agent":       actor.UserAgent,
		"last_modified_by": actor.UserID,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, InvalidTransitionErr("订单状态已被其他操作变更")
	}

	if s.capital != nil {
		memo := fmt.Sprintf("采购订单 %s", po.PONumber)
		if derr := s.capital.SpendCapital(ctx, po.TotalAmount, memo, po.ID, entity.EntityTypePurchaseOrder, actor.UserID); derr != nil {
			log.Printf("[IMS] 资本账扣减失败 po=%s amount=%.2f: %v", po.PONumber, po.TotalAmount, derr)
		}
	}

	s.auditRepo.Record(ctx, actor.UserID, entity.EntityTypePurchaseOrder, id, entity.ActionUpdate,
		entity.JSONB{"status": entity.POStatusSubmitted},
		entity.JSONB{"status": entity.POStatusApproved},
		"api")
	s.publishPOUpdate(id, "approve")
	return s.findPO(ctx, id)
}

// RejectPO 驳回：submitted → draft，清空提交信息可重新编辑
func (s *POService) RejectPO(ctx context.Context, actor Actor, id string) (*entity.PurchaseOrder, error) {
	po, err := s.findPO(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanApprovePO(actor.Role) {
		return nil, ForbiddenErr("当前角色无权驳回采购订单")
	}
	if po.Status != entity.POStatusSubmitted {
		return nil, InvalidTransitionErr("仅已提交订单可驳回，当前状态：%s", po.Status)
	}

	now := time.Now()
	ok, err := s.poRepo.UpdateStatusIf(ctx, id, entity.POStatusSubmitted, map[string]interface{}{
		"status":           entity.POStatusDraft,
		"rejected_at":      now,
		"rejected_by":      actor.UserID,
		"submitted_at":     nil,
		"submitted_by":     nil,
		"last_modified_by": actor.UserID,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, InvalidTransitionErr("订单状态已被其他操作变更")
	}

	s.auditRepo.Record(ctx, actor.UserID, entity.EntityTypePurchaseOrder, id, entity.ActionUpdate,
		entity.JSONB{"status": entity.POStatusSubmitted},
		entity.JSONB{"status": entity.POStatusDraft, "op": "reject"},
		"api")
	s.publishPOUpdate(id, "reject")
	return s.findPO(ctx, id)
}

// DeliverPO 收货：approved → delivered，逐行项入库。
// 先抢状态迁移再入库，并发的第二次收货在状态前置条件上失败，不会重复加库存。
func (s *POService) DeliverPO(ctx context.Context, actor Actor, id string) (*entity.PurchaseOrder, error) {
	po, err := s.findPO(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanDeliverPO(actor.Role) {
		return nil, ForbiddenErr("当前角色无权收货")
	}
	if po.Status != entity.POStatusApproved {
		return nil, InvalidTransitionErr("仅已审批订单可收货，当前状态：%s", po.Status)
	}

	now := time.Now()
	ok, err := s.poRepo.UpdateStatusIf(ctx, id, entity.POStatusApproved, map[string]interface{}{
		"status":           entity.POStatusDelivered,
		"delivered_at":     now,
		"last_modified_by": actor.UserID,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, InvalidTransitionErr("订单状态已被其他操作变更")
	}

	for _, item := range po.Items {
		if _, rerr := s.stock.Replenish(ctx, actor.UserID, item.PartID, item.Quantity, "po_delivery"); rerr != nil {
			// 零件可能已被物理删除，跳过该行继续收货其余行项
			log.Printf("[IMS] 收货入库失败 po=%s part=%s qty=%d: %v", po.PONumber, item.PartID, item.Quantity, rerr)
		}
	}

	s.auditRepo.Record(ctx, actor.UserID, entity.EntityTypePurchaseOrder, id, entity.ActionUpdate,
		entity.JSONB{"status": entity.POStatusApproved},
		entity.JSONB{"status": entity.POStatusDelivered},
		"api")
	s.publishPOUpdate(id, "deliver")
	return s.findPO(ctx, id)
}

// DeletePO 删除草稿订单（硬删除），仅运营角色可删
func (s *POService) DeletePO(ctx context.Context, actor Actor, id string) error {
	po, err := s.findPO(ctx, id)
	if err != nil {
		return err
	}
	if !IsOperator(actor.Role) {
		return ForbiddenErr("仅运营角色可删除订单")
	}
	if po.Status != entity.POStatusDraft {
		return InvalidTransitionErr("仅草稿可删除，当前状态：%s", po.Status)
	}

	deleted, err := s.poRepo.DeleteIfDraft(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return InvalidTransitionErr("订单状态已被其他操作变更")
	}

	s.auditRepo.Record(ctx, actor.UserID, entity.EntityTypePurchaseOrder, id, entity.ActionDelete,
		toJSONB(po), nil, "api")
	s.publishPOUpdate(id, "delete")
	return nil
}

// === 内部 ===

func (s *POService) findPO(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, NotFoundErr("采购订单不存在")
		}
		return nil, err
	}
	return po, nil
}

// buildItems 校验并构建行项，零件信息冗余到行项便于历史查看
func (s *POService) buildItems(ctx context.Context, poID string, reqs []CreatePOItemRequest) ([]entity.POItem, error) {
	items := make([]entity.POItem, 0, len(reqs))
	for i, r := range reqs {
		if r.Quantity <= 0 {
			return nil, ValidationErr("第%d行数量必须大于0", i+1)
		}
		if r.UnitPrice < 0 {
			return nil, ValidationErr("第%d行单价不能为负", i+1)
		}
		part, err := s.partRepo.FindByID(ctx, r.PartID)
		if err != nil {
			if err == repository.ErrNotFound {
				return nil, ValidationErr("第%d行零件不存在", i+1)
			}
			return nil, err
		}
		items = append(items, entity.POItem{
			ID:        uuid.New().String()[:32],
			POID:      poID,
			PartID:    part.ID,
			PartCode:  part.PartCode,
			PartName:  part.Name,
			Quantity:  r.Quantity,
			UnitPrice: r.UnitPrice,
			SortOrder: i + 1,
		})
	}
	return items, nil
}

// recomputeTotals 每次保存都由行项重算金额，客户端合计仅作展示参考
func recomputeTotals(po *entity.PurchaseOrder) {
	var subtotal float64
	for i := range po.Items {
		po.Items[i].TotalPrice = float64(po.Items[i].Quantity) * po.Items[i].UnitPrice
		subtotal += po.Items[i].TotalPrice
	}
	po.Subtotal = subtotal
	po.TotalAmount = subtotal + po.Tax + po.Shipping
}

func (s *POService) publishPOUpdate(poID, action string) {
	if s.events != nil {
		s.events.PublishPOUpdate(poID, action)
	}
}
