package handler

import (
	"time"

	"github.com/bitfantasy/garo/internal/ims/service"
	"github.com/gin-gonic/gin"
)

// PartHandler 零件与库存台账处理器
type PartHandler struct {
	svc   *service.PartService
	stock *service.StockService
}

func NewPartHandler(svc *service.PartService, stock *service.StockService) *PartHandler {
	return &PartHandler{svc: svc, stock: stock}
}

// ReserveStockRequest 预留库存请求
type ReserveStockRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// ConsumeStockRequest 领用出库请求
type ConsumeStockRequest struct {
	Quantity int     `json:"quantity" binding:"required,gt=0"`
	JobID    *string `json:"job_id"`
	Note     string  `json:"note"`
}

// ReplenishStockRequest 手工入库请求
type ReplenishStockRequest struct {
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Source   string `json:"source"`
}

// ListParts 零件列表
// GET /api/v1/ims/parts?search=xxx&category=xxx&supplier_id=xxx&low_stock=true&include_inactive=true
func (h *PartHandler) ListParts(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"search":           c.Query("search"),
		"category":         c.Query("category"),
		"supplier_id":      c.Query("supplier_id"),
		"low_stock":        c.Query("low_stock"),
		"include_inactive": c.Query("include_inactive"),
	}

	items, total, err := h.svc.ListParts(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取零件列表失败: "+err.Error())
		return
	}

	Success(c, listOf(items, page, pageSize, total))
}

// GetPart 零件详情
// GET /api/v1/ims/parts/:id
func (h *PartHandler) GetPart(c *gin.Context) {
	part, err := h.svc.GetPart(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err, "获取零件失败")
		return
	}
	Success(c, part)
}

// CreatePart 创建零件
// POST /api/v1/ims/parts
func (h *PartHandler) CreatePart(c *gin.Context) {
	var req service.CreatePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	part, err := h.svc.CreatePart(c.Request.Context(), GetActor(c), &req)
	if err != nil {
		RespondError(c, err, "创建零件失败")
		return
	}

	Created(c, part)
}

// UpdatePart 更新零件档案（不含库存数量）
// PUT /api/v1/ims/parts/:id
func (h *PartHandler) UpdatePart(c *gin.Context) {
	var req service.UpdatePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	part, err := h.svc.UpdatePart(c.Request.Context(), GetActor(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err, "更新零件失败")
		return
	}

	Success(c, part)
}

// DeactivatePart 停用零件（软删除）
// DELETE /api/v1/ims/parts/:id
func (h *PartHandler) DeactivatePart(c *gin.Context) {
	if err := h.svc.DeactivatePart(c.Request.Context(), GetActor(c), c.Param("id")); err != nil {
		RespondError(c, err, "停用零件失败")
		return
	}
	Success(c, nil)
}

// RestorePart 恢复已停用零件
// POST /api/v1/ims/parts/:id/restore
func (h *PartHandler) RestorePart(c *gin.Context) {
	if err := h.svc.RestorePart(c.Request.Context(), GetActor(c), c.Param("id")); err != nil {
		RespondError(c, err, "恢复零件失败")
		return
	}
	Success(c, nil)
}

// HardDeletePart 物理删除零件
// DELETE /api/v1/ims/parts/:id/hard
func (h *PartHandler) HardDeletePart(c *gin.Context) {
	if err := h.svc.HardDeletePart(c.Request.Context(), GetActor(c), c.Param("id")); err != nil {
		RespondError(c, err, "删除零件失败")
		return
	}
	Success(c, nil)
}

// ReserveStock 预留库存（工单开单时占用）
// POST /api/v1/ims/parts/:id/reserve
func (h *PartHandler) ReserveStock(c *gin.Context) {
	var req ReserveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	part, err := h.stock.Reserve(c.Request.Context(), GetUserID(c), c.Param("id"), req.Quantity)
	if err != nil {
		RespondError(c, err, "预留库存失败")
		return
	}

	Success(c, part)
}

// ConsumeStock 领用出库（实际安装到车上）
// POST /api/v1/ims/parts/:id/consume
func (h *PartHandler) ConsumeStock(c *gin.Context) {
	var req ConsumeStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	part, err := h.stock.Consume(c.Request.Context(), GetUserID(c), c.Param("id"), req.Quantity, req.JobID, req.Note)
	if err != nil {
		RespondError(c, err, "领用出库失败")
		return
	}

	Success(c, part)
}

// ReplenishStock 手工入库（盘盈、退料等非采购入库）
// POST /api/v1/ims/parts/:id/replenish
func (h *PartHandler) ReplenishStock(c *gin.Context) {
	var req ReplenishStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	source := req.Source
	if source == "" {
		source = "manual"
	}

	part, err := h.stock.Replenish(c.Request.Context(), GetUserID(c), c.Param("id"), req.Quantity, source)
	if err != nil {
		RespondError(c, err, "入库失败")
		return
	}

	Success(c, part)
}

// ListUsage 领用记录查询
// GET /api/v1/ims/usage?part_id=xxx&used_by=xxx&job_id=xxx&from=RFC3339&to=RFC3339
func (h *PartHandler) ListUsage(c *gin.Context) {
	page, pageSize := GetPagination(c)

	var from, to *time.Time
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			from = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			to = &t
		}
	}

	items, total, err := h.svc.ListUsage(c.Request.Context(),
		c.Query("part_id"), c.Query("used_by"), c.Query("job_id"), from, to, page, pageSize)
	if err != nil {
		InternalError(c, "获取领用记录失败: "+err.Error())
		return
	}

	Success(c, listOf(items, page, pageSize, total))
}
