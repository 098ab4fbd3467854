package handler

import (
	"github.com/bitfantasy/garo/internal/ims/service"
	"github.com/gin-gonic/gin"
)

// POHandler 采购订单处理器
type POHandler struct {
	svc *service.POService
}

func NewPOHandler(svc *service.POService) *POHandler {
	return &POHandler{svc: svc}
}

// ListPOs 采购订单列表
// GET /api/v1/ims/purchase-orders?supplier_id=xxx&status=xxx&search=xxx
func (h *POHandler) ListPOs(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"supplier_id": c.Query("supplier_id"),
		"status":      c.Query("status"),
		"created_by":  c.Query("created_by"),
		"search":      c.Query("search"),
	}

	items, total, err := h.svc.ListPOs(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取采购订单列表失败: "+err.Error())
		return
	}

	Success(c, listOf(items, page, pageSize, total))
}

// GetPO 采购订单详情
// GET /api/v1/ims/purchase-orders/:id
func (h *POHandler) GetPO(c *gin.Context) {
	po, err := h.svc.GetPO(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err, "获取采购订单失败")
		return
	}
	Success(c, po)
}

// CreatePO 创建采购订单草稿
// POST /api/v1/ims/purchase-orders
func (h *POHandler) CreatePO(c *gin.Context) {
	var req service.CreatePORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	po, err := h.svc.CreatePO(c.Request.Context(), GetActor(c), &req)
	if err != nil {
		RespondError(c, err, "创建采购订单失败")
		return
	}

	Created(c, po)
}

// UpdatePO 编辑草稿订单
// PUT /api/v1/ims/purchase-orders/:id
func (h *POHandler) UpdatePO(c *gin.Context) {
	var req service.UpdatePORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	po, err := h.svc.UpdatePO(c.Request.Context(), GetActor(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err, "更新采购订单失败")
		return
	}

	Success(c, po)
}

// SubmitPO 提交审批
// POST /api/v1/ims/purchase-orders/:id/submit
func (h *POHandler) SubmitPO(c *gin.Context) {
	po, err := h.svc.SubmitPO(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		RespondError(c, err, "提交失败")
		return
	}
	Success(c, po)
}

// ApprovePO 审批通过
// POST /api/v1/ims/purchase-orders/:id/approve
func (h *POHandler) ApprovePO(c *gin.Context) {
	po, err := h.svc.ApprovePO(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		RespondError(c, err, "审批失败")
		return
	}
	Success(c, po)
}

// RejectPO 驳回
// POST /api/v1/ims/purchase-orders/:id/reject
func (h *POHandler) RejectPO(c *gin.Context) {
	po, err := h.svc.RejectPO(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		RespondError(c, err, "驳回失败")
		return
	}
	Success(c, po)
}

// DeliverPO 收货入库
// POST /api/v1/ims/purchase-orders/:id/deliver
func (h *POHandler) DeliverPO(c *gin.Context) {
	po, err := h.svc.DeliverPO(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		RespondError(c, err, "收货失败")
		return
	}
	Success(c, po)
}

// DeletePO 删除草稿订单
// DELETE /api/v1/ims/purchase-orders/:id
func (h *POHandler) DeletePO(c *gin.Context) {
	if err := h.svc.DeletePO(c.Request.Context(), GetActor(c), c.Param("id")); err != nil {
		RespondError(c, err, "删除失败")
		return
	}
	Success(c, nil)
}
