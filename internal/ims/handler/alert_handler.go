package handler

import (
	"github.com/bitfantasy/garo/internal/ims/service"
	"github.com/gin-gonic/gin"
)

// AlertHandler 低库存告警处理器
type AlertHandler struct {
	svc *service.AlertService
}

func NewAlertHandler(svc *service.AlertService) *AlertHandler {
	return &AlertHandler{svc: svc}
}

// TriggerSweep 手动触发全量低库存扫描（盘点后、批量导入后使用）
// POST /api/v1/ims/alerts/sweep
func (h *AlertHandler) TriggerSweep(c *gin.Context) {
	actor := GetActor(c)
	if !service.IsOperator(actor.Role) {
		Forbidden(c, "当前角色无权触发库存扫描")
		return
	}

	result, err := h.svc.ScanAllPartsForLowStock(c.Request.Context())
	if err != nil {
		InternalError(c, "库存扫描失败: "+err.Error())
		return
	}

	Success(c, result)
}

// CheckPart 手动检查单个零件
// POST /api/v1/ims/alerts/check/:id
func (h *AlertHandler) CheckPart(c *gin.Context) {
	result, err := h.svc.CheckPartForLowStock(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err, "检查库存失败")
		return
	}
	Success(c, result)
}
