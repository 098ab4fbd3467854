package handler

import (
	"context"

	"github.com/bitfantasy/garo/internal/ims/entity"
	"github.com/gin-gonic/gin"
)

// AuditStore 审计日志查询存储
type AuditStore interface {
	FindByEntity(ctx context.Context, entityType, entityID string, page, pageSize int) ([]entity.AuditLog, int64, error)
}

// AuditHandler 审计日志处理器（只读）
type AuditHandler struct {
	store AuditStore
}

func NewAuditHandler(store AuditStore) *AuditHandler {
	return &AuditHandler{store: store}
}

// ListAuditLogs 按实体查询审计轨迹
// GET /api/v1/ims/audit-logs?entity_type=purchase_order&entity_id=xxx
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	entityType := c.Query("entity_type")
	entityID := c.Query("entity_id")
	if entityType == "" {
		BadRequest(c, "entity_type不能为空")
		return
	}

	page, pageSize := GetPagination(c)
	items, total, err := h.store.FindByEntity(c.Request.Context(), entityType, entityID, page, pageSize)
	if err != nil {
		InternalError(c, "获取审计日志失败: "+err.Error())
		return
	}

	Success(c, listOf(items, page, pageSize, total))
}
