package handler

import (
	"context"
	"errors"

	"github.com/bitfantasy/garo/internal/ims/entity"
	"github.com/bitfantasy/garo/internal/ims/repository"
	"github.com/gin-gonic/gin"
)

// NotificationStore 通知查询存储
type NotificationStore interface {
	FindAll(ctx context.Context, page, pageSize int, unreadOnly bool) ([]entity.Notification, int64, error)
	MarkRead(ctx context.Context, id string) error
}

// NotificationHandler 站内通知处理器
type NotificationHandler struct {
	store NotificationStore
}

func NewNotificationHandler(store NotificationStore) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// ListNotifications 通知列表
// GET /api/v1/ims/notifications?unread_only=true
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	page, pageSize := GetPagination(c)
	unreadOnly := c.Query("unread_only") == "true"

	items, total, err := h.store.FindAll(c.Request.Context(), page, pageSize, unreadOnly)
	if err != nil {
		InternalError(c, "获取通知列表失败: "+err.Error())
		return
	}

	Success(c, listOf(items, page, pageSize, total))
}

// MarkNotificationRead 标记已读
// POST /api/v1/ims/notifications/:id/read
func (h *NotificationHandler) MarkNotificationRead(c *gin.Context) {
	if err := h.store.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "通知不存在")
			return
		}
		InternalError(c, "标记已读失败: "+err.Error())
		return
	}
	Success(c, nil)
}
