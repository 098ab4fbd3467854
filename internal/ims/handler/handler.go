package handler

import (
	"strconv"

	"github.com/bitfantasy/garo/internal/ims/service"
	"github.com/gin-gonic/gin"
)

// Handlers IMS处理器集合
type Handlers struct {
	Part         *PartHandler
	Supplier     *SupplierHandler
	PO           *POHandler
	Notification *NotificationHandler
	Audit        *AuditHandler
	Alert        *AlertHandler
	SSE          *SSEHandler
}

// NewHandlers 创建IMS处理器集合
func NewHandlers(
	partSvc *service.PartService,
	stockSvc *service.StockService,
	supplierSvc *service.SupplierService,
	poSvc *service.POService,
	alertSvc *service.AlertService,
	notifRepo NotificationStore,
	auditRepo AuditStore,
) *Handlers {
	return &Handlers{
		Part:         NewPartHandler(partSvc, stockSvc),
		Supplier:     NewSupplierHandler(supplierSvc),
		PO:           NewPOHandler(poSvc),
		Notification: NewNotificationHandler(notifRepo),
		Audit:        NewAuditHandler(auditRepo),
		Alert:        NewAlertHandler(alertSvc),
		SSE:          NewSSEHandler(),
	}
}

// === 响应辅助函数（与门户其他子系统保持一致） ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// RespondError 按领域错误分类映射响应码，非领域错误一律按500处理
func RespondError(c *gin.Context, err error, fallback string) {
	switch service.KindOf(err) {
	case service.KindNotFound:
		NotFound(c, err.Error())
	case service.KindForbidden:
		Forbidden(c, err.Error())
	case service.KindValidation:
		BadRequest(c, err.Error())
	case service.KindInvalidTransition:
		Error(c, 40900, err.Error())
	case service.KindInsufficientStock:
		Error(c, 40901, err.Error())
	default:
		InternalError(c, fallback+": "+err.Error())
	}
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetActor 从认证上下文提取操作人
func GetActor(c *gin.Context) service.Actor {
	return service.Actor{
		UserID:    c.GetString("user_id"),
		Name:      c.GetString("user_name"),
		Role:      c.GetString("role"),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func listOf(items interface{}, page, pageSize int, total int64) ListResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	}
}
