package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories IMS仓库集合
type Repositories struct {
	Part         *PartRepository
	Supplier     *SupplierRepository
	PO           *PORepository
	AuditLog     *AuditLogRepository
	Notification *NotificationRepository
	UsageLog     *UsageLogRepository
}

// NewRepositories 创建IMS仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Part:         NewPartRepository(db),
		Supplier:     NewSupplierRepository(db),
		PO:           NewPORepository(db),
		AuditLog:     NewAuditLogRepository(db),
		Notification: NewNotificationRepository(db),
		UsageLog:     NewUsageLogRepository(db),
	}
}
