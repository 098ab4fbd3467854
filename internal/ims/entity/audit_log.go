package entity

import "time"

// AuditLog 审计日志，只追加，不修改不删除
type AuditLog struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	EntityType string `json:"entity_type" gorm:"size:50;not null;index:idx_audit_entity"` // Part/Supplier/PurchaseOrder
	EntityID   string `json:"entity_id" gorm:"size:32;not null;index:idx_audit_entity"`
	Action     string `json:"action" gorm:"size:50;not null"` // create/update/delete/restore/hard_delete

	Before JSONB `json:"before" gorm:"type:jsonb"`
	After  JSONB `json:"after" gorm:"type:jsonb"`

	UserID    string    `json:"user_id" gorm:"size:32;index"`
	Source    string    `json:"source" gorm:"size:50"` // api/system/sweep
	CreatedAt time.Time `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "ims_audit_logs"
}

// 审计实体类型
const (
	EntityTypePart          = "Part"
	EntityTypeSupplier      = "Supplier"
	EntityTypePurchaseOrder = "PurchaseOrder"
)

// 审计动作
const (
	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionDelete     = "delete"
	ActionRestore    = "restore"
	ActionHardDelete = "hard_delete"
)
