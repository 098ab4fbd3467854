package entity

import "time"

// NotificationTypeLowStock 低库存站内通知类型
const NotificationTypeLowStock = "LOW_STOCK"

// Notification 站内通知
// 同一零件在被前端清除前最多存在一条未读的低库存通知（创建时按part_id去重）
type Notification struct {
	ID      string `json:"id" gorm:"primaryKey;size:32"`
	Type    string `json:"type" gorm:"size:32;not null;index"`
	Title   string `json:"title" gorm:"size:200;not null"`
	Message string `json:"message" gorm:"type:text"`
	Link    string `json:"link" gorm:"size:500"`

	// 去重用冗余列，Meta里同时保留part_id/part_code给前端
	PartID string `json:"part_id" gorm:"size:32;index"`
	Meta   JSONB  `json:"meta" gorm:"type:jsonb"`

	IsRead    bool      `json:"is_read" gorm:"default:false;index"`
	CreatedAt time.Time `json:"created_at"`
}

func (Notification) TableName() string {
	return "ims_notifications"
}
