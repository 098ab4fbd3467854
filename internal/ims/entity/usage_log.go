package entity

import "time"

// PartUsageLog 零件领用记录，与审计日志分开，可按零件/领用人/日期范围查询
type PartUsageLog struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	PartID       string    `json:"part_id" gorm:"size:32;not null;index"`
	PartCode     string    `json:"part_code" gorm:"size:50"`
	QuantityUsed int       `json:"quantity_used" gorm:"not null"`
	UsedBy       string    `json:"used_by" gorm:"size:32;not null;index"`
	JobID        *string   `json:"job_id" gorm:"size:32;index"` // 关联工单，可空
	Note         string    `json:"note" gorm:"type:text"`
	UsedAt       time.Time `json:"used_at" gorm:"index"`
	CreatedAt    time.Time `json:"created_at"`
}

func (PartUsageLog) TableName() string {
	return "ims_part_usage_logs"
}
