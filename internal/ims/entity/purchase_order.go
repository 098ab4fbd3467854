package entity

import "time"

// PurchaseOrder 采购订单
type PurchaseOrder struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	PONumber   string `json:"po_number" gorm:"size:32;uniqueIndex;not null"`
	SupplierID string `json:"supplier_id" gorm:"size:32;not null;index"`
	Status     string `json:"status" gorm:"size:20;default:draft"` // draft/submitted/approved/delivered

	// 金额，始终由行项服务端重算，不信任客户端传入的合计
	Subtotal    float64 `json:"subtotal" gorm:"type:decimal(15,2);default:0"`
	Tax         float64 `json:"tax" gorm:"type:decimal(15,2);default:0"`
	Shipping    float64 `json:"shipping" gorm:"type:decimal(15,2);default:0"`
	TotalAmount float64 `json:"total_amount" gorm:"type:decimal(15,2);default:0"`

	ExpectedDate *time.Time `json:"expected_date"`

	// 各环节操作人
	CreatedBy      string  `json:"created_by" gorm:"size:32;not null"`
	SubmittedBy    *string `json:"submitted_by" gorm:"size:32"`
	ApprovedBy     *string `json:"approved_by" gorm:"size:32"`
	RejectedBy     *string `json:"rejected_by" gorm:"size:32"`
	LastModifiedBy string  `json:"last_modified_by" gorm:"size:32"`

	// 各环节时间戳
	SubmittedAt *time.Time `json:"submitted_at"`
	ApprovedAt  *time.Time `json:"approved_at"`
	RejectedAt  *time.Time `json:"rejected_at"`
	DeliveredAt *time.Time `json:"delivered_at"`

	// 提交/审批时记录的来源信息，仅用于审计
	IPAddress string `json:"ip_address" gorm:"size:45"`
	UserAgent string `json:"user_agent" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`

	Items    []POItem  `json:"items,omitempty" gorm:"foreignKey:POID"`
	Supplier *Supplier `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
}

func (PurchaseOrder) TableName() string {
	return "ims_purchase_orders"
}

// PO状态
const (
	POStatusDraft     = "draft"
	POStatusSubmitted = "submitted"
	POStatusApproved  = "approved"
	POStatusDelivered = "delivered"
)

// POItem PO行项
type POItem struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	POID     string `json:"po_id" gorm:"size:32;not null;index"`
	PartID   string `json:"part_id" gorm:"size:32;not null;index"`
	PartCode string `json:"part_code" gorm:"size:50"`
	PartName string `json:"part_name" gorm:"size:200"`

	Quantity   int     `json:"quantity" gorm:"not null"`
	UnitPrice  float64 `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	TotalPrice float64 `json:"total_price" gorm:"type:decimal(15,2);not null"` // quantity*unit_price，服务端计算

	SortOrder int       `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Part *Part `json:"part,omitempty" gorm:"foreignKey:PartID"`
}

func (POItem) TableName() string {
	return "ims_po_items"
}
