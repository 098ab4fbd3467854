package entity

import (
	"strings"
	"time"
)

// StockLevel 零件库存数量区块，全部为非负整数
// 不变式：每次变更后必须满足 reserved <= on_hand（在操作层保证，不依赖数据库约束）
type StockLevel struct {
	OnHand       int `json:"on_hand" gorm:"column:stock_on_hand;not null;default:0"`
	Reserved     int `json:"reserved" gorm:"column:stock_reserved;not null;default:0"`
	MinLevel     int `json:"min_level" gorm:"column:stock_min_level;not null;default:0"`
	MaxLevel     int `json:"max_level" gorm:"column:stock_max_level;not null;default:0"` // 0 = 不设上限
	ReorderLevel int `json:"reorder_level" gorm:"column:stock_reorder_level;not null;default:0"`
}

// Part 库存零件
type Part struct {
	ID            string  `json:"id" gorm:"primaryKey;size:32"`
	PartCode      string  `json:"part_code" gorm:"size:50;uniqueIndex;not null"`
	Name          string  `json:"name" gorm:"size:200;not null"`
	Category      string  `json:"category" gorm:"size:50"` // engine/brake/electrical/body/consumable/other
	Specification string  `json:"specification" gorm:"size:500"`
	Unit          string  `json:"unit" gorm:"size:20;default:pcs"`
	UnitPrice     float64 `json:"unit_price" gorm:"type:decimal(12,2);default:0"`
	Location      string  `json:"location" gorm:"size:100"` // 货架位置
	SupplierID    *string `json:"supplier_id" gorm:"size:32;index"`

	Stock StockLevel `json:"stock" gorm:"embedded"`

	// 低库存告警冷却标记
	LastAlertedAt *time.Time `json:"last_alerted_at"`

	IsActive  bool      `json:"is_active" gorm:"default:true;index"`
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`

	Supplier *Supplier `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
}

func (Part) TableName() string {
	return "ims_parts"
}

// Available 可用库存 = max(0, on_hand - reserved)，派生值不落库
func (p *Part) Available() int {
	a := p.Stock.OnHand - p.Stock.Reserved
	if a < 0 {
		return 0
	}
	return a
}

// NormalizePartCode 零件编码统一大写去空格
func NormalizePartCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
