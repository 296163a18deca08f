package model

import (
	"time"
)

// InventoryItem 耗材库存表
type InventoryItem struct {
	ItemID    string    `gorm:"primaryKey;type:varchar(36)"`
	Name      string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	Category  string    `gorm:"type:varchar(32);index"` // 精油/推拿介质/耗材等
	Unit      string    `gorm:"type:varchar(16)"`       // 瓶/盒/件
	Stock     int       `gorm:"not null;default:0"`
	MinStock  int       `gorm:"not null;default:0"` // 安全库存线
	Price     float64   `gorm:"type:decimal(10,2);default:0.00"`
	Supplier  string    `gorm:"type:varchar(64)"`
	Notes     string    `gorm:"type:varchar(500)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (InventoryItem) TableName() string {
	return "inventory_item"
}

// InventoryTransaction 出入库流水表（只增不改）
type InventoryTransaction struct {
	TransactionID   string    `gorm:"primaryKey;type:varchar(36)"`
	ItemID          string    `gorm:"type:varchar(36);not null;index:idx_stock_item_date,priority:1"`
	ItemName        string    `gorm:"type:varchar(64)"` // 冗余，便于流水展示
	Type            string    `gorm:"type:varchar(8);not null"` // in/out
	Quantity        int       `gorm:"not null"`
	BalanceAfter    int       `gorm:"not null"` // 变动后结存
	UnitPrice       float64   `gorm:"type:decimal(10,2);default:0.00"`
	OperatorName    string    `gorm:"type:varchar(32)"`
	Notes           string    `gorm:"type:varchar(500)"`
	TransactionDate time.Time `gorm:"not null;index:idx_stock_item_date,priority:2"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (InventoryTransaction) TableName() string {
	return "inventory_transaction"
}
