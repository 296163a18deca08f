package model

import (
	"time"
)

// Customer 客户表
type Customer struct {
	CustomerID       string     `gorm:"primaryKey;type:varchar(36)"`
	ChildName        string     `gorm:"type:varchar(32);not null;index"`
	Gender           string     `gorm:"type:varchar(8)"`
	BirthDate        *time.Time `gorm:"type:date"`
	ParentName       string     `gorm:"type:varchar(32)"`
	Phone            string     `gorm:"type:varchar(20);not null;uniqueIndex"`
	Address          string     `gorm:"type:varchar(255)"`
	Source           string     `gorm:"type:varchar(32)"` // 获客渠道
	MembershipStatus string     `gorm:"type:varchar(16);not null;default:'none';index"` // none/active/expiring/expired 冗余缓存
	Notes            string     `gorm:"type:varchar(500)"`
	CreatedAt        time.Time  `gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customer"
}
