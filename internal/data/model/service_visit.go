package model

import (
	"time"
)

// Therapist 理疗师表
type Therapist struct {
	TherapistID string    `gorm:"primaryKey;type:varchar(36)"`
	Name        string    `gorm:"type:varchar(32);not null;uniqueIndex"`
	Phone       string    `gorm:"type:varchar(20)"`
	Level       string    `gorm:"type:varchar(16)"` // 初级/中级/高级
	Specialty   string    `gorm:"type:varchar(64)"`
	Active      bool      `gorm:"default:true;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Therapist) TableName() string {
	return "therapist"
}

// ServiceVisit 服务记录表（到店服务一次一条）
type ServiceVisit struct {
	ServiceID     string    `gorm:"primaryKey;type:varchar(36)"`
	CustomerID    string    `gorm:"type:varchar(36);not null;index:idx_visit_customer_date,priority:1"`
	ChildName     string    `gorm:"type:varchar(32)"`       // 冗余，便于报表展示
	MembershipID  string    `gorm:"type:varchar(36);index"` // 会员卡支付时关联
	ServiceType   string    `gorm:"type:varchar(64);not null"`
	ServiceFee    float64   `gorm:"type:decimal(10,2);default:0.00"`
	PaymentMethod string    `gorm:"type:varchar(16);not null"` // cash/wechat/alipay/card/membership
	TherapistID   string    `gorm:"type:varchar(36);index"`
	TherapistName string    `gorm:"type:varchar(32);index"` // 冗余，统计按姓名分组
	Duration      int       `gorm:"default:0"`              // 时长（分钟）
	Rating        int       `gorm:"default:0"`              // 1-5，0 表示未评分
	ServiceDate   time.Time `gorm:"not null;index:idx_visit_customer_date,priority:2;index"`
	Notes         string    `gorm:"type:varchar(500)"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (ServiceVisit) TableName() string {
	return "service_visit"
}
