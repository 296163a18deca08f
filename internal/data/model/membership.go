package model

import (
	"time"
)

// MembershipType 卡种模板表（只读模板，交易不修改）
type MembershipType struct {
	TypeID       string    `gorm:"primaryKey;type:varchar(36)"`
	Name         string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	Category     string    `gorm:"type:varchar(16);not null"` // count/period/mixed/value
	Price        float64   `gorm:"type:decimal(10,2);default:0.00"`
	ValueAmount  float64   `gorm:"type:decimal(10,2);default:0.00"` // 储值卡面值
	ServiceCount int       `gorm:"default:0"`                       // 次卡包含次数
	ValidityDays int       `gorm:"default:0"`                       // 有效期天数
	Active       bool      `gorm:"default:true"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (MembershipType) TableName() string {
	return "membership_type"
}

// Membership 会员卡表
type Membership struct {
	MembershipID     string     `gorm:"primaryKey;type:varchar(36)"`
	CardNumber       string     `gorm:"type:varchar(16);not null;uniqueIndex"` // MK{yyyyMM}{seq3}
	CustomerID       string     `gorm:"type:varchar(36);not null;index"`
	TypeID           string     `gorm:"type:varchar(36);index"` // 可选的卡种模板
	CardType         string     `gorm:"type:varchar(16);not null"` // count/period/mixed/value
	Balance          float64    `gorm:"type:decimal(10,2);default:0.00"`
	Count            int        `gorm:"default:0"`
	ExpiryDate       *time.Time `gorm:"index"`
	Status           string     `gorm:"type:varchar(16);not null;default:'active';index"`
	LastRechargeDate *time.Time
	LastConsumeDate  *time.Time
	Notes            string    `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Membership) TableName() string {
	return "membership"
}

// RechargeRecord 充值流水表（只增不改）
type RechargeRecord struct {
	RechargeID    string    `gorm:"primaryKey;type:varchar(36)"`
	MembershipID  string    `gorm:"type:varchar(36);not null;index:idx_recharge_card_date,priority:1"`
	CustomerID    string    `gorm:"type:varchar(36);not null;index"`
	RechargeType  string    `gorm:"type:varchar(16);not null"` // count/amount/extend/mixed
	Amount        float64   `gorm:"type:decimal(10,2);default:0.00"` // 计入卡余额的金额
	RechargeCount int       `gorm:"default:0"`                       // 充入次数
	ExtendMonths  int       `gorm:"default:0"`                       // 延长月数
	BonusAmount   float64   `gorm:"type:decimal(10,2);default:0.00"` // 开卡赠送金额
	TotalAmount   float64   `gorm:"type:decimal(10,2);not null"`     // 实收金额
	PaymentMethod string    `gorm:"type:varchar(16);not null"`
	ReceiptNumber string    `gorm:"type:varchar(20);not null;uniqueIndex"` // RC{yyyyMMdd}{seq4}
	Source        string    `gorm:"type:varchar(16);not null;default:'recharge';index"` // issue/recharge
	RechargeDate  time.Time `gorm:"not null;index:idx_recharge_card_date,priority:2"`
	OperatorName  string    `gorm:"type:varchar(32)"`
	Notes         string    `gorm:"type:varchar(500)"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (RechargeRecord) TableName() string {
	return "recharge_record"
}

// ConsumptionRecord 消费流水表（只增不改）
type ConsumptionRecord struct {
	ConsumptionID string    `gorm:"primaryKey;type:varchar(36)"`
	MembershipID  string    `gorm:"type:varchar(36);not null;index:idx_consume_card_date,priority:1"`
	CustomerID    string    `gorm:"type:varchar(36);not null;index"` // 冗余，便于统计
	ChildName     string    `gorm:"type:varchar(32)"`               // 冗余，便于报表展示
	ServiceName   string    `gorm:"type:varchar(64);not null"`
	Amount        float64   `gorm:"type:decimal(10,2);default:0.00"`
	Count         int       `gorm:"default:1"`
	ConsumeDate   time.Time `gorm:"not null;index:idx_consume_card_date,priority:2"`
	ReceiptNumber string    `gorm:"type:varchar(20);not null;uniqueIndex"` // CS{yyyyMMdd}{seq4}
	TherapistName string    `gorm:"type:varchar(32)"`
	OperatorName  string    `gorm:"type:varchar(32)"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (ConsumptionRecord) TableName() string {
	return "consumption_record"
}

// SequenceCounter 单据序列号计数表（按 scope 原子递增）
type SequenceCounter struct {
	Scope     string    `gorm:"primaryKey;type:varchar(32)"` // 例如 card:202608 / rc:20260831
	Seq       int       `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (SequenceCounter) TableName() string {
	return "sequence_counter"
}
