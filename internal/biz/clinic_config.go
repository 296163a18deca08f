package biz

import (
	"time"

	"clinic-service/internal/conf"
)

// ClinicConfig 门店业务配置
type ClinicConfig struct {
	ExpiringSoonDays    int           // 会员卡"即将到期"判定天数
	InactiveDefaultDays int           // 沉睡客户默认判定天数
	InactiveTopN        int           // 沉睡客户列表返回条数
	BalanceCacheTTL     time.Duration // 卡余额缓存有效期
}

// NewClinicConfig 从配置创建 ClinicConfig
func NewClinicConfig(c *conf.Bootstrap) *ClinicConfig {
	config := &ClinicConfig{
		ExpiringSoonDays:    30, // 默认值
		InactiveDefaultDays: 30,
		InactiveTopN:        10,
		BalanceCacheTTL:     5 * time.Minute,
	}
	if c.Clinic != nil {
		if c.Clinic.ExpiringSoonDays > 0 {
			config.ExpiringSoonDays = c.Clinic.ExpiringSoonDays
		}
		if c.Clinic.InactiveDefaultDays > 0 {
			config.InactiveDefaultDays = c.Clinic.InactiveDefaultDays
		}
		if c.Clinic.InactiveTopN > 0 {
			config.InactiveTopN = c.Clinic.InactiveTopN
		}
		if ttl := c.Clinic.BalanceCacheTTLDuration(); ttl > 0 {
			config.BalanceCacheTTL = ttl
		}
	}
	return config
}
