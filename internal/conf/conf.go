package conf

import "time"

// Bootstrap 服务启动配置
type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	Clinic *Clinic `json:"clinic"`
}

// Server 服务端配置
type Server struct {
	Http *HTTP `json:"http"`
}

// HTTP HTTP 服务配置
type HTTP struct {
	Network string `json:"network"`
	Addr    string `json:"addr"`
	Timeout string `json:"timeout"` // 例如 "5s"
}

// TimeoutDuration 解析超时时间，解析失败返回 0
func (h *HTTP) TimeoutDuration() time.Duration {
	if h == nil || h.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(h.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Data 数据层配置
type Data struct {
	Database *Database `json:"database"`
	Redis    *Redis    `json:"redis"`
}

// Database 数据库配置
type Database struct {
	Driver       string `json:"driver"`
	Source       string `json:"source"`
	MaxIdleConns int    `json:"max_idle_conns"`
	MaxOpenConns int    `json:"max_open_conns"`
}

// Redis Redis 配置
type Redis struct {
	Addr         string `json:"addr"`
	Password     string `json:"password"`
	DB           int    `json:"db"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
}

// ReadTimeoutDuration 解析读超时
func (r *Redis) ReadTimeoutDuration() time.Duration {
	return parseDuration(r.ReadTimeout)
}

// WriteTimeoutDuration 解析写超时
func (r *Redis) WriteTimeoutDuration() time.Duration {
	return parseDuration(r.WriteTimeout)
}

// Clinic 门店业务配置
type Clinic struct {
	// ExpiringSoonDays 会员卡"即将到期"判定天数
	ExpiringSoonDays int `json:"expiring_soon_days"`
	// InactiveDefaultDays 沉睡客户默认判定天数
	InactiveDefaultDays int `json:"inactive_default_days"`
	// InactiveTopN 沉睡客户列表返回条数
	InactiveTopN int `json:"inactive_top_n"`
	// BalanceCacheTTL 卡余额缓存有效期，例如 "5m"
	BalanceCacheTTL string `json:"balance_cache_ttl"`
}

// BalanceCacheTTLDuration 解析余额缓存有效期
func (c *Clinic) BalanceCacheTTLDuration() time.Duration {
	if c == nil {
		return 0
	}
	return parseDuration(c.BalanceCacheTTL)
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
