package constants

// 时间格式常量
const (
	// TimeFormatDate 日期格式 (YYYY-MM-DD)
	TimeFormatDate = "2006-01-02"
	// TimeFormatDateTime 日期时间格式 (YYYY-MM-DD HH:mm:ss)
	TimeFormatDateTime = "2006-01-02 15:04:05"
	// TimeFormatMonth 月份格式 (YYYY-MM)
	TimeFormatMonth = "2006-01"
	// TimeFormatYear 年份格式 (YYYY)
	TimeFormatYear = "2006"
	// TimeFormatCompactMonth 卡号日期段格式 (YYYYMM)
	TimeFormatCompactMonth = "200601"
	// TimeFormatCompactDate 票据日期段格式 (YYYYMMDD)
	TimeFormatCompactDate = "20060102"
)

// Redis Key 前缀常量
const (
	// RedisKeyCardBalance 卡余额缓存 key 前缀
	RedisKeyCardBalance = "card:balance:"
	// RedisKeyCardLock 卡操作锁 key 前缀
	RedisKeyCardLock = "card:lock:"
	// RedisKeyStockLock 库存操作锁 key 前缀
	RedisKeyStockLock = "stock:lock:"
)

// 卡类型常量
const (
	// CardTypeCount 次卡
	CardTypeCount = "count"
	// CardTypePeriod 期限卡
	CardTypePeriod = "period"
	// CardTypeMixed 混合卡（次数+储值）
	CardTypeMixed = "mixed"
	// CardTypeValue 储值卡
	CardTypeValue = "value"
)

// CardTypes 卡类型枚举
var CardTypes = []string{CardTypeCount, CardTypePeriod, CardTypeMixed, CardTypeValue}

// 卡状态常量
const (
	// CardStatusActive 正常
	CardStatusActive = "active"
	// CardStatusExpired 已过期
	CardStatusExpired = "expired"
	// CardStatusCancelled 已注销
	CardStatusCancelled = "cancelled"
	// CardStatusFrozen 已冻结
	CardStatusFrozen = "frozen"
	// CardStatusLost 已挂失
	CardStatusLost = "lost"
	// CardStatusDepleted 次数用尽
	CardStatusDepleted = "depleted"
)

// CardStatuses 卡状态枚举
var CardStatuses = []string{
	CardStatusActive, CardStatusExpired, CardStatusCancelled,
	CardStatusFrozen, CardStatusLost, CardStatusDepleted,
}

// 充值类型常量
const (
	// RechargeTypeCount 充次数
	RechargeTypeCount = "count"
	// RechargeTypeAmount 充金额
	RechargeTypeAmount = "amount"
	// RechargeTypeExtend 延期
	RechargeTypeExtend = "extend"
	// RechargeTypeMixed 混合充值
	RechargeTypeMixed = "mixed"
)

// RechargeTypes 充值类型枚举
var RechargeTypes = []string{
	RechargeTypeCount, RechargeTypeAmount, RechargeTypeExtend, RechargeTypeMixed,
}

// 充值来源常量
const (
	// RechargeSourceIssue 开卡
	RechargeSourceIssue = "issue"
	// RechargeSourceRecharge 续充
	RechargeSourceRecharge = "recharge"
)

// 客户会员状态常量（customers 表上的冗余字段）
const (
	// MembershipStatusNone 非会员
	MembershipStatusNone = "none"
	// MembershipStatusActive 会员有效
	MembershipStatusActive = "active"
	// MembershipStatusExpiring 即将到期
	MembershipStatusExpiring = "expiring"
	// MembershipStatusExpired 已过期
	MembershipStatusExpired = "expired"
)

// 支付方式常量
const (
	// PaymentMethodCash 现金
	PaymentMethodCash = "cash"
	// PaymentMethodWechat 微信支付
	PaymentMethodWechat = "wechat"
	// PaymentMethodAlipay 支付宝
	PaymentMethodAlipay = "alipay"
	// PaymentMethodCard 刷卡
	PaymentMethodCard = "card"
	// PaymentMethodMembership 会员卡扣费
	PaymentMethodMembership = "membership"
)

// 单据号前缀常量
const (
	// SerialPrefixCard 会员卡号前缀
	SerialPrefixCard = "MK"
	// SerialPrefixRecharge 充值票据号前缀
	SerialPrefixRecharge = "RC"
	// SerialPrefixConsumption 消费票据号前缀
	SerialPrefixConsumption = "CS"
)

// 序列号 scope 前缀常量
const (
	// SeqScopeCard 卡号序列 scope
	SeqScopeCard = "card"
	// SeqScopeRecharge 充值票据序列 scope
	SeqScopeRecharge = "rc"
	// SeqScopeConsumption 消费票据序列 scope
	SeqScopeConsumption = "cs"
)

// 库存变动类型常量
const (
	// StockTypeIn 入库
	StockTypeIn = "in"
	// StockTypeOut 出库
	StockTypeOut = "out"
)

// 营收趋势粒度常量
const (
	// TrendGranularityDay 按日
	TrendGranularityDay = "day"
	// TrendGranularityMonth 按月
	TrendGranularityMonth = "month"
	// TrendGranularityYear 按年
	TrendGranularityYear = "year"
)

// 操作结果常量（用于指标）
const (
	// ResultSuccess 成功
	ResultSuccess = "success"
	// ResultFailed 失败
	ResultFailed = "failed"
	// ResultRejected 业务规则拒绝
	ResultRejected = "rejected"
)
