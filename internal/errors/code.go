package errors

// Clinic Service 错误码定义
// 错误码格式：SSMMEE (6位数字)
//   SS: 服务标识，Clinic 固定为 21
//   MM: 模块标识，按业务划分
//   EE: 模块内错误序号
//
// 模块划分：
//   01: 客户模块
//   02: 会员卡模块
//   03: 充值模块
//   04: 消费模块
//   05: 服务记录模块
//   06: 库存模块
//   07: 统计模块
//   08-99: 预留扩展

// 客户模块错误码 (210100-210199)
const (
	// ErrCodeCustomerNotFound 客户不存在
	ErrCodeCustomerNotFound = 210101
	// ErrCodeCustomerPhoneExists 客户手机号已存在
	ErrCodeCustomerPhoneExists = 210102
	// ErrCodeCustomerNameRequired 客户姓名必填
	ErrCodeCustomerNameRequired = 210103
	// ErrCodeCustomerPhoneRequired 联系电话必填
	ErrCodeCustomerPhoneRequired = 210104
)

// 会员卡模块错误码 (210200-210299)
const (
	// ErrCodeMembershipNotFound 会员卡不存在
	ErrCodeMembershipNotFound = 210201
	// ErrCodeInvalidCardType 无效的卡类型
	ErrCodeInvalidCardType = 210202
	// ErrCodeInvalidCardStatus 无效的卡状态
	ErrCodeInvalidCardStatus = 210203
	// ErrCodeCardStatusBlocked 当前卡状态不允许该操作
	ErrCodeCardStatusBlocked = 210204
	// ErrCodeCardNumberConflict 卡号冲突
	ErrCodeCardNumberConflict = 210205
	// ErrCodeMembershipTypeNotFound 卡种模板不存在
	ErrCodeMembershipTypeNotFound = 210206
	// ErrCodeTypeNameRequired 卡种名称必填
	ErrCodeTypeNameRequired = 210207
)

// 充值模块错误码 (210300-210399)
const (
	// ErrCodeInvalidRechargeType 无效的充值类型
	ErrCodeInvalidRechargeType = 210301
	// ErrCodeRechargeAmountRequired 充值金额必填且需大于 0
	ErrCodeRechargeAmountRequired = 210302
	// ErrCodePaymentMethodRequired 支付方式必填
	ErrCodePaymentMethodRequired = 210303
	// ErrCodeReceiptNumberConflict 票据号冲突
	ErrCodeReceiptNumberConflict = 210304
)

// 消费模块错误码 (210400-210499)
const (
	// ErrCodeServiceNameRequired 服务项目名称必填
	ErrCodeServiceNameRequired = 210401
	// ErrCodeInvalidConsumeCount 消费次数需大于 0
	ErrCodeInvalidConsumeCount = 210402
	// ErrCodeInvalidConsumeAmount 消费金额不能为负
	ErrCodeInvalidConsumeAmount = 210403
	// ErrCodeInsufficientCount 剩余次数不足
	ErrCodeInsufficientCount = 210404
	// ErrCodeInsufficientBalance 卡余额不足
	ErrCodeInsufficientBalance = 210405
)

// 服务记录模块错误码 (210500-210599)
const (
	// ErrCodeVisitMembershipRequired 会员卡支付需要指定会员卡
	ErrCodeVisitMembershipRequired = 210501
	// ErrCodeInvalidServiceFee 服务费用不能为负
	ErrCodeInvalidServiceFee = 210502
	// ErrCodeTherapistNotFound 理疗师不存在
	ErrCodeTherapistNotFound = 210503
	// ErrCodeVisitNotFound 服务记录不存在
	ErrCodeVisitNotFound = 210504
	// ErrCodeInvalidRating 评分超出范围
	ErrCodeInvalidRating = 210505
	// ErrCodeTherapistNameRequired 理疗师姓名必填
	ErrCodeTherapistNameRequired = 210506
)

// 库存模块错误码 (210600-210699)
const (
	// ErrCodeInventoryItemNotFound 库存物品不存在
	ErrCodeInventoryItemNotFound = 210601
	// ErrCodeInvalidStockQuantity 出入库数量需大于 0
	ErrCodeInvalidStockQuantity = 210602
	// ErrCodeInsufficientStock 库存不足
	ErrCodeInsufficientStock = 210603
	// ErrCodeItemNameRequired 物品名称必填
	ErrCodeItemNameRequired = 210604
)

// 统计模块错误码 (210700-210799)
const (
	// ErrCodeInvalidDateRange 无效的统计时间范围
	ErrCodeInvalidDateRange = 210701
	// ErrCodeGetStatsFailed 获取统计失败
	ErrCodeGetStatsFailed = 210702
)
