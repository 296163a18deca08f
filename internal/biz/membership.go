package biz

import (
	"context"
	"fmt"
	"time"

	"clinic-service/internal/constants"
	clinicErrors "clinic-service/internal/errors"
	"clinic-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// Membership 会员卡领域对象
type Membership struct {
	MembershipID     string
	CardNumber       string // MK{yyyyMM}{seq3}
	CustomerID       string
	TypeID           string
	CardType         string // count/period/mixed/value
	Balance          float64
	Count            int
	ExpiryDate       *time.Time
	Status           string // active/expired/cancelled/frozen/lost/depleted
	LastRechargeDate *time.Time
	LastConsumeDate  *time.Time
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RechargeRecord 充值流水领域对象（只增不改）
type RechargeRecord struct {
	RechargeID    string
	MembershipID  string
	CustomerID    string
	RechargeType  string // count/amount/extend/mixed
	Amount        float64
	RechargeCount int
	ExtendMonths  int
	BonusAmount   float64
	TotalAmount   float64
	PaymentMethod string
	ReceiptNumber string // RC{yyyyMMdd}{seq4}
	Source        string // issue/recharge
	RechargeDate  time.Time
	OperatorName  string
	Notes         string
}

// ConsumptionRecord 消费流水领域对象（只增不改）
type ConsumptionRecord struct {
	ConsumptionID string
	MembershipID  string
	CustomerID    string
	ChildName     string
	ServiceName   string
	Amount        float64
	Count         int
	ConsumeDate   time.Time
	ReceiptNumber string // CS{yyyyMMdd}{seq4}
	TherapistName string
	OperatorName  string
}

// LedgerSummary 流水汇总
type LedgerSummary struct {
	TotalAmount float64
	TotalCount  int
}

// MembershipFilter 会员卡列表过滤条件
type MembershipFilter struct {
	CustomerID string
	Status     string
	CardType   string
}

// RechargeMutation 一次充值对卡面的变更量，由业务规则折算得出
type RechargeMutation struct {
	AddCount     int
	AddBalance   float64
	ExtendMonths int
}

// MembershipRepo 会员卡数据层接口（定义在 biz 层）
// 带余额/次数变更的方法在数据层内完成加锁、事务内复核与单据号分配。
type MembershipRepo interface {
	IssueCard(ctx context.Context, card *Membership, initial *RechargeRecord) (*Membership, *RechargeRecord, error)
	GetMembership(ctx context.Context, membershipID string) (*Membership, error)
	ListMemberships(ctx context.Context, filter *MembershipFilter, page, pageSize int) ([]*Membership, int64, error)
	ApplyRecharge(ctx context.Context, membershipID string, mut RechargeMutation, rec *RechargeRecord) (*Membership, *RechargeRecord, error)
	ApplyConsumption(ctx context.Context, membershipID string, rec *ConsumptionRecord) (*Membership, *ConsumptionRecord, error)
	UpdateStatus(ctx context.Context, membershipID, status, auditNote string) (*Membership, error)
	LatestByCustomer(ctx context.Context, customerID string) (*Membership, error)
	ListRecharges(ctx context.Context, membershipID string, start, end *time.Time, page, pageSize int) ([]*RechargeRecord, int64, *LedgerSummary, error)
	ListConsumptions(ctx context.Context, membershipID string, start, end *time.Time, page, pageSize int) ([]*ConsumptionRecord, int64, *LedgerSummary, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// IssueCardParams 开卡参数
type IssueCardParams struct {
	CustomerID    string
	TypeID        string
	CardType      string
	ExpiryDate    *time.Time
	InitialAmount float64
	BonusAmount   float64
	InitialCount  int
	PaymentMethod string
	OperatorName  string
	Notes         string
}

// RechargeParams 充值参数
type RechargeParams struct {
	RechargeType  string
	Count         int
	Amount        float64
	ExtendMonths  int
	TotalAmount   float64
	PaymentMethod string
	OperatorName  string
	Notes         string
}

// ConsumptionParams 消费参数
type ConsumptionParams struct {
	ServiceName   string
	Amount        float64
	Count         int
	TherapistName string
	OperatorName  string
	Date          *time.Time
}

// MembershipUseCase 会员卡业务逻辑
type MembershipUseCase struct {
	repo         MembershipRepo
	customerRepo CustomerRepo
	typeRepo     MembershipTypeRepo
	cfg          *ClinicConfig
	log          *log.Helper
	metrics      *metrics.ClinicMetrics
}

// NewMembershipUseCase 创建会员卡 UseCase
func NewMembershipUseCase(
	repo MembershipRepo,
	customerRepo CustomerRepo,
	typeRepo MembershipTypeRepo,
	cfg *ClinicConfig,
	logger log.Logger,
) *MembershipUseCase {
	return &MembershipUseCase{
		repo:         repo,
		customerRepo: customerRepo,
		typeRepo:     typeRepo,
		cfg:          cfg,
		log:          log.NewHelper(logger),
		metrics:      metrics.GetMetrics(),
	}
}

// IssueCard 开卡。可选携带首充：首充金额 > 0 时在同一事务内生成开卡充值流水，
// 卡余额 = 首充金额 + 赠送金额。开卡后客户会员状态置为 active。
func (uc *MembershipUseCase) IssueCard(ctx context.Context, params *IssueCardParams) (*Membership, *RechargeRecord, error) {
	customer, err := uc.customerRepo.GetCustomer(ctx, params.CustomerID)
	if err != nil {
		return nil, nil, err
	}
	if customer == nil {
		return nil, nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeCustomerNotFound, "客户不存在")
	}

	// 引用卡种模板时，未显式给出的字段从模板补齐
	if params.TypeID != "" {
		t, err := uc.typeRepo.GetMembershipType(ctx, params.TypeID)
		if err != nil {
			return nil, nil, err
		}
		if t == nil {
			return nil, nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeMembershipTypeNotFound, "卡种模板不存在")
		}
		if params.CardType == "" {
			params.CardType = t.Category
		}
		if params.InitialCount == 0 {
			params.InitialCount = t.ServiceCount
		}
		if params.ExpiryDate == nil && t.ValidityDays > 0 {
			expiry := time.Now().AddDate(0, 0, t.ValidityDays)
			params.ExpiryDate = &expiry
		}
	}

	if !isValidCardType(params.CardType) {
		return nil, nil, clinicErrors.NewValidation(clinicErrors.ErrCodeInvalidCardType,
			"无效的卡类型: %s", params.CardType)
	}

	card := &Membership{
		MembershipID: uuid.New().String(),
		CustomerID:   params.CustomerID,
		TypeID:       params.TypeID,
		CardType:     params.CardType,
		Count:        params.InitialCount,
		ExpiryDate:   params.ExpiryDate,
		Status:       constants.CardStatusActive,
		Notes:        params.Notes,
	}

	var initial *RechargeRecord
	if params.InitialAmount > 0 {
		card.Balance = params.InitialAmount + params.BonusAmount
		paymentMethod := params.PaymentMethod
		if paymentMethod == "" {
			paymentMethod = constants.PaymentMethodCash
		}
		initial = &RechargeRecord{
			RechargeID:    uuid.New().String(),
			CustomerID:    params.CustomerID,
			RechargeType:  constants.RechargeTypeAmount,
			Amount:        params.InitialAmount,
			BonusAmount:   params.BonusAmount,
			TotalAmount:   params.InitialAmount,
			PaymentMethod: paymentMethod,
			Source:        constants.RechargeSourceIssue,
			RechargeDate:  time.Now(),
			OperatorName:  params.OperatorName,
			Notes:         "开卡充值",
		}
	}

	card, initial, err = uc.repo.IssueCard(ctx, card, initial)
	if err != nil {
		uc.log.Errorf("IssueCard failed: customer_id=%s, error=%v", params.CustomerID, err)
		return nil, nil, err
	}

	if uc.metrics != nil {
		uc.metrics.CardIssueTotal.WithLabelValues(card.CardType).Inc()
	}
	uc.log.Infof("Card issued: card_number=%s, customer_id=%s, card_type=%s",
		card.CardNumber, card.CustomerID, card.CardType)
	return card, initial, nil
}

// GetMembership 获取会员卡
func (uc *MembershipUseCase) GetMembership(ctx context.Context, membershipID string) (*Membership, error) {
	card, err := uc.repo.GetMembership(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeMembershipNotFound, "会员卡不存在")
	}
	return card, nil
}

// ListMemberships 获取会员卡列表
func (uc *MembershipUseCase) ListMemberships(ctx context.Context, filter *MembershipFilter, page, pageSize int) ([]*Membership, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return uc.repo.ListMemberships(ctx, filter, page, pageSize)
}

// Recharge 充值。充值类型决定对卡面的变更：
//   count  -> 次数累加
//   amount -> 储值卡按实收金额入账，其余卡按 amount 入账
//   extend -> 有效期顺延（已过期的卡从当前时间起算）
//   mixed  -> 以上规则同时生效
// 已过期的卡充值后若新有效期在未来则重新激活。
func (uc *MembershipUseCase) Recharge(ctx context.Context, membershipID string, params *RechargeParams) (*Membership, *RechargeRecord, error) {
	startTime := time.Now()

	if !isValidRechargeType(params.RechargeType) {
		return nil, nil, clinicErrors.NewValidation(clinicErrors.ErrCodeInvalidRechargeType,
			"无效的充值类型: %s", params.RechargeType)
	}
	if params.TotalAmount <= 0 {
		return nil, nil, clinicErrors.NewValidation(clinicErrors.ErrCodeRechargeAmountRequired, "实收金额必须大于 0")
	}
	if params.PaymentMethod == "" {
		return nil, nil, clinicErrors.NewValidation(clinicErrors.ErrCodePaymentMethodRequired, "支付方式必填")
	}

	card, err := uc.repo.GetMembership(ctx, membershipID)
	if err != nil {
		return nil, nil, err
	}
	if card == nil {
		return nil, nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeMembershipNotFound, "会员卡不存在")
	}
	if card.Status != constants.CardStatusActive && card.Status != constants.CardStatusExpired {
		uc.observeRecharge(params.RechargeType, constants.ResultRejected, 0, startTime)
		return nil, nil, clinicErrors.NewPolicy(clinicErrors.ErrCodeCardStatusBlocked,
			"当前卡状态为 %s，不允许充值", card.Status)
	}

	mut, err := rechargeMutation(card, params)
	if err != nil {
		return nil, nil, err
	}

	rec := &RechargeRecord{
		RechargeID:    uuid.New().String(),
		CustomerID:    card.CustomerID,
		RechargeType:  params.RechargeType,
		Amount:        params.Amount,
		RechargeCount: params.Count,
		ExtendMonths:  params.ExtendMonths,
		TotalAmount:   params.TotalAmount,
		PaymentMethod: params.PaymentMethod,
		Source:        constants.RechargeSourceRecharge,
		RechargeDate:  time.Now(),
		OperatorName:  params.OperatorName,
		Notes:         params.Notes,
	}

	card, rec, err = uc.repo.ApplyRecharge(ctx, membershipID, mut, rec)
	if err != nil {
		uc.observeRecharge(params.RechargeType, constants.ResultFailed, 0, startTime)
		uc.log.Errorf("Recharge failed: membership_id=%s, error=%v", membershipID, err)
		return nil, nil, err
	}

	uc.observeRecharge(params.RechargeType, constants.ResultSuccess, params.TotalAmount, startTime)
	uc.log.Infof("Recharge done: card_number=%s, receipt=%s, type=%s, total=%.2f",
		card.CardNumber, rec.ReceiptNumber, params.RechargeType, params.TotalAmount)
	return card, rec, nil
}

// rechargeMutation 按充值类型折算卡面变更量
func rechargeMutation(card *Membership, params *RechargeParams) (RechargeMutation, error) {
	var mut RechargeMutation
	switch params.RechargeType {
	case constants.RechargeTypeCount:
		if params.Count <= 0 {
			return mut, clinicErrors.NewValidation(clinicErrors.ErrCodeInvalidRechargeType, "充值次数必须大于 0")
		}
		mut.AddCount = params.Count
	case constants.RechargeTypeAmount:
		if card.CardType == constants.CardTypeValue {
			mut.AddBalance = params.TotalAmount
		} else if params.Amount > 0 {
			mut.AddBalance = params.Amount
		}
	case constants.RechargeTypeExtend:
		if params.ExtendMonths <= 0 {
			return mut, clinicErrors.NewValidation(clinicErrors.ErrCodeInvalidRechargeType, "延长月数必须大于 0")
		}
		mut.ExtendMonths = params.ExtendMonths
	case constants.RechargeTypeMixed:
		if params.Count > 0 {
			mut.AddCount = params.Count
		}
		if params.Amount > 0 {
			mut.AddBalance = params.Amount
		} else if card.CardType == constants.CardTypeValue {
			mut.AddBalance = params.TotalAmount
		}
		if params.ExtendMonths > 0 {
			mut.ExtendMonths = params.ExtendMonths
		}
	}
	return mut, nil
}

// RecordConsumption 划卡消费。次卡/混合卡扣次数，储值卡/混合卡扣余额；
// 纯次卡次数扣到 0 自动转为 depleted。余额与次数任何时刻不为负，
// 事务内再次复核，复核失败返回业务规则错误。
func (uc *MembershipUseCase) RecordConsumption(ctx context.Context, membershipID string, params *ConsumptionParams) (*Membership, *ConsumptionRecord, error) {
	startTime := time.Now()

	if params.ServiceName == "" {
		return nil, nil, clinicErrors.NewValidation(clinicErrors.ErrCodeServiceNameRequired, "服务项目名称必填")
	}
	if params.Count <= 0 {
		return nil, nil, clinicErrors.NewValidation(clinicErrors.ErrCodeInvalidConsumeCount, "消费次数必须大于 0")
	}
	if params.Amount < 0 {
		return nil, nil, clinicErrors.NewValidation(clinicErrors.ErrCodeInvalidConsumeAmount, "消费金额不能为负")
	}

	card, err := uc.repo.GetMembership(ctx, membershipID)
	if err != nil {
		return nil, nil, err
	}
	if card == nil {
		return nil, nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeMembershipNotFound, "会员卡不存在")
	}
	if card.Status != constants.CardStatusActive {
		uc.observeConsumption(card.CardType, constants.ResultRejected, 0, startTime)
		return nil, nil, clinicErrors.NewPolicy(clinicErrors.ErrCodeCardStatusBlocked,
			"当前卡状态为 %s，不允许消费", card.Status)
	}
	if err := checkSufficiency(card, params.Amount, params.Count); err != nil {
		uc.observeConsumption(card.CardType, constants.ResultRejected, 0, startTime)
		return nil, nil, err
	}

	consumeDate := time.Now()
	if params.Date != nil {
		consumeDate = *params.Date
	}

	childName := ""
	if customer, err := uc.customerRepo.GetCustomer(ctx, card.CustomerID); err == nil && customer != nil {
		childName = customer.ChildName
	}

	rec := &ConsumptionRecord{
		ConsumptionID: uuid.New().String(),
		CustomerID:    card.CustomerID,
		ChildName:     childName,
		ServiceName:   params.ServiceName,
		Amount:        params.Amount,
		Count:         params.Count,
		ConsumeDate:   consumeDate,
		TherapistName: params.TherapistName,
		OperatorName:  params.OperatorName,
	}

	cardType := card.CardType
	card, rec, err = uc.repo.ApplyConsumption(ctx, membershipID, rec)
	if err != nil {
		uc.observeConsumption(cardType, constants.ResultFailed, 0, startTime)
		uc.log.Errorf("RecordConsumption failed: membership_id=%s, error=%v", membershipID, err)
		return nil, nil, err
	}

	uc.observeConsumption(card.CardType, constants.ResultSuccess, params.Amount, startTime)
	uc.log.Infof("Consumption recorded: card_number=%s, receipt=%s, amount=%.2f, count=%d",
		card.CardNumber, rec.ReceiptNumber, params.Amount, params.Count)
	return card, rec, nil
}

// checkSufficiency 消费前的余量预检。混合卡次数与余额都要够。
func checkSufficiency(card *Membership, amount float64, count int) error {
	switch card.CardType {
	case constants.CardTypeCount:
		if count > card.Count {
			return clinicErrors.NewPolicy(clinicErrors.ErrCodeInsufficientCount,
				"剩余次数不足：剩余 %d 次，本次需 %d 次", card.Count, count)
		}
	case constants.CardTypeValue:
		if amount > card.Balance {
			return clinicErrors.NewPolicy(clinicErrors.ErrCodeInsufficientBalance,
				"卡余额不足：余额 %.2f，本次需 %.2f", card.Balance, amount)
		}
	case constants.CardTypeMixed:
		if count > card.Count {
			return clinicErrors.NewPolicy(clinicErrors.ErrCodeInsufficientCount,
				"剩余次数不足：剩余 %d 次，本次需 %d 次", card.Count, count)
		}
		if amount > card.Balance {
			return clinicErrors.NewPolicy(clinicErrors.ErrCodeInsufficientBalance,
				"卡余额不足：余额 %.2f，本次需 %.2f", card.Balance, amount)
		}
	}
	return nil
}

// UpdateStatus 直接改写卡状态。只校验枚举，不限制状态迁移路径；
// 携带 reason 时在备注里追加一行审计记录。
func (uc *MembershipUseCase) UpdateStatus(ctx context.Context, membershipID, status, reason, operatorName string) (*Membership, error) {
	if !isValidCardStatus(status) {
		return nil, clinicErrors.NewValidation(clinicErrors.ErrCodeInvalidCardStatus,
			"无效的卡状态: %s", status)
	}

	card, err := uc.repo.GetMembership(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeMembershipNotFound, "会员卡不存在")
	}

	auditNote := ""
	if reason != "" {
		auditNote = fmt.Sprintf("[%s] 状态 %s -> %s：%s",
			time.Now().Format("2006-01-02 15:04:05"), card.Status, status, reason)
		if operatorName != "" {
			auditNote += fmt.Sprintf("（操作人：%s）", operatorName)
		}
	}

	card, err = uc.repo.UpdateStatus(ctx, membershipID, status, auditNote)
	if err != nil {
		uc.log.Errorf("UpdateStatus failed: membership_id=%s, error=%v", membershipID, err)
		return nil, err
	}
	return card, nil
}

// ListRecharges 获取充值流水（带汇总）
func (uc *MembershipUseCase) ListRecharges(ctx context.Context, membershipID string, start, end *time.Time, page, pageSize int) ([]*RechargeRecord, int64, *LedgerSummary, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if err := uc.ensureCardExists(ctx, membershipID); err != nil {
		return nil, 0, nil, err
	}
	return uc.repo.ListRecharges(ctx, membershipID, start, end, page, pageSize)
}

// ListConsumptions 获取消费流水（带汇总）
func (uc *MembershipUseCase) ListConsumptions(ctx context.Context, membershipID string, start, end *time.Time, page, pageSize int) ([]*ConsumptionRecord, int64, *LedgerSummary, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if err := uc.ensureCardExists(ctx, membershipID); err != nil {
		return nil, 0, nil, err
	}
	return uc.repo.ListConsumptions(ctx, membershipID, start, end, page, pageSize)
}

func (uc *MembershipUseCase) ensureCardExists(ctx context.Context, membershipID string) error {
	card, err := uc.repo.GetMembership(ctx, membershipID)
	if err != nil {
		return err
	}
	if card == nil {
		return clinicErrors.NewNotFound(clinicErrors.ErrCodeMembershipNotFound, "会员卡不存在")
	}
	return nil
}

func (uc *MembershipUseCase) observeRecharge(rechargeType, result string, amount float64, start time.Time) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.RechargeTotal.WithLabelValues(rechargeType, result).Inc()
	if result == constants.ResultSuccess && amount > 0 {
		uc.metrics.RechargeAmount.WithLabelValues(rechargeType).Add(amount)
	}
	uc.metrics.RechargeDuration.WithLabelValues(rechargeType).Observe(time.Since(start).Seconds())
}

func (uc *MembershipUseCase) observeConsumption(cardType, result string, amount float64, start time.Time) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.ConsumptionTotal.WithLabelValues(cardType, result).Inc()
	if result == constants.ResultSuccess && amount > 0 {
		uc.metrics.ConsumptionAmount.WithLabelValues(cardType).Add(amount)
	}
	uc.metrics.ConsumptionDuration.WithLabelValues(cardType).Observe(time.Since(start).Seconds())
}

// isValidCardStatus 校验卡状态枚举
func isValidCardStatus(status string) bool {
	for _, s := range constants.CardStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// isValidRechargeType 校验充值类型枚举
func isValidRechargeType(rechargeType string) bool {
	for _, t := range constants.RechargeTypes {
		if t == rechargeType {
			return true
		}
	}
	return false
}

// DeriveMembershipLabel 从客户最近一张未注销的卡推导会员状态标签。
// 无卡 -> none；已过期（含状态 expired 或有效期已过）-> expired；
// 有效期剩余不超过 expiringDays 天 -> expiring；其余 -> active。
func DeriveMembershipLabel(card *Membership, now time.Time, expiringDays int) string {
	if card == nil {
		return constants.MembershipStatusNone
	}
	if card.ExpiryDate != nil && card.ExpiryDate.Before(now) {
		return constants.MembershipStatusExpired
	}
	if card.Status == constants.CardStatusExpired {
		return constants.MembershipStatusExpired
	}
	if card.ExpiryDate != nil && card.ExpiryDate.Sub(now) <= time.Duration(expiringDays)*24*time.Hour {
		return constants.MembershipStatusExpiring
	}
	return constants.MembershipStatusActive
}
