package service

import (
	"context"
	"time"

	"clinic-service/internal/biz"
	"clinic-service/internal/constants"
	clinicErrors "clinic-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
)

// MembershipService 会员卡服务
type MembershipService struct {
	uc  *biz.MembershipUseCase
	log *log.Helper
}

// NewMembershipService 创建会员卡服务
func NewMembershipService(uc *biz.MembershipUseCase, logger log.Logger) *MembershipService {
	return &MembershipService{
		uc:  uc,
		log: log.NewHelper(logger),
	}
}

// IssueCardRequest 开卡请求
type IssueCardRequest struct {
	CustomerID    string  `json:"customerId"`
	TypeID        string  `json:"typeId"`
	CardType      string  `json:"cardType"`
	ExpiryDate    string  `json:"expiryDate"`
	InitialAmount float64 `json:"initialAmount"`
	BonusAmount   float64 `json:"bonusAmount"`
	InitialCount  int     `json:"initialCount"`
	PaymentMethod string  `json:"paymentMethod"`
	OperatorName  string  `json:"operatorName"`
	Notes         string  `json:"notes"`
}

// MembershipReply 会员卡响应
type MembershipReply struct {
	MembershipID     string  `json:"membershipId"`
	CardNumber       string  `json:"cardNumber"`
	CustomerID       string  `json:"customerId"`
	TypeID           string  `json:"typeId,omitempty"`
	CardType         string  `json:"cardType"`
	Balance          float64 `json:"balance"`
	Count            int     `json:"count"`
	ExpiryDate       string  `json:"expiryDate,omitempty"`
	Status           string  `json:"status"`
	LastRechargeDate string  `json:"lastRechargeDate,omitempty"`
	LastConsumeDate  string  `json:"lastConsumeDate,omitempty"`
	Notes            string  `json:"notes,omitempty"`
	CreatedAt        string  `json:"createdAt"`
}

// RechargeReply 充值流水响应
type RechargeReply struct {
	RechargeID    string  `json:"rechargeId"`
	MembershipID  string  `json:"membershipId"`
	RechargeType  string  `json:"rechargeType"`
	Amount        float64 `json:"amount"`
	RechargeCount int     `json:"rechargeCount"`
	ExtendMonths  int     `json:"extendMonths"`
	BonusAmount   float64 `json:"bonusAmount"`
	TotalAmount   float64 `json:"totalAmount"`
	PaymentMethod string  `json:"paymentMethod"`
	ReceiptNumber string  `json:"receiptNumber"`
	Source        string  `json:"source"`
	RechargeDate  string  `json:"rechargeDate"`
	OperatorName  string  `json:"operatorName,omitempty"`
	Notes         string  `json:"notes,omitempty"`
}

// ConsumptionReply 消费流水响应
type ConsumptionReply struct {
	ConsumptionID string  `json:"consumptionId"`
	MembershipID  string  `json:"membershipId"`
	CustomerID    string  `json:"customerId"`
	ChildName     string  `json:"childName,omitempty"`
	ServiceName   string  `json:"serviceName"`
	Amount        float64 `json:"amount"`
	Count         int     `json:"count"`
	ConsumeDate   string  `json:"consumeDate"`
	ReceiptNumber string  `json:"receiptNumber"`
	TherapistName string  `json:"therapistName,omitempty"`
	OperatorName  string  `json:"operatorName,omitempty"`
}

// IssueCardReply 开卡响应
type IssueCardReply struct {
	Membership *MembershipReply `json:"membership"`
	Recharge   *RechargeReply   `json:"recharge,omitempty"`
}

// IssueCard 开卡
func (s *MembershipService) IssueCard(ctx context.Context, req *IssueCardRequest) (*IssueCardReply, error) {
	expiry, err := parseDatePtr(req.ExpiryDate)
	if err != nil {
		return nil, clinicErrors.NewValidation(clinicErrors.ErrCodeInvalidDateRange, "无效的有效期日期: %s", req.ExpiryDate)
	}

	card, recharge, err := s.uc.IssueCard(ctx, &biz.IssueCardParams{
		CustomerID:    req.CustomerID,
		TypeID:        req.TypeID,
		CardType:      req.CardType,
		ExpiryDate:    expiry,
		InitialAmount: req.InitialAmount,
		BonusAmount:   req.BonusAmount,
		InitialCount:  req.InitialCount,
		PaymentMethod: req.PaymentMethod,
		OperatorName:  req.OperatorName,
		Notes:         req.Notes,
	})
	if err != nil {
		return nil, err
	}

	reply := &IssueCardReply{Membership: toMembershipReply(card)}
	if recharge != nil {
		reply.Recharge = toRechargeReply(recharge)
	}
	return reply, nil
}

// GetMembership 获取会员卡
func (s *MembershipService) GetMembership(ctx context.Context, membershipID string) (*MembershipReply, error) {
	card, err := s.uc.GetMembership(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	return toMembershipReply(card), nil
}

// ListMembershipsRequest 会员卡列表请求
type ListMembershipsRequest struct {
	CustomerID string `json:"customerId"`
	Status     string `json:"status"`
	CardType   string `json:"cardType"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
}

// ListMembershipsReply 会员卡列表响应
type ListMembershipsReply struct {
	List     []*MembershipReply `json:"list"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
}

// ListMemberships 获取会员卡列表
func (s *MembershipService) ListMemberships(ctx context.Context, req *ListMembershipsRequest) (*ListMembershipsReply, error) {
	cards, total, err := s.uc.ListMemberships(ctx, &biz.MembershipFilter{
		CustomerID: req.CustomerID,
		Status:     req.Status,
		CardType:   req.CardType,
	}, req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	list := make([]*MembershipReply, 0, len(cards))
	for _, c := range cards {
		list = append(list, toMembershipReply(c))
	}
	return &ListMembershipsReply{
		List:     list,
		Total:    total,
		Page:     normalizePage(req.Page),
		PageSize: normalizePageSize(req.PageSize),
	}, nil
}

// RechargeRequest 充值请求
type RechargeRequest struct {
	RechargeType  string  `json:"rechargeType"`
	Count         int     `json:"count"`
	Amount        float64 `json:"amount"`
	ExtendMonths  int     `json:"extendMonths"`
	TotalAmount   float64 `json:"totalAmount"`
	PaymentMethod string  `json:"paymentMethod"`
	OperatorName  string  `json:"operatorName"`
	Notes         string  `json:"notes"`
}

// RechargeResultReply 充值结果响应
type RechargeResultReply struct {
	Membership *MembershipReply `json:"membership"`
	Recharge   *RechargeReply   `json:"recharge"`
}

// Recharge 充值
func (s *MembershipService) Recharge(ctx context.Context, membershipID string, req *RechargeRequest) (*RechargeResultReply, error) {
	card, recharge, err := s.uc.Recharge(ctx, membershipID, &biz.RechargeParams{
		RechargeType:  req.RechargeType,
		Count:         req.Count,
		Amount:        req.Amount,
		ExtendMonths:  req.ExtendMonths,
		TotalAmount:   req.TotalAmount,
		PaymentMethod: req.PaymentMethod,
		OperatorName:  req.OperatorName,
		Notes:         req.Notes,
	})
	if err != nil {
		return nil, err
	}
	return &RechargeResultReply{
		Membership: toMembershipReply(card),
		Recharge:   toRechargeReply(recharge),
	}, nil
}

// ConsumptionRequest 划卡消费请求
type ConsumptionRequest struct {
	ServiceName   string  `json:"serviceName"`
	Amount        float64 `json:"amount"`
	Count         int     `json:"count"`
	TherapistName string  `json:"therapistName"`
	OperatorName  string  `json:"operatorName"`
	Date          string  `json:"date"`
}

// ConsumptionResultReply 划卡消费结果响应
type ConsumptionResultReply struct {
	Membership  *MembershipReply  `json:"membership"`
	Consumption *ConsumptionReply `json:"consumption"`
}

// RecordConsumption 划卡消费
func (s *MembershipService) RecordConsumption(ctx context.Context, membershipID string, req *ConsumptionRequest) (*ConsumptionResultReply, error) {
	date, err := parseDatePtr(req.Date)
	if err != nil {
		return nil, clinicErrors.NewValidation(clinicErrors.ErrCodeInvalidDateRange, "无效的消费日期: %s", req.Date)
	}

	card, consumption, err := s.uc.RecordConsumption(ctx, membershipID, &biz.ConsumptionParams{
		ServiceName:   req.ServiceName,
		Amount:        req.Amount,
		Count:         req.Count,
		TherapistName: req.TherapistName,
		OperatorName:  req.OperatorName,
		Date:          date,
	})
	if err != nil {
		return nil, err
	}
	return &ConsumptionResultReply{
		Membership:  toMembershipReply(card),
		Consumption: toConsumptionReply(consumption),
	}, nil
}

// UpdateStatusRequest 改状态请求
type UpdateStatusRequest struct {
	Status       string `json:"status"`
	Reason       string `json:"reason"`
	OperatorName string `json:"operatorName"`
}

// UpdateStatus 改写卡状态
func (s *MembershipService) UpdateStatus(ctx context.Context, membershipID string, req *UpdateStatusRequest) (*MembershipReply, error) {
	card, err := s.uc.UpdateStatus(ctx, membershipID, req.Status, req.Reason, req.OperatorName)
	if err != nil {
		return nil, err
	}
	return toMembershipReply(card), nil
}

// LedgerRequest 流水查询请求
type LedgerRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Page      int    `json:"page"`
	PageSize  int    `json:"pageSize"`
}

// LedgerSummaryReply 流水汇总响应
type LedgerSummaryReply struct {
	TotalAmount float64 `json:"totalAmount"`
	TotalCount  int     `json:"totalCount"`
}

// RechargeLedgerReply 充值流水列表响应
type RechargeLedgerReply struct {
	List     []*RechargeReply    `json:"list"`
	Total    int64               `json:"total"`
	Summary  *LedgerSummaryReply `json:"summary"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"pageSize"`
}

// ListRecharges 获取充值流水
func (s *MembershipService) ListRecharges(ctx context.Context, membershipID string, req *LedgerRequest) (*RechargeLedgerReply, error) {
	start, end, err := parseLedgerRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	records, total, summary, err := s.uc.ListRecharges(ctx, membershipID, start, end, req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	list := make([]*RechargeReply, 0, len(records))
	for _, r := range records {
		list = append(list, toRechargeReply(r))
	}
	return &RechargeLedgerReply{
		List:     list,
		Total:    total,
		Summary:  &LedgerSummaryReply{TotalAmount: summary.TotalAmount, TotalCount: summary.TotalCount},
		Page:     normalizePage(req.Page),
		PageSize: normalizePageSize(req.PageSize),
	}, nil
}

// ConsumptionLedgerReply 消费流水列表响应
type ConsumptionLedgerReply struct {
	List     []*ConsumptionReply `json:"list"`
	Total    int64               `json:"total"`
	Summary  *LedgerSummaryReply `json:"summary"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"pageSize"`
}

// ListConsumptions 获取消费流水
func (s *MembershipService) ListConsumptions(ctx context.Context, membershipID string, req *LedgerRequest) (*ConsumptionLedgerReply, error) {
	start, end, err := parseLedgerRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	records, total, summary, err := s.uc.ListConsumptions(ctx, membershipID, start, end, req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	list := make([]*ConsumptionReply, 0, len(records))
	for _, r := range records {
		list = append(list, toConsumptionReply(r))
	}
	return &ConsumptionLedgerReply{
		List:     list,
		Total:    total,
		Summary:  &LedgerSummaryReply{TotalAmount: summary.TotalAmount, TotalCount: summary.TotalCount},
		Page:     normalizePage(req.Page),
		PageSize: normalizePageSize(req.PageSize),
	}, nil
}

// parseLedgerRange 解析流水查询的可选日期范围，end 取到当天末尾
func parseLedgerRange(startDate, endDate string) (*time.Time, *time.Time, error) {
	start, err := parseDatePtr(startDate)
	if err != nil {
		return nil, nil, clinicErrors.NewValidation(clinicErrors.ErrCodeInvalidDateRange, "无效的开始日期: %s", startDate)
	}
	end, err := parseDatePtr(endDate)
	if err != nil {
		return nil, nil, clinicErrors.NewValidation(clinicErrors.ErrCodeInvalidDateRange, "无效的结束日期: %s", endDate)
	}
	if end != nil {
		e := end.AddDate(0, 0, 1).Add(-time.Millisecond)
		end = &e
	}
	return start, end, nil
}

// toMembershipReply 领域对象转响应
func toMembershipReply(c *biz.Membership) *MembershipReply {
	reply := &MembershipReply{
		MembershipID: c.MembershipID,
		CardNumber:   c.CardNumber,
		CustomerID:   c.CustomerID,
		TypeID:       c.TypeID,
		CardType:     c.CardType,
		Balance:      c.Balance,
		Count:        c.Count,
		Status:       c.Status,
		Notes:        c.Notes,
		CreatedAt:    c.CreatedAt.Format(constants.TimeFormatDateTime),
	}
	if c.ExpiryDate != nil {
		reply.ExpiryDate = c.ExpiryDate.Format(constants.TimeFormatDate)
	}
	if c.LastRechargeDate != nil {
		reply.LastRechargeDate = c.LastRechargeDate.Format(constants.TimeFormatDateTime)
	}
	if c.LastConsumeDate != nil {
		reply.LastConsumeDate = c.LastConsumeDate.Format(constants.TimeFormatDateTime)
	}
	return reply
}

// toRechargeReply 领域对象转响应
func toRechargeReply(r *biz.RechargeRecord) *RechargeReply {
	return &RechargeReply{
		RechargeID:    r.RechargeID,
		MembershipID:  r.MembershipID,
		RechargeType:  r.RechargeType,
		Amount:        r.Amount,
		RechargeCount: r.RechargeCount,
		ExtendMonths:  r.ExtendMonths,
		BonusAmount:   r.BonusAmount,
		TotalAmount:   r.TotalAmount,
		PaymentMethod: r.PaymentMethod,
		ReceiptNumber: r.ReceiptNumber,
		Source:        r.Source,
		RechargeDate:  r.RechargeDate.Format(constants.TimeFormatDateTime),
		OperatorName:  r.OperatorName,
		Notes:         r.Notes,
	}
}

// toConsumptionReply 领域对象转响应
func toConsumptionReply(c *biz.ConsumptionRecord) *ConsumptionReply {
	return &ConsumptionReply{
		ConsumptionID: c.ConsumptionID,
		MembershipID:  c.MembershipID,
		CustomerID:    c.CustomerID,
		ChildName:     c.ChildName,
		ServiceName:   c.ServiceName,
		Amount:        c.Amount,
		Count:         c.Count,
		ConsumeDate:   c.ConsumeDate.Format(constants.TimeFormatDateTime),
		ReceiptNumber: c.ReceiptNumber,
		TherapistName: c.TherapistName,
		OperatorName:  c.OperatorName,
	}
}

// parseDatePtr 解析可选日期参数，空串返回 nil
func parseDatePtr(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(constants.TimeFormatDate, s, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func normalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

func normalizePageSize(pageSize int) int {
	if pageSize <= 0 {
		return 20
	}
	return pageSize
}
