package service

import (
	"context"
	"time"

	"clinic-service/internal/biz"
	"clinic-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
)

// StatisticsService 统计报表服务
type StatisticsService struct {
	uc  *biz.StatsUseCase
	log *log.Helper
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(uc *biz.StatsUseCase, logger log.Logger) *StatisticsService {
	return &StatisticsService{
		uc:  uc,
		log: log.NewHelper(logger),
	}
}

// StatsWindowRequest 统计窗口请求。Days 优先于日期对，
// 给出 Days 时窗口为最近 N 天（含今天）。
type StatsWindowRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Days      int    `json:"days"`
}

// resolveWindow 统一解析统计窗口
func (s *StatisticsService) resolveWindow(req *StatsWindowRequest) (time.Time, time.Time, error) {
	now := time.Now()
	if req.Days > 0 {
		end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
			AddDate(0, 0, 1).Add(-time.Millisecond)
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
			AddDate(0, 0, -(req.Days - 1))
		return start, end, nil
	}
	return biz.ResolveWindow(req.StartDate, req.EndDate, now)
}

// OverviewReply 经营总览响应
type OverviewReply struct {
	ServiceCount     int64   `json:"serviceCount"`
	ServiceGrowth    float64 `json:"serviceGrowth"`
	Income           float64 `json:"income"`
	IncomeGrowth     float64 `json:"incomeGrowth"`
	NewMemberships   int64   `json:"newMemberships"`
	MembershipGrowth float64 `json:"membershipGrowth"`
	AvgRating        float64 `json:"avgRating"`
	RatingGrowth     float64 `json:"ratingGrowth"`
	StartDate        string  `json:"startDate"`
	EndDate          string  `json:"endDate"`
}

// Overview 经营总览
func (s *StatisticsService) Overview(ctx context.Context, req *StatsWindowRequest) (*OverviewReply, error) {
	start, end, err := s.resolveWindow(req)
	if err != nil {
		return nil, err
	}
	overview, err := s.uc.Overview(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return toOverviewReply(overview), nil
}

// TodayOverview 今日总览
func (s *StatisticsService) TodayOverview(ctx context.Context) (*OverviewReply, error) {
	overview, err := s.uc.TodayOverview(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	return toOverviewReply(overview), nil
}

// toOverviewReply 领域对象转响应
func toOverviewReply(o *biz.OverviewStats) *OverviewReply {
	return &OverviewReply{
		ServiceCount:     o.ServiceCount,
		ServiceGrowth:    o.ServiceGrowth,
		Income:           o.Income,
		IncomeGrowth:     o.IncomeGrowth,
		NewMemberships:   o.NewMemberships,
		MembershipGrowth: o.MembershipGrowth,
		AvgRating:        o.AvgRating,
		RatingGrowth:     o.RatingGrowth,
		StartDate:        o.StartDate,
		EndDate:          o.EndDate,
	}
}

// TrendPointReply 趋势点响应
type TrendPointReply struct {
	Date           string  `json:"date"`
	Amount         float64 `json:"amount"`
	LastYearAmount float64 `json:"lastYearAmount"`
}

// RevenueTrendReply 营收趋势响应
type RevenueTrendReply struct {
	Granularity string             `json:"granularity"`
	Points      []*TrendPointReply `json:"points"`
}

// RevenueTrend 营收趋势
func (s *StatisticsService) RevenueTrend(ctx context.Context, req *StatsWindowRequest) (*RevenueTrendReply, error) {
	start, end, err := s.resolveWindow(req)
	if err != nil {
		return nil, err
	}
	trend, err := s.uc.RevenueTrend(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return toRevenueTrendReply(trend), nil
}

// toRevenueTrendReply 领域对象转响应
func toRevenueTrendReply(t *biz.RevenueTrendStats) *RevenueTrendReply {
	points := make([]*TrendPointReply, 0, len(t.Points))
	for _, p := range t.Points {
		points = append(points, &TrendPointReply{
			Date:           p.Date,
			Amount:         p.Amount,
			LastYearAmount: p.LastYearAmount,
		})
	}
	return &RevenueTrendReply{Granularity: t.Granularity, Points: points}
}

// CompositionItemReply 收入构成响应
type CompositionItemReply struct {
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// IncomeComposition 收入构成
func (s *StatisticsService) IncomeComposition(ctx context.Context, req *StatsWindowRequest) ([]*CompositionItemReply, error) {
	start, end, err := s.resolveWindow(req)
	if err != nil {
		return nil, err
	}
	items, err := s.uc.IncomeComposition(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return toCompositionReply(items), nil
}

// toCompositionReply 领域对象转响应
func toCompositionReply(items []*biz.CompositionItem) []*CompositionItemReply {
	list := make([]*CompositionItemReply, 0, len(items))
	for _, item := range items {
		list = append(list, &CompositionItemReply{
			Category:   item.Category,
			Amount:     item.Amount,
			Percentage: item.Percentage,
		})
	}
	return list
}

// CardRevenueReply 卡类型收入响应
type CardRevenueReply struct {
	CardType      string  `json:"cardType"`
	NewCardAmount float64 `json:"newCardAmount"`
	RenewalAmount float64 `json:"renewalAmount"`
	TotalAmount   float64 `json:"totalAmount"`
}

// CardRevenue 按卡类型统计收入
func (s *StatisticsService) CardRevenue(ctx context.Context, req *StatsWindowRequest) ([]*CardRevenueReply, error) {
	start, end, err := s.resolveWindow(req)
	if err != nil {
		return nil, err
	}
	items, err := s.uc.CardRevenue(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return toCardRevenueReply(items), nil
}

// toCardRevenueReply 领域对象转响应
func toCardRevenueReply(items []*biz.CardRevenueItem) []*CardRevenueReply {
	list := make([]*CardRevenueReply, 0, len(items))
	for _, item := range items {
		list = append(list, &CardRevenueReply{
			CardType:      item.CardType,
			NewCardAmount: item.NewCardAmount,
			RenewalAmount: item.RenewalAmount,
			TotalAmount:   item.TotalAmount,
		})
	}
	return list
}

// TherapistPerformanceReply 理疗师绩效响应
type TherapistPerformanceReply struct {
	TherapistName    string  `json:"therapistName"`
	ServiceCount     int64   `json:"serviceCount"`
	Revenue          float64 `json:"revenue"`
	TotalDuration    int64   `json:"totalDuration"`
	AvgRating        float64 `json:"avgRating"`
	SatisfactionRate float64 `json:"satisfactionRate"`
	ServiceGrowth    float64 `json:"serviceGrowth"`
}

// TherapistPerformance 理疗师绩效
func (s *StatisticsService) TherapistPerformance(ctx context.Context, req *StatsWindowRequest) ([]*TherapistPerformanceReply, error) {
	start, end, err := s.resolveWindow(req)
	if err != nil {
		return nil, err
	}
	items, err := s.uc.TherapistPerformance(ctx, start, end)
	if err != nil {
		return nil, err
	}

	list := make([]*TherapistPerformanceReply, 0, len(items))
	for _, item := range items {
		list = append(list, &TherapistPerformanceReply{
			TherapistName:    item.TherapistName,
			ServiceCount:     item.ServiceCount,
			Revenue:          item.Revenue,
			TotalDuration:    item.TotalDuration,
			AvgRating:        item.AvgRating,
			SatisfactionRate: item.SatisfactionRate,
			ServiceGrowth:    item.ServiceGrowth,
		})
	}
	return list, nil
}

// ActivityBucketReply 客户活跃度分桶响应
type ActivityBucketReply struct {
	Label         string `json:"label"`
	CustomerCount int64  `json:"customerCount"`
}

// CustomerActivity 客户活跃度直方图
func (s *StatisticsService) CustomerActivity(ctx context.Context, req *StatsWindowRequest) ([]*ActivityBucketReply, error) {
	start, end, err := s.resolveWindow(req)
	if err != nil {
		return nil, err
	}
	buckets, err := s.uc.CustomerActivity(ctx, start, end)
	if err != nil {
		return nil, err
	}

	list := make([]*ActivityBucketReply, 0, len(buckets))
	for _, b := range buckets {
		list = append(list, &ActivityBucketReply{Label: b.Label, CustomerCount: b.CustomerCount})
	}
	return list, nil
}

// InactiveCustomerReply 沉睡客户响应
type InactiveCustomerReply struct {
	CustomerID       string `json:"customerId"`
	CustomerName     string `json:"customerName,omitempty"`
	Phone            string `json:"phone,omitempty"`
	ChildName        string `json:"childName,omitempty"`
	LastVisit        string `json:"lastVisit"`
	InactiveDays     int    `json:"inactiveDays"`
	MembershipStatus string `json:"membershipStatus"`
}

// InactiveCustomers 沉睡客户
func (s *StatisticsService) InactiveCustomers(ctx context.Context, thresholdDays int) ([]*InactiveCustomerReply, error) {
	items, err := s.uc.InactiveCustomers(ctx, thresholdDays, time.Now())
	if err != nil {
		return nil, err
	}

	list := make([]*InactiveCustomerReply, 0, len(items))
	for _, item := range items {
		list = append(list, &InactiveCustomerReply{
			CustomerID:       item.CustomerID,
			CustomerName:     item.CustomerName,
			Phone:            item.Phone,
			ChildName:        item.ChildName,
			LastVisit:        item.LastVisit.Format(constants.TimeFormatDate),
			InactiveDays:     item.InactiveDays,
			MembershipStatus: item.MembershipStatus,
		})
	}
	return list, nil
}

// StatisticsReply 首页综合统计响应
type StatisticsReply struct {
	Overview     *OverviewReply          `json:"overview"`
	RevenueTrend *RevenueTrendReply      `json:"revenueTrend"`
	Composition  []*CompositionItemReply `json:"composition"`
	CardRevenue  []*CardRevenueReply     `json:"cardRevenue"`
}

// GetStatistics 首页综合统计
func (s *StatisticsService) GetStatistics(ctx context.Context, req *StatsWindowRequest) (*StatisticsReply, error) {
	start, end, err := s.resolveWindow(req)
	if err != nil {
		return nil, err
	}
	stats, err := s.uc.GetStatistics(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return &StatisticsReply{
		Overview:     toOverviewReply(stats.Overview),
		RevenueTrend: toRevenueTrendReply(stats.RevenueTrend),
		Composition:  toCompositionReply(stats.Composition),
		CardRevenue:  toCardRevenueReply(stats.CardRevenue),
	}, nil
}
