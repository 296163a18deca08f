package biz

import (
	"context"
	"math"
	"time"

	"clinic-service/internal/constants"
	clinicErrors "clinic-service/internal/errors"
	"clinic-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// PeriodTotals 单个统计窗口内的基础汇总
type PeriodTotals struct {
	ServiceCount   int64
	ServiceIncome  float64
	NewMemberships int64
	RatingSum      float64
	RatedCount     int64
}

// TrendBucket 营收趋势的一个桶（key 为 DATE_FORMAT 后的日期段）
type TrendBucket struct {
	Key    string
	Amount float64
}

// CompositionTotals 收入构成原始汇总
type CompositionTotals struct {
	NewCardAmount  float64
	RechargeAmount float64
	ServiceIncome  float64
}

// CardTypeRevenue 按卡类型汇总的开卡/续费收入
type CardTypeRevenue struct {
	CardType      string
	NewCardAmount float64
	RenewalAmount float64
}

// TherapistAggregate 理疗师绩效原始汇总
type TherapistAggregate struct {
	TherapistName  string
	ServiceCount   int64
	Revenue        float64
	TotalDuration  int64
	RatingSum      float64
	RatedCount     int64
	HighRatedCount int64 // 评分 >= 4 的记录数
}

// VisitCountRow 单个客户在窗口内的到店次数
type VisitCountRow struct {
	CustomerID string
	VisitCount int64
}

// LastVisitRow 客户最近一次到店时间
type LastVisitRow struct {
	CustomerID   string
	CustomerName string
	Phone        string
	ChildName    string
	LastVisit    time.Time
}

// StatsRepo 统计数据层接口，只做聚合查询不做折算
type StatsRepo interface {
	PeriodTotals(ctx context.Context, start, end time.Time) (*PeriodTotals, error)
	RevenueBuckets(ctx context.Context, start, end time.Time, granularity string) ([]*TrendBucket, error)
	CompositionTotals(ctx context.Context, start, end time.Time) (*CompositionTotals, error)
	CardTypeRevenues(ctx context.Context, start, end time.Time) ([]*CardTypeRevenue, error)
	TherapistAggregates(ctx context.Context, start, end time.Time) ([]*TherapistAggregate, error)
	TherapistServiceCounts(ctx context.Context, start, end time.Time) (map[string]int64, error)
	VisitCountsByCustomer(ctx context.Context, start, end time.Time) ([]*VisitCountRow, error)
	LastVisitsBefore(ctx context.Context, before time.Time, limit int) ([]*LastVisitRow, error)
}

// OverviewStats 经营总览
type OverviewStats struct {
	ServiceCount     int64
	ServiceGrowth    float64
	Income           float64
	IncomeGrowth     float64
	NewMemberships   int64
	MembershipGrowth float64
	AvgRating        float64
	RatingGrowth     float64
	StartDate        string
	EndDate          string
}

// TrendPoint 营收趋势中的一个点
type TrendPoint struct {
	Date           string
	Amount         float64
	LastYearAmount float64
}

// RevenueTrendStats 营收趋势
type RevenueTrendStats struct {
	Granularity string
	Points      []*TrendPoint
}

// CompositionItem 收入构成的一个分类
type CompositionItem struct {
	Category   string
	Amount     float64
	Percentage float64
}

// CardRevenueItem 按卡类型的收入
type CardRevenueItem struct {
	CardType      string
	NewCardAmount float64
	RenewalAmount float64
	TotalAmount   float64
}

// TherapistPerformanceItem 理疗师绩效
type TherapistPerformanceItem struct {
	TherapistName    string
	ServiceCount     int64
	Revenue          float64
	TotalDuration    int64
	AvgRating        float64
	SatisfactionRate float64
	ServiceGrowth    float64
}

// ActivityBucket 客户活跃度直方图的一个桶
type ActivityBucket struct {
	Label         string
	CustomerCount int64
}

// InactiveCustomer 沉睡客户
type InactiveCustomer struct {
	CustomerID       string
	CustomerName     string
	Phone            string
	ChildName        string
	LastVisit        time.Time
	InactiveDays     int
	MembershipStatus string
}

// Statistics 综合统计（首页用）
type Statistics struct {
	Overview     *OverviewStats
	RevenueTrend *RevenueTrendStats
	Composition  []*CompositionItem
	CardRevenue  []*CardRevenueItem
}

// StatsUseCase 统计报表业务逻辑
type StatsUseCase struct {
	repo           StatsRepo
	membershipRepo MembershipRepo
	cfg            *ClinicConfig
	log            *log.Helper
	metrics        *metrics.ClinicMetrics
}

// NewStatsUseCase 创建统计 UseCase
func NewStatsUseCase(repo StatsRepo, membershipRepo MembershipRepo, cfg *ClinicConfig, logger log.Logger) *StatsUseCase {
	return &StatsUseCase{
		repo:           repo,
		membershipRepo: membershipRepo,
		cfg:            cfg,
		log:            log.NewHelper(logger),
		metrics:        metrics.GetMetrics(),
	}
}

// ResolveWindow 解析统计窗口。两端都缺省时取当前自然月；
// 只给一端时报错；end 取到当天的 23:59:59.999。
func ResolveWindow(startDate, endDate string, now time.Time) (time.Time, time.Time, error) {
	if startDate == "" && endDate == "" {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
		return start, end, nil
	}
	if startDate == "" || endDate == "" {
		return time.Time{}, time.Time{}, clinicErrors.NewValidation(
			clinicErrors.ErrCodeInvalidDateRange, "startDate 与 endDate 必须同时给出")
	}
	start, err := time.ParseInLocation(constants.TimeFormatDate, startDate, now.Location())
	if err != nil {
		return time.Time{}, time.Time{}, clinicErrors.NewValidation(
			clinicErrors.ErrCodeInvalidDateRange, "无效的开始日期: %s", startDate)
	}
	end, err := time.ParseInLocation(constants.TimeFormatDate, endDate, now.Location())
	if err != nil {
		return time.Time{}, time.Time{}, clinicErrors.NewValidation(
			clinicErrors.ErrCodeInvalidDateRange, "无效的结束日期: %s", endDate)
	}
	end = end.AddDate(0, 0, 1).Add(-time.Millisecond)
	if end.Before(start) {
		return time.Time{}, time.Time{}, clinicErrors.NewValidation(
			clinicErrors.ErrCodeInvalidDateRange, "结束日期不能早于开始日期")
	}
	return start, end, nil
}

// growthRate 环比增长率。上期为 0 时固定返回 100。
func growthRate(current, previous float64) float64 {
	if previous == 0 {
		return 100
	}
	return round2((current - previous) / previous * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Overview 经营总览：窗口内服务量、服务收入、新增会员、平均评分，
// 均与等长的上一个窗口对比得出增长率。
func (uc *StatsUseCase) Overview(ctx context.Context, start, end time.Time) (*OverviewStats, error) {
	defer uc.observeQuery("overview", time.Now())

	cur, err := uc.repo.PeriodTotals(ctx, start, end)
	if err != nil {
		return nil, clinicErrors.Wrap(err, clinicErrors.ErrCodeGetStatsFailed, "获取总览统计失败")
	}

	// 上一个等长窗口：[start - duration, start - 1ms]
	duration := end.Sub(start)
	prevEnd := start.Add(-time.Millisecond)
	prevStart := start.Add(-duration)
	prev, err := uc.repo.PeriodTotals(ctx, prevStart, prevEnd)
	if err != nil {
		return nil, clinicErrors.Wrap(err, clinicErrors.ErrCodeGetStatsFailed, "获取总览统计失败")
	}

	return &OverviewStats{
		ServiceCount:     cur.ServiceCount,
		ServiceGrowth:    growthRate(float64(cur.ServiceCount), float64(prev.ServiceCount)),
		Income:           round2(cur.ServiceIncome),
		IncomeGrowth:     growthRate(cur.ServiceIncome, prev.ServiceIncome),
		NewMemberships:   cur.NewMemberships,
		MembershipGrowth: growthRate(float64(cur.NewMemberships), float64(prev.NewMemberships)),
		AvgRating:        avgRating(cur),
		RatingGrowth:     growthRate(avgRating(cur), avgRating(prev)),
		StartDate:        start.Format(constants.TimeFormatDate),
		EndDate:          end.Format(constants.TimeFormatDate),
	}, nil
}

func avgRating(t *PeriodTotals) float64 {
	if t.RatedCount == 0 {
		return 0
	}
	return round2(t.RatingSum / float64(t.RatedCount))
}

// TodayOverview 今日总览（与昨日对比）
func (uc *StatsUseCase) TodayOverview(ctx context.Context, now time.Time) (*OverviewStats, error) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return uc.Overview(ctx, start, end)
}

// trendGranularity 按窗口跨度选择趋势粒度：
// 不超过 60 天按日，不超过 730 天按月，其余按年。
func trendGranularity(start, end time.Time) string {
	days := end.Sub(start).Hours() / 24
	switch {
	case days <= 60:
		return constants.TrendGranularityDay
	case days <= 730:
		return constants.TrendGranularityMonth
	default:
		return constants.TrendGranularityYear
	}
}

// RevenueTrend 营收趋势：按粒度分桶求和，补齐窗口内全部日期（无业务的桶为 0），
// 并给出去年同期的对照序列（按同位次对齐）。
func (uc *StatsUseCase) RevenueTrend(ctx context.Context, start, end time.Time) (*RevenueTrendStats, error) {
	defer uc.observeQuery("revenue_trend", time.Now())

	granularity := trendGranularity(start, end)

	buckets, err := uc.repo.RevenueBuckets(ctx, start, end, granularity)
	if err != nil {
		return nil, clinicErrors.Wrap(err, clinicErrors.ErrCodeGetStatsFailed, "获取营收趋势失败")
	}
	lastYearBuckets, err := uc.repo.RevenueBuckets(ctx, start.AddDate(-1, 0, 0), end.AddDate(-1, 0, 0), granularity)
	if err != nil {
		return nil, clinicErrors.Wrap(err, clinicErrors.ErrCodeGetStatsFailed, "获取营收趋势失败")
	}

	byKey := make(map[string]float64, len(buckets))
	for _, b := range buckets {
		byKey[b.Key] = b.Amount
	}
	lastYearByKey := make(map[string]float64, len(lastYearBuckets))
	for _, b := range lastYearBuckets {
		lastYearByKey[b.Key] = b.Amount
	}

	keys := bucketKeys(start, end, granularity)
	points := make([]*TrendPoint, 0, len(keys))
	for _, key := range keys {
		points = append(points, &TrendPoint{
			Date:           key,
			Amount:         round2(byKey[key]),
			LastYearAmount: round2(lastYearByKey[shiftKeyBackOneYear(key, granularity)]),
		})
	}

	return &RevenueTrendStats{Granularity: granularity, Points: points}, nil
}

// bucketKeys 生成窗口内所有日期段 key（稠密序列）
func bucketKeys(start, end time.Time, granularity string) []string {
	var keys []string
	switch granularity {
	case constants.TrendGranularityDay:
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			keys = append(keys, d.Format(constants.TimeFormatDate))
		}
	case constants.TrendGranularityMonth:
		for d := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location()); !d.After(end); d = d.AddDate(0, 1, 0) {
			keys = append(keys, d.Format(constants.TimeFormatMonth))
		}
	default:
		for y := start.Year(); y <= end.Year(); y++ {
			keys = append(keys, time.Date(y, 1, 1, 0, 0, 0, 0, start.Location()).Format(constants.TimeFormatYear))
		}
	}
	return keys
}

// shiftKeyBackOneYear 把当期 key 换算成去年同期 key
func shiftKeyBackOneYear(key, granularity string) string {
	var layout string
	switch granularity {
	case constants.TrendGranularityDay:
		layout = constants.TimeFormatDate
	case constants.TrendGranularityMonth:
		layout = constants.TimeFormatMonth
	default:
		layout = constants.TimeFormatYear
	}
	t, err := time.Parse(layout, key)
	if err != nil {
		return key
	}
	return t.AddDate(-1, 0, 0).Format(layout)
}

// IncomeComposition 收入构成：开卡收入、续充收入、服务收入各占总收入的百分比。
// 总收入为 0 时三项百分比都为 0。
func (uc *StatsUseCase) IncomeComposition(ctx context.Context, start, end time.Time) ([]*CompositionItem, error) {
	defer uc.observeQuery("income_composition", time.Now())

	totals, err := uc.repo.CompositionTotals(ctx, start, end)
	if err != nil {
		return nil, clinicErrors.Wrap(err, clinicErrors.ErrCodeGetStatsFailed, "获取收入构成失败")
	}

	total := totals.NewCardAmount + totals.RechargeAmount + totals.ServiceIncome
	percentage := func(amount float64) float64 {
		if total == 0 {
			return 0
		}
		return round2(amount / total * 100)
	}

	return []*CompositionItem{
		{Category: "new_card", Amount: round2(totals.NewCardAmount), Percentage: percentage(totals.NewCardAmount)},
		{Category: "recharge", Amount: round2(totals.RechargeAmount), Percentage: percentage(totals.RechargeAmount)},
		{Category: "service", Amount: round2(totals.ServiceIncome), Percentage: percentage(totals.ServiceIncome)},
	}, nil
}

// CardRevenue 按卡类型统计开卡与续费收入
func (uc *StatsUseCase) CardRevenue(ctx context.Context, start, end time.Time) ([]*CardRevenueItem, error) {
	defer uc.observeQuery("card_revenue", time.Now())

	rows, err := uc.repo.CardTypeRevenues(ctx, start, end)
	if err != nil {
		return nil, clinicErrors.Wrap(err, clinicErrors.ErrCodeGetStatsFailed, "获取会员卡收入失败")
	}

	items := make([]*CardRevenueItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, &CardRevenueItem{
			CardType:      r.CardType,
			NewCardAmount: round2(r.NewCardAmount),
			RenewalAmount: round2(r.RenewalAmount),
			TotalAmount:   round2(r.NewCardAmount + r.RenewalAmount),
		})
	}
	return items, nil
}

// TherapistPerformance 理疗师绩效：服务量、营收、总时长、
// 平均评分（仅统计有评分的记录）、满意率（评分 >= 4 占比）、
// 服务量环比增长率。
func (uc *StatsUseCase) TherapistPerformance(ctx context.Context, start, end time.Time) ([]*TherapistPerformanceItem, error) {
	defer uc.observeQuery("therapist_performance", time.Now())

	rows, err := uc.repo.TherapistAggregates(ctx, start, end)
	if err != nil {
		return nil, clinicErrors.Wrap(err, clinicErrors.ErrCodeGetStatsFailed, "获取理疗师绩效失败")
	}

	duration := end.Sub(start)
	prevCounts, err := uc.repo.TherapistServiceCounts(ctx, start.Add(-duration), start.Add(-time.Millisecond))
	if err != nil {
		return nil, clinicErrors.Wrap(err, clinicErrors.ErrCodeGetStatsFailed, "获取理疗师绩效失败")
	}

	items := make([]*TherapistPerformanceItem, 0, len(rows))
	for _, r := range rows {
		item := &TherapistPerformanceItem{
			TherapistName: r.TherapistName,
			ServiceCount:  r.ServiceCount,
			Revenue:       round2(r.Revenue),
			TotalDuration: r.TotalDuration,
			ServiceGrowth: growthRate(float64(r.ServiceCount), float64(prevCounts[r.TherapistName])),
		}
		if r.RatedCount > 0 {
			item.AvgRating = round2(r.RatingSum / float64(r.RatedCount))
			item.SatisfactionRate = round2(float64(r.HighRatedCount) / float64(r.RatedCount) * 100)
		}
		items = append(items, item)
	}
	return items, nil
}

// activityBuckets 客户活跃度的固定分桶
var activityBuckets = []struct {
	Label string
	Min   int64
	Max   int64 // 0 表示不设上限
}{
	{Label: "1次", Min: 1, Max: 1},
	{Label: "2-3次", Min: 2, Max: 3},
	{Label: "4-5次", Min: 4, Max: 5},
	{Label: "6-10次", Min: 6, Max: 10},
	{Label: "10次以上", Min: 11, Max: 0},
}

// CustomerActivity 客户活跃度直方图：按窗口内到店次数分桶
func (uc *StatsUseCase) CustomerActivity(ctx context.Context, start, end time.Time) ([]*ActivityBucket, error) {
	defer uc.observeQuery("customer_activity", time.Now())

	rows, err := uc.repo.VisitCountsByCustomer(ctx, start, end)
	if err != nil {
		return nil, clinicErrors.Wrap(err, clinicErrors.ErrCodeGetStatsFailed, "获取客户活跃度失败")
	}

	result := make([]*ActivityBucket, len(activityBuckets))
	for i, b := range activityBuckets {
		result[i] = &ActivityBucket{Label: b.Label}
	}
	for _, row := range rows {
		for i, b := range activityBuckets {
			if row.VisitCount >= b.Min && (b.Max == 0 || row.VisitCount <= b.Max) {
				result[i].CustomerCount++
				break
			}
		}
	}
	return result, nil
}

// InactiveCustomers 沉睡客户：最近一次到店早于 now - thresholdDays 的客户，
// 取沉睡最久的前 N 个，并标注沉睡天数与会员状态标签。
func (uc *StatsUseCase) InactiveCustomers(ctx context.Context, thresholdDays int, now time.Time) ([]*InactiveCustomer, error) {
	defer uc.observeQuery("inactive_customers", time.Now())

	if thresholdDays <= 0 {
		thresholdDays = uc.cfg.InactiveDefaultDays
	}
	cutoff := now.AddDate(0, 0, -thresholdDays)

	rows, err := uc.repo.LastVisitsBefore(ctx, cutoff, uc.cfg.InactiveTopN)
	if err != nil {
		return nil, clinicErrors.Wrap(err, clinicErrors.ErrCodeGetStatsFailed, "获取沉睡客户失败")
	}

	items := make([]*InactiveCustomer, 0, len(rows))
	for _, row := range rows {
		label := constants.MembershipStatusNone
		card, err := uc.membershipRepo.LatestByCustomer(ctx, row.CustomerID)
		if err != nil {
			uc.log.Warnf("InactiveCustomers: load latest card failed: customer_id=%s, error=%v", row.CustomerID, err)
		} else {
			label = DeriveMembershipLabel(card, now, uc.cfg.ExpiringSoonDays)
		}
		items = append(items, &InactiveCustomer{
			CustomerID:       row.CustomerID,
			CustomerName:     row.CustomerName,
			Phone:            row.Phone,
			ChildName:        row.ChildName,
			LastVisit:        row.LastVisit,
			InactiveDays:     int(now.Sub(row.LastVisit).Hours() / 24),
			MembershipStatus: label,
		})
	}
	return items, nil
}

// GetStatistics 首页综合统计：总览 + 趋势 + 收入构成 + 卡收入
func (uc *StatsUseCase) GetStatistics(ctx context.Context, start, end time.Time) (*Statistics, error) {
	overview, err := uc.Overview(ctx, start, end)
	if err != nil {
		return nil, err
	}
	trend, err := uc.RevenueTrend(ctx, start, end)
	if err != nil {
		return nil, err
	}
	composition, err := uc.IncomeComposition(ctx, start, end)
	if err != nil {
		return nil, err
	}
	cardRevenue, err := uc.CardRevenue(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return &Statistics{
		Overview:     overview,
		RevenueTrend: trend,
		Composition:  composition,
		CardRevenue:  cardRevenue,
	}, nil
}

func (uc *StatsUseCase) observeQuery(report string, start time.Time) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.StatsQueryDuration.WithLabelValues(report).Observe(time.Since(start).Seconds())
}
