package biz

import (
	"context"
	"testing"
	"time"

	"clinic-service/internal/constants"
	clinicErrors "clinic-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStatsRepo 返回预置聚合结果的统计仓储
type fakeStatsRepo struct {
	totalsByStart  map[string]*PeriodTotals // key: start 的日期
	buckets        map[int][]*TrendBucket   // key: start 的年份
	composition    *CompositionTotals
	cardRevenues   []*CardTypeRevenue
	therapists     []*TherapistAggregate
	prevCounts     map[string]int64
	visitCounts    []*VisitCountRow
	lastVisits     []*LastVisitRow
	lastVisitLimit int
}

func (f *fakeStatsRepo) PeriodTotals(_ context.Context, start, _ time.Time) (*PeriodTotals, error) {
	if t, ok := f.totalsByStart[start.Format(constants.TimeFormatDate)]; ok {
		return t, nil
	}
	return &PeriodTotals{}, nil
}

func (f *fakeStatsRepo) RevenueBuckets(_ context.Context, start, _ time.Time, _ string) ([]*TrendBucket, error) {
	return f.buckets[start.Year()], nil
}

func (f *fakeStatsRepo) CompositionTotals(_ context.Context, _, _ time.Time) (*CompositionTotals, error) {
	if f.composition == nil {
		return &CompositionTotals{}, nil
	}
	return f.composition, nil
}

func (f *fakeStatsRepo) CardTypeRevenues(_ context.Context, _, _ time.Time) ([]*CardTypeRevenue, error) {
	return f.cardRevenues, nil
}

func (f *fakeStatsRepo) TherapistAggregates(_ context.Context, _, _ time.Time) ([]*TherapistAggregate, error) {
	return f.therapists, nil
}

func (f *fakeStatsRepo) TherapistServiceCounts(_ context.Context, _, _ time.Time) (map[string]int64, error) {
	if f.prevCounts == nil {
		return map[string]int64{}, nil
	}
	return f.prevCounts, nil
}

func (f *fakeStatsRepo) VisitCountsByCustomer(_ context.Context, _, _ time.Time) ([]*VisitCountRow, error) {
	return f.visitCounts, nil
}

func (f *fakeStatsRepo) LastVisitsBefore(_ context.Context, _ time.Time, limit int) ([]*LastVisitRow, error) {
	f.lastVisitLimit = limit
	return f.lastVisits, nil
}

func newTestStatsUseCase(repo *fakeStatsRepo) (*StatsUseCase, *fakeMembershipRepo) {
	membershipRepo := newFakeMembershipRepo()
	uc := NewStatsUseCase(repo, membershipRepo, testClinicConfig(), log.DefaultLogger)
	return uc, membershipRepo
}

func TestResolveWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.Local)

	t.Run("缺省取当前自然月", func(t *testing.T) {
		start, end, err := ResolveWindow("", "", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local), start)
		assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.Local).Add(-time.Millisecond), end)
	})

	t.Run("只给一端报错", func(t *testing.T) {
		_, _, err := ResolveWindow("2026-03-01", "", now)
		require.Error(t, err)
		assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeInvalidDateRange))

		_, _, err = ResolveWindow("", "2026-03-31", now)
		require.Error(t, err)
	})

	t.Run("结束日取到当天末尾", func(t *testing.T) {
		start, end, err := ResolveWindow("2026-03-01", "2026-03-10", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local), start)
		assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.Local).Add(-time.Millisecond), end)
	})

	t.Run("结束早于开始报错", func(t *testing.T) {
		_, _, err := ResolveWindow("2026-03-10", "2026-03-01", now)
		require.Error(t, err)
		assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeInvalidDateRange))
	})

	t.Run("格式错误报错", func(t *testing.T) {
		_, _, err := ResolveWindow("03/01/2026", "2026-03-31", now)
		require.Error(t, err)
	})
}

func TestGrowthRate(t *testing.T) {
	// 上期为 0 固定返回 100，包括本期也为 0 的情形
	assert.Equal(t, float64(100), growthRate(50, 0))
	assert.Equal(t, float64(100), growthRate(0, 0))

	assert.Equal(t, float64(50), growthRate(150, 100))
	assert.Equal(t, float64(-25), growthRate(75, 100))
	assert.Equal(t, 33.33, growthRate(4, 3))
}

func TestTrendGranularity(t *testing.T) {
	loc := time.Local
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, loc)

	day := func(n int) time.Time { return start.AddDate(0, 0, n).Add(-time.Millisecond) }

	assert.Equal(t, constants.TrendGranularityDay, trendGranularity(start, day(1)))
	assert.Equal(t, constants.TrendGranularityDay, trendGranularity(start, day(60)))
	assert.Equal(t, constants.TrendGranularityMonth, trendGranularity(start, day(61)))
	assert.Equal(t, constants.TrendGranularityMonth, trendGranularity(start, day(730)))
	assert.Equal(t, constants.TrendGranularityYear, trendGranularity(start, day(1095)))
}

func TestBucketKeys(t *testing.T) {
	loc := time.Local

	t.Run("按日稠密补齐", func(t *testing.T) {
		start := time.Date(2026, 2, 27, 0, 0, 0, 0, loc)
		end := time.Date(2026, 3, 2, 23, 59, 59, 0, loc)
		keys := bucketKeys(start, end, constants.TrendGranularityDay)
		assert.Equal(t, []string{"2026-02-27", "2026-02-28", "2026-03-01", "2026-03-02"}, keys)
	})

	t.Run("按月", func(t *testing.T) {
		start := time.Date(2025, 11, 15, 0, 0, 0, 0, loc)
		end := time.Date(2026, 2, 10, 0, 0, 0, 0, loc)
		keys := bucketKeys(start, end, constants.TrendGranularityMonth)
		assert.Equal(t, []string{"2025-11", "2025-12", "2026-01", "2026-02"}, keys)
	})

	t.Run("按年", func(t *testing.T) {
		start := time.Date(2023, 6, 1, 0, 0, 0, 0, loc)
		end := time.Date(2026, 1, 1, 0, 0, 0, 0, loc)
		keys := bucketKeys(start, end, constants.TrendGranularityYear)
		assert.Equal(t, []string{"2023", "2024", "2025", "2026"}, keys)
	})
}

func TestShiftKeyBackOneYear(t *testing.T) {
	assert.Equal(t, "2025-03-15", shiftKeyBackOneYear("2026-03-15", constants.TrendGranularityDay))
	assert.Equal(t, "2025-02", shiftKeyBackOneYear("2026-02", constants.TrendGranularityMonth))
	assert.Equal(t, "2025", shiftKeyBackOneYear("2026", constants.TrendGranularityYear))
}

func TestOverview_GrowthAgainstPreviousWindow(t *testing.T) {
	loc := time.Local
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, loc)
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, loc).Add(-time.Millisecond)
	prevStart := start.Add(-end.Sub(start))

	repo := &fakeStatsRepo{
		totalsByStart: map[string]*PeriodTotals{
			start.Format(constants.TimeFormatDate): {
				ServiceCount:   150,
				ServiceIncome:  30000,
				NewMemberships: 12,
				RatingSum:      450,
				RatedCount:     100,
			},
			prevStart.Format(constants.TimeFormatDate): {
				ServiceCount:   100,
				ServiceIncome:  24000,
				NewMemberships: 0,
				RatingSum:      400,
				RatedCount:     100,
			},
		},
	}
	uc, _ := newTestStatsUseCase(repo)

	overview, err := uc.Overview(context.Background(), start, end)
	require.NoError(t, err)

	assert.Equal(t, int64(150), overview.ServiceCount)
	assert.Equal(t, float64(50), overview.ServiceGrowth)
	assert.Equal(t, float64(30000), overview.Income)
	assert.Equal(t, float64(25), overview.IncomeGrowth)
	// 上期无新增会员，增长率固定 100
	assert.Equal(t, float64(100), overview.MembershipGrowth)
	assert.Equal(t, 4.5, overview.AvgRating)
	assert.Equal(t, "2026-03-01", overview.StartDate)
	assert.Equal(t, "2026-03-31", overview.EndDate)
}

func TestRevenueTrend_DenseFillAndLastYear(t *testing.T) {
	loc := time.Local
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, loc)
	end := time.Date(2026, 3, 3, 0, 0, 0, 0, loc).AddDate(0, 0, 1).Add(-time.Millisecond)

	repo := &fakeStatsRepo{
		buckets: map[int][]*TrendBucket{
			2026: {
				{Key: "2026-03-01", Amount: 100},
				{Key: "2026-03-03", Amount: 300},
			},
			2025: {
				{Key: "2025-03-02", Amount: 50},
			},
		},
	}
	uc, _ := newTestStatsUseCase(repo)

	trend, err := uc.RevenueTrend(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, constants.TrendGranularityDay, trend.Granularity)
	require.Len(t, trend.Points, 3)

	// 无业务的日期补 0
	assert.Equal(t, "2026-03-01", trend.Points[0].Date)
	assert.Equal(t, float64(100), trend.Points[0].Amount)
	assert.Equal(t, float64(0), trend.Points[0].LastYearAmount)

	// 去年同期按同位次对齐
	assert.Equal(t, "2026-03-02", trend.Points[1].Date)
	assert.Equal(t, float64(0), trend.Points[1].Amount)
	assert.Equal(t, float64(50), trend.Points[1].LastYearAmount)

	assert.Equal(t, float64(300), trend.Points[2].Amount)
}

func TestIncomeComposition(t *testing.T) {
	loc := time.Local
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, loc)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, loc)

	t.Run("正常占比", func(t *testing.T) {
		repo := &fakeStatsRepo{
			composition: &CompositionTotals{NewCardAmount: 5000, RechargeAmount: 3000, ServiceIncome: 2000},
		}
		uc, _ := newTestStatsUseCase(repo)

		items, err := uc.IncomeComposition(context.Background(), start, end)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "new_card", items[0].Category)
		assert.Equal(t, float64(50), items[0].Percentage)
		assert.Equal(t, float64(30), items[1].Percentage)
		assert.Equal(t, float64(20), items[2].Percentage)
	})

	t.Run("总收入为 0 占比全 0", func(t *testing.T) {
		uc, _ := newTestStatsUseCase(&fakeStatsRepo{})
		items, err := uc.IncomeComposition(context.Background(), start, end)
		require.NoError(t, err)
		for _, item := range items {
			assert.Equal(t, float64(0), item.Percentage)
		}
	})
}

func TestTherapistPerformance(t *testing.T) {
	loc := time.Local
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, loc)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, loc)

	repo := &fakeStatsRepo{
		therapists: []*TherapistAggregate{
			{
				TherapistName:  "李医师",
				ServiceCount:   80,
				Revenue:        16000,
				TotalDuration:  2400,
				RatingSum:      270,
				RatedCount:     60,
				HighRatedCount: 54,
			},
			{
				TherapistName: "张医师",
				ServiceCount:  40,
				Revenue:       8000,
			},
		},
		prevCounts: map[string]int64{"李医师": 64},
	}
	uc, _ := newTestStatsUseCase(repo)

	items, err := uc.TherapistPerformance(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, 4.5, items[0].AvgRating)
	assert.Equal(t, float64(90), items[0].SatisfactionRate)
	assert.Equal(t, float64(25), items[0].ServiceGrowth)

	// 无评分记录的理疗师评分与满意率为 0，上期无记录增长率固定 100
	assert.Equal(t, float64(0), items[1].AvgRating)
	assert.Equal(t, float64(0), items[1].SatisfactionRate)
	assert.Equal(t, float64(100), items[1].ServiceGrowth)
}

func TestCustomerActivity_Buckets(t *testing.T) {
	loc := time.Local
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, loc)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, loc)

	repo := &fakeStatsRepo{
		visitCounts: []*VisitCountRow{
			{CustomerID: "c1", VisitCount: 1},
			{CustomerID: "c2", VisitCount: 2},
			{CustomerID: "c3", VisitCount: 3},
			{CustomerID: "c4", VisitCount: 5},
			{CustomerID: "c5", VisitCount: 10},
			{CustomerID: "c6", VisitCount: 11},
			{CustomerID: "c7", VisitCount: 30},
		},
	}
	uc, _ := newTestStatsUseCase(repo)

	buckets, err := uc.CustomerActivity(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, buckets, 5)

	assert.Equal(t, "1次", buckets[0].Label)
	assert.Equal(t, int64(1), buckets[0].CustomerCount)
	assert.Equal(t, int64(2), buckets[1].CustomerCount) // 2-3次
	assert.Equal(t, int64(1), buckets[2].CustomerCount) // 4-5次
	assert.Equal(t, int64(1), buckets[3].CustomerCount) // 6-10次
	assert.Equal(t, int64(2), buckets[4].CustomerCount) // 10次以上
}

func TestInactiveCustomers(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.Local)
	lastVisit := now.AddDate(0, 0, -45)

	repo := &fakeStatsRepo{
		lastVisits: []*LastVisitRow{
			{CustomerID: "cust-1", CustomerName: "王先生", Phone: "13800000001", ChildName: "小明", LastVisit: lastVisit},
		},
	}
	uc, membershipRepo := newTestStatsUseCase(repo)

	expiry := now.AddDate(1, 0, 0)
	membershipRepo.cards["card-1"] = &Membership{
		MembershipID: "card-1",
		CustomerID:   "cust-1",
		Status:       constants.CardStatusActive,
		ExpiryDate:   &expiry,
		CreatedAt:    now,
	}

	items, err := uc.InactiveCustomers(context.Background(), 0, now)
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "cust-1", items[0].CustomerID)
	assert.Equal(t, 45, items[0].InactiveDays)
	assert.Equal(t, constants.MembershipStatusActive, items[0].MembershipStatus)
	// 未显式给阈值时用默认 TopN
	assert.Equal(t, 10, repo.lastVisitLimit)
}

func TestGetStatistics_Composite(t *testing.T) {
	loc := time.Local
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, loc)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, loc)

	repo := &fakeStatsRepo{
		totalsByStart: map[string]*PeriodTotals{
			start.Format(constants.TimeFormatDate): {ServiceCount: 10, ServiceIncome: 2000},
		},
		composition: &CompositionTotals{ServiceIncome: 2000},
		cardRevenues: []*CardTypeRevenue{
			{CardType: constants.CardTypeCount, NewCardAmount: 3000, RenewalAmount: 1000},
		},
	}
	uc, _ := newTestStatsUseCase(repo)

	stats, err := uc.GetStatistics(context.Background(), start, end)
	require.NoError(t, err)
	require.NotNil(t, stats.Overview)
	require.NotNil(t, stats.RevenueTrend)
	require.Len(t, stats.Composition, 3)
	require.Len(t, stats.CardRevenue, 1)
	assert.Equal(t, float64(4000), stats.CardRevenue[0].TotalAmount)
}

func TestAvgRating(t *testing.T) {
	assert.Equal(t, float64(0), avgRating(&PeriodTotals{RatingSum: 0, RatedCount: 0}))
	assert.Equal(t, 4.33, avgRating(&PeriodTotals{RatingSum: 13, RatedCount: 3}))
}
