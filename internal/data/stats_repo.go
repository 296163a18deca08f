package data

import (
	"context"
	"fmt"
	"time"

	"clinic-service/internal/biz"
	"clinic-service/internal/constants"
	"clinic-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
)

// statsRepo 统计相关数据访问，只做聚合查询
type statsRepo struct {
	data *Data
	log  *log.Helper
}

// NewStatsRepo 创建统计 repo（返回 biz.StatsRepo 接口）
func NewStatsRepo(data *Data, logger log.Logger) biz.StatsRepo {
	return &statsRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// PeriodTotals 统计窗口内的服务量、服务收入、新增会员卡与评分汇总
func (r *statsRepo) PeriodTotals(ctx context.Context, start, end time.Time) (*biz.PeriodTotals, error) {
	var visitResult struct {
		ServiceCount  int64
		ServiceIncome float64
		RatingSum     float64
		RatedCount    int64
	}
	if err := r.data.db.WithContext(ctx).
		Model(&model.ServiceVisit{}).
		Where("service_date >= ? AND service_date <= ?", start, end).
		Select(
			"COUNT(*) AS service_count",
			"COALESCE(SUM(service_fee), 0) AS service_income",
			"COALESCE(SUM(CASE WHEN rating > 0 THEN rating ELSE 0 END), 0) AS rating_sum",
			"COALESCE(SUM(CASE WHEN rating > 0 THEN 1 ELSE 0 END), 0) AS rated_count",
		).
		Scan(&visitResult).Error; err != nil {
		return nil, err
	}

	var newMemberships int64
	if err := r.data.db.WithContext(ctx).
		Model(&model.Membership{}).
		Where("created_at >= ? AND created_at <= ?", start, end).
		Count(&newMemberships).Error; err != nil {
		return nil, err
	}

	return &biz.PeriodTotals{
		ServiceCount:   visitResult.ServiceCount,
		ServiceIncome:  visitResult.ServiceIncome,
		NewMemberships: newMemberships,
		RatingSum:      visitResult.RatingSum,
		RatedCount:     visitResult.RatedCount,
	}, nil
}

// bucketDateFormat 粒度对应的 MySQL DATE_FORMAT 格式
func bucketDateFormat(granularity string) string {
	switch granularity {
	case constants.TrendGranularityDay:
		return "%Y-%m-%d"
	case constants.TrendGranularityMonth:
		return "%Y-%m"
	default:
		return "%Y"
	}
}

// RevenueBuckets 按粒度分桶汇总服务收入，只返回有业务的桶
func (r *statsRepo) RevenueBuckets(ctx context.Context, start, end time.Time, granularity string) ([]*biz.TrendBucket, error) {
	var rows []struct {
		BucketKey string
		Amount    float64
	}
	if err := r.data.db.WithContext(ctx).
		Model(&model.ServiceVisit{}).
		Where("service_date >= ? AND service_date <= ?", start, end).
		Select(
			fmt.Sprintf("DATE_FORMAT(service_date, '%s') AS bucket_key", bucketDateFormat(granularity)),
			"COALESCE(SUM(service_fee), 0) AS amount",
		).
		Group("bucket_key").
		Order("bucket_key ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	buckets := make([]*biz.TrendBucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, &biz.TrendBucket{Key: row.BucketKey, Amount: row.Amount})
	}
	return buckets, nil
}

// CompositionTotals 收入构成：开卡实收、续充实收、直接服务收入。
// 会员卡扣费的服务不计入服务收入，其现金流在开卡/充值时已入账。
func (r *statsRepo) CompositionTotals(ctx context.Context, start, end time.Time) (*biz.CompositionTotals, error) {
	var rechargeResult struct {
		NewCardAmount  float64
		RechargeAmount float64
	}
	if err := r.data.db.WithContext(ctx).
		Model(&model.RechargeRecord{}).
		Where("recharge_date >= ? AND recharge_date <= ?", start, end).
		Select(
			fmt.Sprintf("COALESCE(SUM(CASE WHEN source = '%s' THEN total_amount ELSE 0 END), 0) AS new_card_amount", constants.RechargeSourceIssue),
			fmt.Sprintf("COALESCE(SUM(CASE WHEN source = '%s' THEN total_amount ELSE 0 END), 0) AS recharge_amount", constants.RechargeSourceRecharge),
		).
		Scan(&rechargeResult).Error; err != nil {
		return nil, err
	}

	var serviceResult struct {
		ServiceIncome float64
	}
	if err := r.data.db.WithContext(ctx).
		Model(&model.ServiceVisit{}).
		Where("service_date >= ? AND service_date <= ?", start, end).
		Select(
			fmt.Sprintf("COALESCE(SUM(CASE WHEN payment_method <> '%s' THEN service_fee ELSE 0 END), 0) AS service_income", constants.PaymentMethodMembership),
		).
		Scan(&serviceResult).Error; err != nil {
		return nil, err
	}

	return &biz.CompositionTotals{
		NewCardAmount:  rechargeResult.NewCardAmount,
		RechargeAmount: rechargeResult.RechargeAmount,
		ServiceIncome:  serviceResult.ServiceIncome,
	}, nil
}

// CardTypeRevenues 按卡类型汇总开卡与续费实收，充值流水回联会员卡取卡类型
func (r *statsRepo) CardTypeRevenues(ctx context.Context, start, end time.Time) ([]*biz.CardTypeRevenue, error) {
	var rows []struct {
		CardType      string
		NewCardAmount float64
		RenewalAmount float64
	}
	if err := r.data.db.WithContext(ctx).
		Model(&model.RechargeRecord{}).
		Joins("JOIN membership ON membership.membership_id = recharge_record.membership_id").
		Where("recharge_record.recharge_date >= ? AND recharge_record.recharge_date <= ?", start, end).
		Select(
			"membership.card_type AS card_type",
			fmt.Sprintf("COALESCE(SUM(CASE WHEN recharge_record.source = '%s' THEN recharge_record.total_amount ELSE 0 END), 0) AS new_card_amount", constants.RechargeSourceIssue),
			fmt.Sprintf("COALESCE(SUM(CASE WHEN recharge_record.source = '%s' THEN recharge_record.total_amount ELSE 0 END), 0) AS renewal_amount", constants.RechargeSourceRecharge),
		).
		Group("membership.card_type").
		Order("membership.card_type ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	revenues := make([]*biz.CardTypeRevenue, 0, len(rows))
	for _, row := range rows {
		revenues = append(revenues, &biz.CardTypeRevenue{
			CardType:      row.CardType,
			NewCardAmount: row.NewCardAmount,
			RenewalAmount: row.RenewalAmount,
		})
	}
	return revenues, nil
}

// TherapistAggregates 按理疗师姓名汇总服务量、营收、时长与评分
func (r *statsRepo) TherapistAggregates(ctx context.Context, start, end time.Time) ([]*biz.TherapistAggregate, error) {
	var rows []struct {
		TherapistName  string
		ServiceCount   int64
		Revenue        float64
		TotalDuration  int64
		RatingSum      float64
		RatedCount     int64
		HighRatedCount int64
	}
	if err := r.data.db.WithContext(ctx).
		Model(&model.ServiceVisit{}).
		Where("service_date >= ? AND service_date <= ? AND therapist_name <> ''", start, end).
		Select(
			"therapist_name",
			"COUNT(*) AS service_count",
			"COALESCE(SUM(service_fee), 0) AS revenue",
			"COALESCE(SUM(duration), 0) AS total_duration",
			"COALESCE(SUM(CASE WHEN rating > 0 THEN rating ELSE 0 END), 0) AS rating_sum",
			"COALESCE(SUM(CASE WHEN rating > 0 THEN 1 ELSE 0 END), 0) AS rated_count",
			"COALESCE(SUM(CASE WHEN rating >= 4 THEN 1 ELSE 0 END), 0) AS high_rated_count",
		).
		Group("therapist_name").
		Order("service_count DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	aggregates := make([]*biz.TherapistAggregate, 0, len(rows))
	for _, row := range rows {
		aggregates = append(aggregates, &biz.TherapistAggregate{
			TherapistName:  row.TherapistName,
			ServiceCount:   row.ServiceCount,
			Revenue:        row.Revenue,
			TotalDuration:  row.TotalDuration,
			RatingSum:      row.RatingSum,
			RatedCount:     row.RatedCount,
			HighRatedCount: row.HighRatedCount,
		})
	}
	return aggregates, nil
}

// TherapistServiceCounts 按理疗师姓名统计服务量（环比基准用）
func (r *statsRepo) TherapistServiceCounts(ctx context.Context, start, end time.Time) (map[string]int64, error) {
	var rows []struct {
		TherapistName string
		ServiceCount  int64
	}
	if err := r.data.db.WithContext(ctx).
		Model(&model.ServiceVisit{}).
		Where("service_date >= ? AND service_date <= ? AND therapist_name <> ''", start, end).
		Select("therapist_name", "COUNT(*) AS service_count").
		Group("therapist_name").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.TherapistName] = row.ServiceCount
	}
	return counts, nil
}

// VisitCountsByCustomer 按客户统计窗口内到店次数
func (r *statsRepo) VisitCountsByCustomer(ctx context.Context, start, end time.Time) ([]*biz.VisitCountRow, error) {
	var rows []struct {
		CustomerID string
		VisitCount int64
	}
	if err := r.data.db.WithContext(ctx).
		Model(&model.ServiceVisit{}).
		Where("service_date >= ? AND service_date <= ?", start, end).
		Select("customer_id", "COUNT(*) AS visit_count").
		Group("customer_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make([]*biz.VisitCountRow, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, &biz.VisitCountRow{
			CustomerID: row.CustomerID,
			VisitCount: row.VisitCount,
		})
	}
	return counts, nil
}

// LastVisitsBefore 最近一次到店早于 before 的客户，按沉睡时长倒序取前 limit 个
func (r *statsRepo) LastVisitsBefore(ctx context.Context, before time.Time, limit int) ([]*biz.LastVisitRow, error) {
	var rows []struct {
		CustomerID string
		ParentName string
		Phone      string
		ChildName  string
		LastVisit  time.Time
	}
	if err := r.data.db.WithContext(ctx).
		Model(&model.ServiceVisit{}).
		Joins("JOIN customer ON customer.customer_id = service_visit.customer_id").
		Select(
			"service_visit.customer_id AS customer_id",
			"customer.parent_name AS parent_name",
			"customer.phone AS phone",
			"customer.child_name AS child_name",
			"MAX(service_visit.service_date) AS last_visit",
		).
		Group("service_visit.customer_id, customer.parent_name, customer.phone, customer.child_name").
		Having("MAX(service_visit.service_date) <= ?", before).
		Order("last_visit ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	visits := make([]*biz.LastVisitRow, 0, len(rows))
	for _, row := range rows {
		visits = append(visits, &biz.LastVisitRow{
			CustomerID:   row.CustomerID,
			CustomerName: row.ParentName,
			Phone:        row.Phone,
			ChildName:    row.ChildName,
			LastVisit:    row.LastVisit,
		})
	}
	return visits, nil
}
