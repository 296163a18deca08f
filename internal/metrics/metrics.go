package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ClinicMetrics 门店服务指标
type ClinicMetrics struct {
	// 开卡相关指标
	CardIssueTotal *prometheus.CounterVec // 开卡总数（按卡类型）

	// 充值相关指标
	RechargeTotal    *prometheus.CounterVec   // 充值笔数（按类型、结果）
	RechargeAmount   *prometheus.CounterVec   // 充值金额（按类型）
	RechargeDuration *prometheus.HistogramVec // 充值耗时

	// 消费相关指标
	ConsumptionTotal    *prometheus.CounterVec   // 消费笔数（按卡类型、结果）
	ConsumptionAmount   *prometheus.CounterVec   // 消费金额（按卡类型）
	ConsumptionDuration *prometheus.HistogramVec // 消费耗时

	// 服务记录相关指标
	VisitTotal *prometheus.CounterVec // 服务记录总数（按支付方式）

	// 库存相关指标
	StockMoveTotal *prometheus.CounterVec // 出入库笔数（按类型、结果）
	StockLowAlert  *prometheus.GaugeVec   // 库存低于安全线告警（按物品）

	// 分布式锁相关指标
	LockAcquireTotal    *prometheus.CounterVec // 锁获取总数（按结果）
	LockAcquireDuration prometheus.Histogram   // 锁获取耗时

	// 统计查询相关指标
	StatsQueryDuration *prometheus.HistogramVec // 统计查询耗时（按报表）
}

// NewClinicMetrics 创建门店服务指标
func NewClinicMetrics() *ClinicMetrics {
	return &ClinicMetrics{
		CardIssueTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_card_issue_total",
				Help: "Total number of membership cards issued",
			},
			[]string{"card_type"},
		),

		RechargeTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_recharge_total",
				Help: "Total number of recharge operations",
			},
			[]string{"type", "result"}, // result: success/rejected/failed
		),
		RechargeAmount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_recharge_amount_total",
				Help: "Total amount recharged",
			},
			[]string{"type"},
		),
		RechargeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clinic_recharge_duration_seconds",
				Help:    "Duration of recharge operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),

		ConsumptionTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_consumption_total",
				Help: "Total number of card consumptions",
			},
			[]string{"card_type", "result"},
		),
		ConsumptionAmount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_consumption_amount_total",
				Help: "Total amount consumed from cards",
			},
			[]string{"card_type"},
		),
		ConsumptionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clinic_consumption_duration_seconds",
				Help:    "Duration of consumption operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"card_type"},
		),

		VisitTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_visit_total",
				Help: "Total number of service visits",
			},
			[]string{"payment_method"},
		),

		StockMoveTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_stock_move_total",
				Help: "Total number of inventory movements",
			},
			[]string{"type", "result"}, // type: in/out
		),
		StockLowAlert: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "clinic_stock_low_alert",
				Help: "Items whose stock dropped below the safety threshold",
			},
			[]string{"item"},
		),

		LockAcquireTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_lock_acquire_total",
				Help: "Total number of lock acquisition attempts",
			},
			[]string{"result"},
		),
		LockAcquireDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "clinic_lock_acquire_duration_seconds",
				Help:    "Duration of lock acquisition",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),

		StatsQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clinic_stats_query_duration_seconds",
				Help:    "Duration of statistics queries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"report"},
		),
	}
}

// 全局指标实例
var defaultMetrics *ClinicMetrics

// InitMetrics 初始化全局指标
func InitMetrics() {
	defaultMetrics = NewClinicMetrics()
}

// GetMetrics 获取全局指标实例
func GetMetrics() *ClinicMetrics {
	if defaultMetrics == nil {
		InitMetrics()
	}
	return defaultMetrics
}
