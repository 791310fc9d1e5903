package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EntriesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fenghuotai_log_entries_processed_total",
		Help: "已处理的访问日志记录总数",
	})

	RecordsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fenghuotai_invalid_records_skipped_total",
		Help: "因字段缺失或取值非法而跳过的记录总数",
	})

	BatchesAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fenghuotai_batches_analyzed_total",
		Help: "已完成的批量分析次数",
	})

	RunFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fenghuotai_run_failures_total",
		Help: "分析运行失败次数",
	})

	AddressesAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fenghuotai_addresses_analyzed_total",
		Help: "已分析的源地址总数",
	})

	OutliersDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fenghuotai_outliers_detected_total",
		Help: "检出的离群地址总数",
	})

	FindingsByRiskLevel = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fenghuotai_anomaly_findings_total",
			Help: "按风险等级统计的异常发现数",
		},
		[]string{"risk_level"},
	)

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fenghuotai_run_duration_seconds",
		Help:    "单次批量分析耗时",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
)
