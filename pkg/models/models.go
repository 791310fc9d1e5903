package models

import (
	"time"
)

// LogEntry 表示一条HTTP访问日志记录，由外部采集端（Kafka/文件）提供
type LogEntry struct {
	SourceAddress    string    `json:"source_address"`
	Timestamp        time.Time `json:"timestamp"`
	RequestPath      string    `json:"request_path"`
	StatusCode       int       `json:"status_code"`
	BytesTransferred int64     `json:"bytes_transferred"`
	UserAgent        string    `json:"user_agent"`
}

// Valid 检查记录是否完整：缺少源地址/时间戳、状态码或字节数为负的记录会被跳过
func (e LogEntry) Valid() bool {
	return e.SourceAddress != "" && !e.Timestamp.IsZero() &&
		e.StatusCode >= 0 && e.BytesTransferred >= 0
}

// FeatureVector 单个源地址在一个批次内的行为特征，生成后不再修改
type FeatureVector struct {
	SourceAddress          string  `json:"source_address"`
	RequestCount           int     `json:"request_count"`
	AvgInterArrivalSeconds float64 `json:"avg_inter_arrival_seconds"`
	StdInterArrivalSeconds float64 `json:"stddev_inter_arrival_seconds"`
	UniquePathRatio        float64 `json:"unique_path_ratio"`
	SuccessRatio           float64 `json:"success_ratio"`
	ErrorRatio             float64 `json:"error_ratio"`
	MeanBytesTransferred   float64 `json:"mean_bytes_transferred"`
	DistinctUserAgentCount int     `json:"distinct_user_agent_count"`

	// WindowedRequestCounts 窗口分钟数 -> 该窗口长度内观察到的最大突发请求数
	WindowedRequestCounts map[int]int `json:"windowed_request_counts"`
}

// 离群标签取值
const (
	OutlierLabelInlier  = "inlier"
	OutlierLabelOutlier = "outlier"
)

// ClusterNoise 密度聚类的噪声标记
const ClusterNoise = -1

// AnalysisResult 特征向量附加本批次的离群标签与聚类标签。
// 两个标签都是相对于整个批次计算的：同一个地址在不同批次中可能得到不同标签。
type AnalysisResult struct {
	FeatureVector
	OutlierLabel string `json:"outlier_label"`
	ClusterLabel int    `json:"cluster_label"`
}

// RunMetrics 一次批量分析的汇总指标
type RunMetrics struct {
	TotalAddresses int       `json:"total_addresses"`
	OutlierCount   int       `json:"outlier_count"`
	ClusterCount   int       `json:"cluster_count"`
	NoiseCount     int       `json:"noise_count"`
	RunTimestamp   time.Time `json:"run_timestamp"`
}

// 风险等级
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// AnomalyFinding 离群地址的定性描述与风险等级
type AnomalyFinding struct {
	SourceAddress      string   `json:"source_address"`
	RequestCount       int      `json:"request_count"`
	UnusualPatternTags []string `json:"unusual_pattern_tags"`
	RiskLevel          string   `json:"risk_level"`
}

// ClusterSummary 单个聚类的统计概要
type ClusterSummary struct {
	ClusterID         int      `json:"cluster_id"`
	Size              int      `json:"size"`
	AvgRequestCount   float64  `json:"avg_request_count"`
	AvgInterArrival   float64  `json:"avg_inter_arrival"`
	CommonPatternTags []string `json:"common_pattern_tags"`
}

// Report 批次分析的结构化报告，由解释层生成，只返回不落盘
type Report struct {
	HighFrequencyAddresses []AnalysisResult `json:"high_frequency_addresses"`
	Clusters               []ClusterSummary `json:"clusters"`
	Anomalies              []AnomalyFinding `json:"anomalies"`
	Recommendations        []string         `json:"recommendations"`
	SkippedRecords         int              `json:"skipped_records"`
}

// AnalysisParams 分析管线的可调参数，每次运行显式传入，不依赖任何全局状态
type AnalysisParams struct {
	WindowSizesMinutes       []int   `json:"window_sizes_minutes"`
	OutlierFraction          float64 `json:"outlier_fraction"`
	ClusterRadius            float64 `json:"cluster_radius"`
	ClusterMinSamples        int     `json:"cluster_min_samples"`
	HighFreqStddevMultiplier float64 `json:"high_frequency_stddev_multiplier"`

	// 隔离森林参数，Seed固定后整条管线可复现
	Seed          int64 `json:"seed"`
	TreeCount     int   `json:"tree_count"`
	SubsampleSize int   `json:"subsample_size"`
}

// DefaultParams 默认参数
func DefaultParams() AnalysisParams {
	return AnalysisParams{
		WindowSizesMinutes:       []int{1, 5, 15, 30, 60},
		OutlierFraction:          0.10,
		ClusterRadius:            0.5,
		ClusterMinSamples:        5,
		HighFreqStddevMultiplier: 2,
		Seed:                     42,
		TreeCount:                100,
		SubsampleSize:            256,
	}
}
