package interpreter

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"go-fenghuotai/pkg/models"
)

// Interpret 把模式分析结果转换为面向运维的风险报告：
// 高频地址列表、聚类概要、离群地址的异常发现以及固定顺序的处置建议。
// 所有统计量基于当前批次的全量结果重新计算，不依赖历史运行。
func Interpret(results []models.AnalysisResult, params models.AnalysisParams) models.Report {
	return models.Report{
		HighFrequencyAddresses: highFrequencyAddresses(results, params.HighFreqStddevMultiplier),
		Clusters:               clusterSummaries(results),
		Anomalies:              anomalyFindings(results),
		Recommendations:        recommendations(results),
	}
}

// highFrequencyAddresses 请求数超过 均值+k·总体标准差 的地址
func highFrequencyAddresses(results []models.AnalysisResult, multiplier float64) []models.AnalysisResult {
	if len(results) == 0 {
		return nil
	}
	counts := make([]float64, len(results))
	for i, r := range results {
		counts[i] = float64(r.RequestCount)
	}
	threshold := stat.Mean(counts, nil) + multiplier*stat.PopStdDev(counts, nil)

	var high []models.AnalysisResult
	for _, r := range results {
		if float64(r.RequestCount) > threshold {
			high = append(high, r)
		}
	}
	return high
}

// clusterSummaries 噪声点不参与任何聚类概要
func clusterSummaries(results []models.AnalysisResult) []models.ClusterSummary {
	clusters := make(map[int][]models.AnalysisResult)
	for _, r := range results {
		if r.ClusterLabel == models.ClusterNoise {
			continue
		}
		clusters[r.ClusterLabel] = append(clusters[r.ClusterLabel], r)
	}

	ids := make([]int, 0, len(clusters))
	for id := range clusters {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	summaries := make([]models.ClusterSummary, 0, len(ids))
	for _, id := range ids {
		members := clusters[id]
		cs := computeClusterStats(members)

		var tags []string
		for _, rule := range clusterTagRules {
			if rule.Match(cs) {
				tags = append(tags, rule.Tag)
			}
		}
		summaries = append(summaries, models.ClusterSummary{
			ClusterID:         id,
			Size:              cs.size,
			AvgRequestCount:   cs.meanRequestCount,
			AvgInterArrival:   cs.meanInterArrival,
			CommonPatternTags: tags,
		})
	}
	return summaries
}

func computeClusterStats(members []models.AnalysisResult) clusterStats {
	counts := make([]float64, len(members))
	interArrivals := make([]float64, len(members))
	pathRatios := make([]float64, len(members))
	for i, m := range members {
		counts[i] = float64(m.RequestCount)
		interArrivals[i] = m.AvgInterArrivalSeconds
		pathRatios[i] = m.UniquePathRatio
	}
	sortedCounts := append([]float64(nil), counts...)
	sort.Float64s(sortedCounts)

	return clusterStats{
		size:                len(members),
		meanRequestCount:    stat.Mean(counts, nil),
		medianRequestCount:  stat.Quantile(0.5, stat.Empirical, sortedCounts, nil),
		meanInterArrival:    stat.Mean(interArrivals, nil),
		interArrivalStdDev:  stat.PopStdDev(interArrivals, nil),
		meanUniquePathRatio: stat.Mean(pathRatios, nil),
	}
}

// anomalyFindings 仅覆盖离群标签的地址，标签与评分按规则表顺序求值
func anomalyFindings(results []models.AnalysisResult) []models.AnomalyFinding {
	var findings []models.AnomalyFinding
	for _, r := range results {
		if r.OutlierLabel != models.OutlierLabelOutlier {
			continue
		}
		var tags []string
		for _, rule := range anomalyTagRules {
			if rule.Match(r.FeatureVector) {
				tags = append(tags, rule.Tag)
			}
		}
		findings = append(findings, models.AnomalyFinding{
			SourceAddress:      r.SourceAddress,
			RequestCount:       r.RequestCount,
			UnusualPatternTags: tags,
			RiskLevel:          riskLevel(riskScore(r.FeatureVector)),
		})
	}
	return findings
}

// recommendations 每条建议至多触发一次，顺序固定
func recommendations(results []models.AnalysisResult) []string {
	var recs []string
	for _, rule := range recommendationRules {
		for _, r := range results {
			if rule.Match(r) {
				recs = append(recs, rule.Text)
				break
			}
		}
	}
	return recs
}
