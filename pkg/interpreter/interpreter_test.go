package interpreter

import (
	"reflect"
	"testing"

	"go-fenghuotai/pkg/models"
)

func result(addr string, count int, avgIA, errRatio float64, uaCount int, outlier bool, cluster int) models.AnalysisResult {
	label := models.OutlierLabelInlier
	if outlier {
		label = models.OutlierLabelOutlier
	}
	return models.AnalysisResult{
		FeatureVector: models.FeatureVector{
			SourceAddress:          addr,
			RequestCount:           count,
			AvgInterArrivalSeconds: avgIA,
			ErrorRatio:             errRatio,
			SuccessRatio:           1 - errRatio,
			DistinctUserAgentCount: uaCount,
		},
		OutlierLabel: label,
		ClusterLabel: cluster,
	}
}

func TestInterpretEmpty(t *testing.T) {
	report := Interpret(nil, models.DefaultParams())
	if len(report.HighFrequencyAddresses) != 0 || len(report.Clusters) != 0 ||
		len(report.Anomalies) != 0 || len(report.Recommendations) != 0 {
		t.Fatalf("empty input should produce empty report, got %+v", report)
	}
}

// 一个多维度全部越线的离群地址混在50个正常地址中
func TestInterpretHighRiskAnomaly(t *testing.T) {
	results := []models.AnalysisResult{
		result("6.6.6.6", 1500, 0.05, 0.6, 15, true, models.ClusterNoise),
	}
	for i := 0; i < 50; i++ {
		results = append(results, result("10.0.0.1", 10, 30, 0.02, 1, false, 0))
	}

	report := Interpret(results, models.DefaultParams())

	if len(report.Anomalies) != 1 {
		t.Fatalf("expected 1 anomaly finding, got %d", len(report.Anomalies))
	}
	finding := report.Anomalies[0]
	if finding.SourceAddress != "6.6.6.6" || finding.RequestCount != 1500 {
		t.Fatalf("unexpected finding: %+v", finding)
	}
	if finding.RiskLevel != models.RiskHigh {
		t.Errorf("risk level: expected High, got %s", finding.RiskLevel)
	}

	wantTags := []string{
		"Extremely high request count",
		"Unusually rapid requests",
		"High error rate",
		"Multiple user agents",
	}
	if !reflect.DeepEqual(finding.UnusualPatternTags, wantTags) {
		t.Errorf("tags: expected %v, got %v", wantTags, finding.UnusualPatternTags)
	}

	// 建议按固定顺序：频率、多UA、错误率、时间间隔
	wantRecs := []string{
		"Consider implementing rate limiting for high-frequency requestors",
		"Monitor source addresses using multiple user agents",
		"Investigate source addresses with high error rates",
		"Implement request timing analysis",
	}
	if !reflect.DeepEqual(report.Recommendations, wantRecs) {
		t.Errorf("recommendations: expected %v, got %v", wantRecs, report.Recommendations)
	}

	// 均值+2σ高频阈值只命中热点地址
	if len(report.HighFrequencyAddresses) != 1 ||
		report.HighFrequencyAddresses[0].SourceAddress != "6.6.6.6" {
		t.Errorf("high frequency list: expected only 6.6.6.6, got %+v", report.HighFrequencyAddresses)
	}
}

func TestRiskScoring(t *testing.T) {
	tests := []struct {
		name      string
		fv        models.FeatureVector
		wantScore int
		wantLevel string
	}{
		{"all thresholds", models.FeatureVector{RequestCount: 1500, AvgInterArrivalSeconds: 0.05, ErrorRatio: 0.6, DistinctUserAgentCount: 15}, 10, models.RiskHigh},
		{"quiet address", models.FeatureVector{RequestCount: 10, AvgInterArrivalSeconds: 30, ErrorRatio: 0.01, DistinctUserAgentCount: 1}, 0, models.RiskLow},
		{"moderate count only", models.FeatureVector{RequestCount: 600, AvgInterArrivalSeconds: 30, ErrorRatio: 0.1, DistinctUserAgentCount: 1}, 2, models.RiskLow},
		{"moderate count rapid", models.FeatureVector{RequestCount: 600, AvgInterArrivalSeconds: 0.05, ErrorRatio: 0.1, DistinctUserAgentCount: 1}, 5, models.RiskMedium},
		{"high count rapid", models.FeatureVector{RequestCount: 1100, AvgInterArrivalSeconds: 0.05, ErrorRatio: 0.1, DistinctUserAgentCount: 1}, 6, models.RiskMedium},
		{"high count rapid errors", models.FeatureVector{RequestCount: 1100, AvgInterArrivalSeconds: 0.05, ErrorRatio: 0.6, DistinctUserAgentCount: 1}, 8, models.RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := riskScore(tt.fv); got != tt.wantScore {
				t.Errorf("score: expected %d, got %d", tt.wantScore, got)
			}
			if got := riskLevel(riskScore(tt.fv)); got != tt.wantLevel {
				t.Errorf("level: expected %s, got %s", tt.wantLevel, got)
			}
		})
	}
}

// 单项指标变差时风险等级不应下降
func TestRiskMonotonicity(t *testing.T) {
	base := models.FeatureVector{RequestCount: 600, AvgInterArrivalSeconds: 0.05, ErrorRatio: 0.1, DistinctUserAgentCount: 1}
	worse := base
	worse.RequestCount = 1100

	if riskScore(worse) < riskScore(base) {
		t.Errorf("raising request count lowered score: %d -> %d", riskScore(base), riskScore(worse))
	}

	worse = base
	worse.ErrorRatio = 0.9
	if riskScore(worse) < riskScore(base) {
		t.Errorf("raising error ratio lowered score")
	}

	worse = base
	worse.DistinctUserAgentCount = 20
	if riskScore(worse) < riskScore(base) {
		t.Errorf("raising user agent count lowered score")
	}
}

func TestClusterSummariesExcludeNoise(t *testing.T) {
	mk := func(count int, cluster int) models.AnalysisResult {
		r := result("10.0.0.1", count, 0.05, 0, 1, false, cluster)
		r.UniquePathRatio = 0.1
		return r
	}
	results := []models.AnalysisResult{
		mk(10, 0), mk(10, 0), mk(10, 0), mk(10, 0), mk(100, 0),
		mk(99999, models.ClusterNoise), // 噪声点不进聚类概要
	}

	report := Interpret(results, models.DefaultParams())
	if len(report.Clusters) != 1 {
		t.Fatalf("expected 1 cluster summary, got %d", len(report.Clusters))
	}
	cs := report.Clusters[0]
	if cs.ClusterID != 0 || cs.Size != 5 {
		t.Fatalf("unexpected summary: %+v", cs)
	}
	if cs.AvgRequestCount != 28 {
		t.Errorf("avg request count: expected 28, got %v", cs.AvgRequestCount)
	}

	// 均值28 > 2×中位数10；到达间隔全相等；路径多样性0.1 < 0.2
	wantTags := []string{
		"High request frequency variation",
		"Consistent request timing",
		"Limited path variety",
	}
	if !reflect.DeepEqual(cs.CommonPatternTags, wantTags) {
		t.Errorf("cluster tags: expected %v, got %v", wantTags, cs.CommonPatternTags)
	}
}

func TestRecommendationsNotDuplicated(t *testing.T) {
	results := []models.AnalysisResult{
		result("1.1.1.1", 2000, 30, 0, 1, false, 0),
		result("2.2.2.2", 3000, 30, 0, 1, false, 0),
	}
	report := Interpret(results, models.DefaultParams())

	want := []string{"Consider implementing rate limiting for high-frequency requestors"}
	if !reflect.DeepEqual(report.Recommendations, want) {
		t.Errorf("expected single recommendation, got %v", report.Recommendations)
	}
}
