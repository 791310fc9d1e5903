package interpreter

import (
	"go-fenghuotai/pkg/models"
)

// 解释层的全部阈值规则集中在这里声明，按表内顺序求值。
// 阈值和权重是固定的设计常量，不是学习得到的。

// anomalyTagRule 离群地址的定性标签规则
type anomalyTagRule struct {
	Tag   string
	Match func(fv models.FeatureVector) bool
}

var anomalyTagRules = []anomalyTagRule{
	{"Extremely high request count", func(fv models.FeatureVector) bool {
		return fv.RequestCount > 1000
	}},
	{"Unusually rapid requests", func(fv models.FeatureVector) bool {
		return fv.AvgInterArrivalSeconds < 0.1
	}},
	{"High error rate", func(fv models.FeatureVector) bool {
		return fv.ErrorRatio > 0.5
	}},
	{"Multiple user agents", func(fv models.FeatureVector) bool {
		return fv.DistinctUserAgentCount > 10
	}},
}

// riskScoreRule 风险评分加分项
type riskScoreRule struct {
	Points int
	Match  func(fv models.FeatureVector) bool
}

var riskScoreRules = []riskScoreRule{
	{3, func(fv models.FeatureVector) bool { return fv.RequestCount > 1000 }},
	{2, func(fv models.FeatureVector) bool { return fv.RequestCount > 500 && fv.RequestCount <= 1000 }},
	{3, func(fv models.FeatureVector) bool { return fv.AvgInterArrivalSeconds < 0.1 }},
	{2, func(fv models.FeatureVector) bool { return fv.ErrorRatio > 0.5 }},
	{2, func(fv models.FeatureVector) bool { return fv.DistinctUserAgentCount > 10 }},
}

func riskScore(fv models.FeatureVector) int {
	score := 0
	for _, rule := range riskScoreRules {
		if rule.Match(fv) {
			score += rule.Points
		}
	}
	return score
}

// riskLevel 评分离散为三档
func riskLevel(score int) string {
	if score >= 8 {
		return models.RiskHigh
	}
	if score >= 5 {
		return models.RiskMedium
	}
	return models.RiskLow
}

// clusterStats 单个聚类的列统计量，供聚类标签规则使用
type clusterStats struct {
	size                int
	meanRequestCount    float64
	medianRequestCount  float64
	meanInterArrival    float64
	interArrivalStdDev  float64
	meanUniquePathRatio float64
}

type clusterTagRule struct {
	Tag   string
	Match func(cs clusterStats) bool
}

var clusterTagRules = []clusterTagRule{
	{"High request frequency variation", func(cs clusterStats) bool {
		return cs.meanRequestCount > cs.medianRequestCount*2
	}},
	{"Consistent request timing", func(cs clusterStats) bool {
		return cs.interArrivalStdDev < 0.1
	}},
	{"Limited path variety", func(cs clusterStats) bool {
		return cs.meanUniquePathRatio < 0.2
	}},
}

// recommendationRule 批次级处置建议：任一地址命中即触发一次，
// 输出顺序与表内顺序一致（频率、多UA、错误率、时间间隔）
type recommendationRule struct {
	Text  string
	Match func(r models.AnalysisResult) bool
}

var recommendationRules = []recommendationRule{
	{"Consider implementing rate limiting for high-frequency requestors", func(r models.AnalysisResult) bool {
		return r.RequestCount > 1000
	}},
	{"Monitor source addresses using multiple user agents", func(r models.AnalysisResult) bool {
		return r.DistinctUserAgentCount > 10
	}},
	{"Investigate source addresses with high error rates", func(r models.AnalysisResult) bool {
		return r.ErrorRatio > 0.5
	}},
	{"Implement request timing analysis", func(r models.AnalysisResult) bool {
		return r.AvgInterArrivalSeconds < 0.1
	}},
}
