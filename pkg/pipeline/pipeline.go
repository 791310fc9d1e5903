package pipeline

import (
	"time"

	"go.uber.org/zap"

	"go-fenghuotai/pkg/analyzer"
	"go-fenghuotai/pkg/extractor"
	"go-fenghuotai/pkg/interpreter"
	"go-fenghuotai/pkg/metrics"
	"go-fenghuotai/pkg/models"
)

// Pipeline 把特征提取、模式分析、结果解释串成一次同步的批量计算。
// 无跨运行状态：标准化参数和模型都在单次Run内拟合并丢弃。
type Pipeline struct {
	params models.AnalysisParams
	log    *zap.SugaredLogger
}

func New(params models.AnalysisParams, log *zap.SugaredLogger) *Pipeline {
	return &Pipeline{params: params, log: log}
}

// RunOutput 一次批量分析的全部产出
type RunOutput struct {
	Results []models.AnalysisResult `json:"results"`
	Metrics models.RunMetrics       `json:"metrics"`
	Report  models.Report           `json:"report"`
}

// Run 分析一批访问日志。空批次返回空结果与零值指标，不报错；
// 字段非法的记录被跳过并计入Report.SkippedRecords；
// 数值计算失败（特征矩阵出现非有限值）返回错误，整次运行作废。
func (p *Pipeline) Run(entries []models.LogEntry) (*RunOutput, error) {
	start := time.Now()
	metrics.EntriesProcessed.Add(float64(len(entries)))

	features, skipped := extractor.ExtractFeatures(entries, p.params.WindowSizesMinutes)
	if skipped > 0 {
		p.log.Warnf("跳过 %d 条非法记录", skipped)
		metrics.RecordsSkipped.Add(float64(skipped))
	}

	results, runMetrics, err := analyzer.Analyze(features, p.params, p.log)
	if err != nil {
		metrics.RunFailures.Inc()
		p.log.Errorf("模式分析失败: %v", err)
		return nil, err
	}

	report := interpreter.Interpret(results, p.params)
	report.SkippedRecords = skipped

	metrics.BatchesAnalyzed.Inc()
	metrics.AddressesAnalyzed.Add(float64(runMetrics.TotalAddresses))
	metrics.OutliersDetected.Add(float64(runMetrics.OutlierCount))
	for _, finding := range report.Anomalies {
		metrics.FindingsByRiskLevel.WithLabelValues(finding.RiskLevel).Inc()
	}
	metrics.RunDuration.Observe(time.Since(start).Seconds())

	p.log.Infof("批量分析完成: 记录=%d, 地址=%d, 异常发现=%d, 建议=%d, 耗时=%s",
		len(entries), runMetrics.TotalAddresses, len(report.Anomalies),
		len(report.Recommendations), time.Since(start))

	return &RunOutput{Results: results, Metrics: runMetrics, Report: report}, nil
}
