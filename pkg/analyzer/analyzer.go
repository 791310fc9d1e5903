package analyzer

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"go-fenghuotai/pkg/models"
)

// ErrNonFinite 特征矩阵中出现NaN或Inf时整次运行直接失败，不做内部重试
var ErrNonFinite = errors.New("特征矩阵包含非有限数值")

// Analyze 对一批特征向量做模式分析：按列标准化后分别执行隔离森林离群检测
// 和密度聚类，再把两种标签合并到每条结果上。
//
// 两种标签都只相对于当前批次有意义：标准化参数每次重新拟合、不跨运行保留，
// 同一地址换一个批次可能得到不同标签，这是无监督方法的固有属性。
// 空批次返回空结果和零值指标，不报错。
func Analyze(features []models.FeatureVector, params models.AnalysisParams, log *zap.SugaredLogger) ([]models.AnalysisResult, models.RunMetrics, error) {
	metrics := models.RunMetrics{RunTimestamp: time.Now()}
	if len(features) == 0 {
		log.Debug("批次为空，跳过模式分析")
		return nil, metrics, nil
	}

	matrix, err := featureMatrix(features, params.WindowSizesMinutes)
	if err != nil {
		return nil, metrics, err
	}
	standardize(matrix)

	rng := rand.New(rand.NewSource(params.Seed))
	forest := newIsoForest(matrix, params.TreeCount, params.SubsampleSize, rng)
	outliers := forest.OutlierLabels(matrix, params.OutlierFraction)

	clusterLabels := dbscan(matrix, params.ClusterRadius, params.ClusterMinSamples)

	results := make([]models.AnalysisResult, len(features))
	clusterIDs := make(map[int]struct{})
	for i, fv := range features {
		label := models.OutlierLabelInlier
		if outliers[i] {
			label = models.OutlierLabelOutlier
			metrics.OutlierCount++
		}
		if clusterLabels[i] == models.ClusterNoise {
			metrics.NoiseCount++
		} else {
			clusterIDs[clusterLabels[i]] = struct{}{}
		}
		results[i] = models.AnalysisResult{
			FeatureVector: fv,
			OutlierLabel:  label,
			ClusterLabel:  clusterLabels[i],
		}
	}
	metrics.TotalAddresses = len(features)
	metrics.ClusterCount = len(clusterIDs)

	log.Infof("模式分析完成: 地址数=%d, 离群=%d, 聚类=%d, 噪声=%d",
		metrics.TotalAddresses, metrics.OutlierCount, metrics.ClusterCount, metrics.NoiseCount)
	return results, metrics, nil
}

// featureMatrix 把特征向量展开成数值矩阵，列顺序固定；
// 窗口计数列按配置的窗口顺序排列
func featureMatrix(features []models.FeatureVector, windowsMinutes []int) ([][]float64, error) {
	matrix := make([][]float64, len(features))
	for i, fv := range features {
		row := make([]float64, 0, 8+len(windowsMinutes))
		row = append(row,
			float64(fv.RequestCount),
			fv.AvgInterArrivalSeconds,
			fv.StdInterArrivalSeconds,
			fv.UniquePathRatio,
			fv.SuccessRatio,
			fv.ErrorRatio,
			fv.MeanBytesTransferred,
			float64(fv.DistinctUserAgentCount),
		)
		for _, w := range windowsMinutes {
			row = append(row, float64(fv.WindowedRequestCounts[w]))
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("地址 %s: %w", fv.SourceAddress, ErrNonFinite)
			}
		}
		matrix[i] = row
	}
	return matrix, nil
}

// standardize 按列做零均值单位方差标准化（总体统计量），原地修改。
// 方差为零的列全部置0，单地址批次因此退化为全零矩阵而不会出错。
func standardize(matrix [][]float64) {
	if len(matrix) == 0 {
		return
	}
	cols := len(matrix[0])
	column := make([]float64, len(matrix))
	for c := 0; c < cols; c++ {
		for r := range matrix {
			column[r] = matrix[r][c]
		}
		mean := stat.Mean(column, nil)
		sd := stat.PopStdDev(column, nil)
		for r := range matrix {
			if sd == 0 {
				matrix[r][c] = 0
			} else {
				matrix[r][c] = (matrix[r][c] - mean) / sd
			}
		}
	}
}
