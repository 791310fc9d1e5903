package extractor

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"go-fenghuotai/pkg/models"
)

// ExtractFeatures 把一批访问日志聚合为每个源地址一条特征向量。
// 输入顺序任意，时间戳不要求有序；字段非法的记录被跳过并计数，
// 不会导致整批失败。返回的特征按源地址升序排列，结果可复现。
func ExtractFeatures(entries []models.LogEntry, windowsMinutes []int) ([]models.FeatureVector, int) {
	groups := make(map[string][]models.LogEntry)
	skipped := 0
	for _, e := range entries {
		if !e.Valid() {
			skipped++
			continue
		}
		groups[e.SourceAddress] = append(groups[e.SourceAddress], e)
	}

	addrs := make([]string, 0, len(groups))
	for addr := range groups {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	features := make([]models.FeatureVector, 0, len(addrs))
	for _, addr := range addrs {
		features = append(features, buildVector(addr, groups[addr], windowsMinutes))
	}
	return features, skipped
}

func buildVector(addr string, group []models.LogEntry, windowsMinutes []int) models.FeatureVector {
	timestamps := make([]time.Time, len(group))
	for i, e := range group {
		timestamps[i] = e.Timestamp
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

	// 相邻请求的时间间隔（秒），单条记录时为空
	gaps := make([]float64, 0, len(timestamps)-1)
	for i := 1; i < len(timestamps); i++ {
		gaps = append(gaps, timestamps[i].Sub(timestamps[i-1]).Seconds())
	}
	var avgGap, stdGap float64
	if len(gaps) > 0 {
		avgGap = stat.Mean(gaps, nil)
		stdGap = stat.PopStdDev(gaps, nil)
	}

	paths := make(map[string]struct{})
	agents := make(map[string]struct{})
	successCount := 0
	var totalBytes float64
	for _, e := range group {
		paths[e.RequestPath] = struct{}{}
		agents[e.UserAgent] = struct{}{}
		if e.StatusCode < 400 {
			successCount++
		}
		totalBytes += float64(e.BytesTransferred)
	}

	n := float64(len(group))
	fv := models.FeatureVector{
		SourceAddress:          addr,
		RequestCount:           len(group),
		AvgInterArrivalSeconds: avgGap,
		StdInterArrivalSeconds: stdGap,
		UniquePathRatio:        float64(len(paths)) / n,
		SuccessRatio:           float64(successCount) / n,
		ErrorRatio:             float64(len(group)-successCount) / n,
		MeanBytesTransferred:   totalBytes / n,
		DistinctUserAgentCount: len(agents),
		WindowedRequestCounts:  make(map[int]int, len(windowsMinutes)),
	}
	for _, w := range windowsMinutes {
		fv.WindowedRequestCounts[w] = maxBurstCount(timestamps, time.Duration(w)*time.Minute)
	}
	return fv
}

// maxBurstCount 在升序时间戳上求任意 (t-window, t] 区间内的最大请求数，
// t 取每个观测到的请求时刻。双指针扫描，整体 O(n)。
func maxBurstCount(sorted []time.Time, window time.Duration) int {
	maxCount := 0
	start := 0
	for end := 0; end < len(sorted); end++ {
		cutoff := sorted[end].Add(-window)
		// 区间左端开放：恰好落在 t-window 上的请求不计入
		for start < end && !sorted[start].After(cutoff) {
			start++
		}
		if count := end - start + 1; count > maxCount {
			maxCount = count
		}
	}
	return maxCount
}
